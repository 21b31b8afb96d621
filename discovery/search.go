package discovery

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/lehigh-university-libraries/refer/item"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 20

// Query is a search request.
type Query struct {
	// Configuration is the ID of the search configuration the query runs under.
	Configuration string
	// ObjectType restricts results to one object type; empty means any.
	ObjectType item.ObjectType
	// Filters are "[-]field:value" filter queries, all of which must match.
	Filters []string
	Sort    *Sort
}

// ParsedFilters parses every filter of the query.
func (q Query) ParsedFilters() ([]Filter, error) {
	filters := make([]Filter, 0, len(q.Filters))
	for _, fq := range q.Filters {
		f, err := ParseFilter(fq)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// Index returns one page of the records matching a query together with the
// total number of matches.
type Index interface {
	Page(ctx context.Context, q Query, offset, limit int) ([]*item.Item, int, error)
}

// Searcher runs queries and yields their results lazily.
type Searcher interface {
	Search(ctx context.Context, q Query) iter.Seq2[*item.Item, error]
}

// IndexSearcher pages through an Index. Every range over the returned
// sequence restarts the query from the first page.
type IndexSearcher struct {
	index    Index
	pageSize int
}

// NewSearcher creates a searcher fetching pageSize records per request.
func NewSearcher(index Index, pageSize int) *IndexSearcher {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &IndexSearcher{index: index, pageSize: pageSize}
}

// Search implements Searcher.
func (s *IndexSearcher) Search(ctx context.Context, q Query) iter.Seq2[*item.Item, error] {
	return func(yield func(*item.Item, error) bool) {
		offset := 0
		for {
			page, total, err := s.index.Page(ctx, q, offset, s.pageSize)
			if err != nil {
				yield(nil, fmt.Errorf("searching %s at offset %d: %w", q.Configuration, offset, err))
				return
			}
			for _, it := range page {
				if !yield(it, nil) {
					return
				}
			}
			offset += len(page)
			if len(page) == 0 || offset >= total {
				return
			}
		}
	}
}

// MemoryIndex evaluates queries over a MemoryStore.
type MemoryIndex struct {
	store *item.MemoryStore
}

// NewMemoryIndex creates an index over store.
func NewMemoryIndex(store *item.MemoryStore) *MemoryIndex {
	return &MemoryIndex{store: store}
}

// Page implements Index.
func (x *MemoryIndex) Page(ctx context.Context, q Query, offset, limit int) ([]*item.Item, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	filters, err := q.ParsedFilters()
	if err != nil {
		return nil, 0, err
	}

	var matches []*item.Item
	for _, it := range x.store.All() {
		if q.ObjectType != "" && it.Type != q.ObjectType {
			continue
		}
		if matchAll(it, filters) {
			matches = append(matches, it)
		}
	}

	if q.Sort != nil && q.Sort.Field != "" {
		sortItems(matches, q.Sort)
	}

	total := len(matches)
	if offset >= total {
		return nil, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return matches[offset:end], total, nil
}

func matchAll(it *item.Item, filters []Filter) bool {
	for _, f := range filters {
		if !f.Match(it) {
			return false
		}
	}
	return true
}

// sortItems orders records by the first value of the sort field. Records
// without a value go last in either direction.
func sortItems(items []*item.Item, s *Sort) {
	desc := s.Descending()
	sort.SliceStable(items, func(i, j int) bool {
		a := items[i].MetadataFirstValue(s.Field)
		b := items[j].MetadataFirstValue(s.Field)
		switch {
		case a == "" || b == "":
			return a != "" && b == ""
		case desc:
			return strings.Compare(a, b) > 0
		default:
			return strings.Compare(a, b) < 0
		}
	})
}
