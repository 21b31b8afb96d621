package crosswalk

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/lehigh-university-libraries/refer/discovery"
	"github.com/lehigh-university-libraries/refer/item"
)

// ErrGroupCardinality is returned in strict mode when a field of a metadata
// group has fewer values than the group field.
var ErrGroupCardinality = errors.New("inconsistent metadata group cardinality")

// relationConfigurationPrefix prefixes the search configuration of a
// relation group: RELATION.<entity type>.<relation name>.
const relationConfigurationPrefix = "RELATION."

// groupBody returns the lines between the group start at index start and
// the first following line of kind end, together with the index after that
// end marker. A missing end marker extends the body to the last line.
func groupBody(lines []Line, start int, end Kind) ([]Line, int) {
	for j := start + 1; j < len(lines); j++ {
		if lines[j].Kind == end {
			return lines[start+1 : j], j + 1
		}
	}
	return lines[start+1:], len(lines)
}

// metadataGroup replays body once per value of the group field, using the
// i-th value of every field on the i-th pass.
func (r *Renderer) metadataGroup(ctx context.Context, it *item.Item, group string, body []Line) ([]string, error) {
	size := len(it.MetadataByString(group))
	cache := make(map[string][]string)

	var out []string
	for i := 0; i < size; i++ {
		for _, line := range body {
			if line.Kind == Literal {
				out = append(out, line.Before)
				continue
			}
			if !line.HasValue() {
				continue
			}

			values, ok := cache[line.Field]
			if !ok {
				values = r.values(ctx, it, line)
				cache[line.Field] = values
			}

			if i >= len(values) {
				if r.StrictGroups {
					return nil, fmt.Errorf("%w: group %s of item %s has %d values, %s has %d",
						ErrGroupCardinality, group, it.ID, size, line.Field, len(values))
				}
				r.logger().Warn("inconsistent metadata group cardinality",
					"group", group, "field", line.Field, "item", it.ID, "index", i)
				continue
			}

			if values[i] == item.PlaceholderParentMetadataValue {
				continue
			}
			out = append(out, r.format(line, values[i]))
		}
	}
	return out, nil
}

// relationGroup replays body once per related record, resolving its fields
// against the related record.
func (r *Renderer) relationGroup(ctx context.Context, it *item.Item, relation string, body []Line) ([]string, error) {
	var out []string
	for related, err := range r.relatedItems(ctx, it, relation) {
		if err != nil {
			return nil, fmt.Errorf("finding %s related items of %s: %w", relation, it.ID, err)
		}
		for _, line := range body {
			out = r.appendLine(ctx, out, related, line)
		}
	}
	return out, nil
}

// relatedItems queries the records related to it through relation. Missing
// entity types and configurations yield no records.
func (r *Renderer) relatedItems(ctx context.Context, it *item.Item, relation string) iter.Seq2[*item.Item, error] {
	entityType := it.EntityType()
	if entityType == "" {
		r.logger().Warn("item has no entity type, no related items found",
			"item", it.ID, "relation", relation)
		return noItems
	}
	if r.Configurations == nil || r.Searcher == nil {
		r.logger().Warn("no search service configured, no related items found",
			"item", it.ID, "relation", relation)
		return noItems
	}

	conf := r.Configurations.ByNameOrScope(relationConfigurationPrefix+entityType+"."+relation, it)
	if conf == nil {
		r.logger().Warn("no search configuration found for relation, no related items found",
			"item", it.ID, "relation", relation, "entity_type", entityType)
		return noItems
	}

	q := discovery.Query{
		Configuration: conf.ID,
		ObjectType:    item.TypeItem,
		Sort:          conf.Sort,
	}
	for _, fq := range conf.DefaultFilterQueries {
		q.Filters = append(q.Filters, discovery.FormatFilter(fq, it.ID))
	}
	return r.Searcher.Search(ctx, q)
}

func noItems(func(*item.Item, error) bool) {}
