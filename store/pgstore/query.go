package pgstore

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/refer/discovery"
	"github.com/lehigh-university-libraries/refer/item"
)

// pageQuery holds the SQL of one search page.
type pageQuery struct {
	Count string
	Page  string
	// CountArgs is the prefix of Args used by Count.
	CountArgs []any
	Args      []any
}

type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// fieldCondition matches metadata rows aliased m against a field expression
// with the same wildcard rules as item.Field.Matches.
func (b *sqlBuilder) fieldCondition(f item.Field) string {
	conds := []string{"m.item_id = i.id"}
	if f.Schema != item.Any {
		conds = append(conds, "m.schema_name = "+b.arg(f.Schema))
	}
	if f.Element != item.Any {
		conds = append(conds, "m.element = "+b.arg(f.Element))
	}
	switch {
	case !f.Qualified:
		conds = append(conds, "m.qualifier = ''")
	case f.Qualifier != item.Any:
		conds = append(conds, "m.qualifier = "+b.arg(f.Qualifier))
	}
	return strings.Join(conds, " AND ")
}

func (b *sqlBuilder) filterCondition(f discovery.Filter) string {
	var cond string
	switch f.Field {
	case discovery.FieldResourceID:
		cond = "TRUE"
		if f.Value != "*" {
			cond = "i.id = " + b.arg(f.Value)
		}
	case discovery.FieldResourceType:
		cond = "TRUE"
		if f.Value != "*" {
			cond = "lower(i.object_type) = lower(" + b.arg(f.Value) + ")"
		}
	case discovery.FieldEntityType:
		entity, _ := item.ParseField(item.EntityTypeField)
		cond = "SELECT 1 FROM metadata_value m WHERE " + b.fieldCondition(entity) + " AND m.place = 0"
		if f.Value != "*" {
			cond += " AND m.value = " + b.arg(f.Value)
		}
		cond = "EXISTS (" + cond + ")"
	default:
		field, ok := item.ParseField(f.Field)
		if !ok {
			cond = "FALSE"
			break
		}
		cond = "SELECT 1 FROM metadata_value m WHERE " + b.fieldCondition(field)
		if f.Value != "*" {
			v := b.arg(f.Value)
			cond += " AND (m.value = " + v + " OR m.authority = " + v + ")"
		}
		cond = "EXISTS (" + cond + ")"
	}
	if f.Negate {
		return "NOT (" + cond + ")"
	}
	return cond
}

// buildPageQuery translates a search query into SQL. Records without a
// value for the sort field sort last in either direction; ties keep
// insertion order.
func buildPageQuery(q discovery.Query, offset, limit int) (pageQuery, error) {
	filters, err := q.ParsedFilters()
	if err != nil {
		return pageQuery{}, err
	}

	b := &sqlBuilder{}
	var conds []string
	if q.ObjectType != "" {
		conds = append(conds, "i.object_type = "+b.arg(string(q.ObjectType)))
	}
	for _, f := range filters {
		conds = append(conds, b.filterCondition(f))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var pq pageQuery
	pq.Count = "SELECT count(*) FROM item i" + where
	pq.CountArgs = append([]any(nil), b.args...)

	order := "i.seq"
	if q.Sort != nil && q.Sort.Field != "" {
		if field, ok := item.ParseField(q.Sort.Field); ok {
			dir := "ASC"
			if q.Sort.Descending() {
				dir = "DESC"
			}
			first := "(SELECT m.value FROM metadata_value m WHERE " + b.fieldCondition(field) +
				" ORDER BY m.schema_name, m.element, m.qualifier, m.place LIMIT 1)"
			order = first + " " + dir + " NULLS LAST, i.seq"
		}
	}

	pq.Page = "SELECT i.id, i.object_type FROM item i" + where + " ORDER BY " + order
	if limit > 0 {
		pq.Page += " LIMIT " + b.arg(limit)
	}
	pq.Page += " OFFSET " + b.arg(offset)
	pq.Args = b.args
	return pq, nil
}
