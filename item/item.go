// Package item models repository records and their qualified metadata.
package item

import (
	"context"
	"errors"
	"strings"
)

// ObjectType identifies the kind of repository object a record is.
type ObjectType string

const (
	TypeItem       ObjectType = "item"
	TypeCollection ObjectType = "collection"
	TypeCommunity  ObjectType = "community"
	TypeBitstream  ObjectType = "bitstream"
)

const (
	// Any matches every schema, element or qualifier in a field expression.
	Any = "*"

	// EntityTypeField holds the entity type of a record (Person, Publication...).
	EntityTypeField = "relationship.type"

	// PlaceholderParentMetadataValue marks an empty position inside a
	// metadata group.
	PlaceholderParentMetadataValue = "#PLACEHOLDER_PARENT_METADATA_VALUE#"
)

// ErrNotFound is returned by a Store when no record has the requested ID.
var ErrNotFound = errors.New("item not found")

// Store retrieves records by identifier.
type Store interface {
	Find(ctx context.Context, id string) (*Item, error)
}

// MetadataValue is one value of a qualified metadata field.
type MetadataValue struct {
	Schema    string
	Element   string
	Qualifier string
	Language  string
	Value     string
	Authority string
	Place     int
}

// Field returns the dotted field name (e.g. "dc.contributor.author").
func (mv MetadataValue) Field() string {
	if mv.Qualifier == "" {
		return mv.Schema + "." + mv.Element
	}
	return mv.Schema + "." + mv.Element + "." + mv.Qualifier
}

// Item is a repository record.
type Item struct {
	ID       string
	Type     ObjectType
	Metadata []MetadataValue
}

// New creates an empty record of type item.
func New(id string) *Item {
	return &Item{ID: id, Type: TypeItem}
}

// Field is a parsed metadata field expression.
type Field struct {
	Schema    string
	Element   string
	Qualifier string
	// Qualified is false when the expression names no qualifier, which only
	// matches unqualified values.
	Qualified bool
}

// ParseField parses "schema.element[.qualifier]". Extra segments are ignored.
func ParseField(s string) (Field, bool) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Field{}, false
	}
	f := Field{Schema: parts[0], Element: parts[1]}
	if len(parts) > 2 {
		f.Qualifier = parts[2]
		f.Qualified = true
	}
	return f, true
}

// Matches reports whether mv belongs to the field.
func (f Field) Matches(mv MetadataValue) bool {
	if f.Schema != Any && f.Schema != mv.Schema {
		return false
	}
	if f.Element != Any && f.Element != mv.Element {
		return false
	}
	if !f.Qualified {
		return mv.Qualifier == ""
	}
	return f.Qualifier == Any || f.Qualifier == mv.Qualifier
}

// MetadataByString returns the values of a dotted field expression in
// record order. "*" is accepted for element and qualifier, languages are
// not filtered.
func (it *Item) MetadataByString(field string) []MetadataValue {
	if it == nil {
		return nil
	}
	f, ok := ParseField(field)
	if !ok {
		return nil
	}
	var result []MetadataValue
	for _, mv := range it.Metadata {
		if f.Matches(mv) {
			result = append(result, mv)
		}
	}
	return result
}

// Values returns the plain string values of a field.
func (it *Item) Values(field string) []string {
	mvs := it.MetadataByString(field)
	if len(mvs) == 0 {
		return nil
	}
	values := make([]string, len(mvs))
	for i, mv := range mvs {
		values[i] = mv.Value
	}
	return values
}

// MetadataFirstValue returns the first value of a field, or "".
func (it *Item) MetadataFirstValue(field string) string {
	mvs := it.MetadataByString(field)
	if len(mvs) == 0 {
		return ""
	}
	return mvs[0].Value
}

// EntityType returns the record's entity type, or "" when it has none.
func (it *Item) EntityType() string {
	return it.MetadataFirstValue(EntityTypeField)
}

// Add appends a value to a field.
func (it *Item) Add(field, value, authority string) error {
	return it.AddValue(field, MetadataValue{Value: value, Authority: authority})
}

// AddValue appends mv to a field. The field and the next place within it
// override whatever mv carries.
func (it *Item) AddValue(field string, mv MetadataValue) error {
	f, ok := ParseField(field)
	if !ok || !f.concrete() {
		return &InvalidFieldError{Field: field}
	}
	place := 0
	for _, existing := range it.Metadata {
		if existing.Schema == f.Schema && existing.Element == f.Element && existing.Qualifier == f.Qualifier {
			place++
		}
	}
	mv.Schema = f.Schema
	mv.Element = f.Element
	mv.Qualifier = f.Qualifier
	mv.Place = place
	it.Metadata = append(it.Metadata, mv)
	return nil
}

func (f Field) concrete() bool {
	return f.Schema != Any && f.Element != Any && f.Qualifier != Any
}

// InvalidFieldError reports a field expression that cannot hold values.
type InvalidFieldError struct {
	Field string
}

func (e *InvalidFieldError) Error() string {
	return "invalid metadata field: " + e.Field
}
