package virtual

import (
	"context"
	"strings"

	"github.com/lehigh-university-libraries/refer/item"
	"github.com/lehigh-university-libraries/refer/value"
)

const defaultDatePattern = "yyyy-MM-dd"

// NewBuiltinMapper creates a mapper holding the builtin fields:
//
//	id           record identifier
//	entity       record entity type
//	date         @virtual.date.<field>.<pattern>@, dates reformatted
//	alternative  @virtual.alternative.<field>.<field>...@, first field with values
//	authority    @virtual.authority.<field>@, authority keys of a field
//	name         @virtual.name.<field>.<form>@, personal names reformatted
//	             (inverted, direct, family, given, initials)
//
// Fields derived from a metadata field return one entry per metadata value.
// Values with nothing to emit become item.PlaceholderParentMetadataValue.
func NewBuiltinMapper() *Mapper {
	m := NewMapper()
	m.Register("id", FieldFunc(idField))
	m.Register("entity", FieldFunc(entityField))
	m.Register("date", FieldFunc(dateField))
	m.Register("alternative", FieldFunc(alternativeField))
	m.Register("authority", FieldFunc(authorityField))
	m.Register("name", FieldFunc(nameField))
	return m
}

func idField(_ context.Context, it *item.Item, _ Call) []string {
	if it.ID == "" {
		return nil
	}
	return []string{it.ID}
}

func entityField(_ context.Context, it *item.Item, _ Call) []string {
	if et := it.EntityType(); et != "" {
		return []string{et}
	}
	return nil
}

func dateField(_ context.Context, it *item.Item, call Call) []string {
	field := call.FieldParam(0)
	if field == "" {
		return nil
	}
	pattern := call.Param(1)
	if pattern == "" {
		pattern = defaultDatePattern
	}

	values := it.Values(field)
	if len(values) == 0 {
		return nil
	}
	result := make([]string, len(values))
	for i, raw := range values {
		d := value.ParseDate(raw)
		if raw == item.PlaceholderParentMetadataValue || d.IsZero() {
			result[i] = item.PlaceholderParentMetadataValue
			continue
		}
		result[i] = d.Format(pattern)
	}
	return result
}

func alternativeField(_ context.Context, it *item.Item, call Call) []string {
	for i := range call.Params {
		if values := it.Values(call.FieldParam(i)); len(values) > 0 {
			return values
		}
	}
	return nil
}

func authorityField(_ context.Context, it *item.Item, call Call) []string {
	mvs := it.MetadataByString(call.FieldParam(0))
	if len(mvs) == 0 {
		return nil
	}
	result := make([]string, len(mvs))
	for i, mv := range mvs {
		result[i] = mv.Authority
		if mv.Authority == "" {
			result[i] = item.PlaceholderParentMetadataValue
		}
	}
	return result
}

// nameField formats every value of a field as names. A value holding
// several names yields a single "; " separated entry, so entries stay
// aligned with the metadata values.
func nameField(_ context.Context, it *item.Item, call Call) []string {
	form := strings.ToLower(call.Param(1))
	values := it.Values(call.FieldParam(0))
	if len(values) == 0 {
		return nil
	}
	result := make([]string, len(values))
	for i, raw := range values {
		result[i] = item.PlaceholderParentMetadataValue
		if raw == item.PlaceholderParentMetadataValue {
			continue
		}
		var names []string
		for _, name := range value.SplitNames(raw) {
			if n, ok := value.ParseName(name); ok {
				names = append(names, formatName(n, form))
			}
		}
		if len(names) > 0 {
			result[i] = strings.Join(names, "; ")
		}
	}
	return result
}

func formatName(n value.Name, form string) string {
	switch form {
	case "direct":
		return n.Direct()
	case "family":
		return n.Surname()
	case "given":
		return strings.TrimSpace(n.Given + " " + n.Middle)
	case "initials":
		return n.Initials()
	default:
		return n.Inverted()
	}
}
