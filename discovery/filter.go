package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/refer/item"
)

// Reserved filter fields.
const (
	FieldResourceID   = "search.resourceid"
	FieldEntityType   = "search.entitytype"
	FieldResourceType = "search.resourcetype"
)

// ErrInvalidFilter is returned for filter queries that do not parse.
var ErrInvalidFilter = errors.New("invalid filter query")

// Filter is a parsed "[-]field:value" filter query.
//
// Non reserved fields match records holding value either as a metadata
// value or as an authority of that field. A value of "*" matches any value.
type Filter struct {
	Field  string
	Value  string
	Negate bool
}

// ParseFilter parses a filter query.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	var f Filter
	if strings.HasPrefix(s, "-") {
		f.Negate = true
		s = s[1:]
	}
	field, val, ok := strings.Cut(s, ":")
	field = strings.TrimSpace(field)
	val = strings.TrimSpace(val)
	if !ok || field == "" || val == "" {
		return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
	if len(val) >= 2 && strings.HasPrefix(val, `"`) && strings.HasSuffix(val, `"`) {
		unquoted, err := strconv.Unquote(val)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, s)
		}
		val = unquoted
	}
	f.Field = field
	f.Value = val
	return f, nil
}

// Match reports whether the record satisfies the filter.
func (f Filter) Match(it *item.Item) bool {
	return f.match(it) != f.Negate
}

func (f Filter) match(it *item.Item) bool {
	switch f.Field {
	case FieldResourceID:
		return f.Value == "*" || it.ID == f.Value
	case FieldEntityType:
		et := it.EntityType()
		return (f.Value == "*" && et != "") || et == f.Value
	case FieldResourceType:
		return f.Value == "*" || strings.EqualFold(string(it.Type), f.Value)
	}
	for _, mv := range it.MetadataByString(f.Field) {
		if f.Value == "*" || mv.Value == f.Value || mv.Authority == f.Value {
			return true
		}
	}
	return false
}

// String renders the filter back to query form.
func (f Filter) String() string {
	prefix := ""
	if f.Negate {
		prefix = "-"
	}
	v := f.Value
	if strings.ContainsAny(v, " :\"") {
		v = strconv.Quote(v)
	}
	return prefix + f.Field + ":" + v
}

// FormatFilter substitutes {n} placeholders in a filter template with the
// n-th argument. Text between single quotes is literal and '' is a quote.
// Placeholders without a matching argument are kept as written.
func FormatFilter(tpl string, args ...any) string {
	var sb strings.Builder
	quoted := false
	for i := 0; i < len(tpl); i++ {
		c := tpl[i]
		switch {
		case c == '\'':
			if i+1 < len(tpl) && tpl[i+1] == '\'' {
				sb.WriteByte('\'')
				i++
				continue
			}
			quoted = !quoted
		case c == '{' && !quoted:
			end := strings.IndexByte(tpl[i:], '}')
			if end < 0 {
				sb.WriteString(tpl[i:])
				return sb.String()
			}
			n, err := strconv.Atoi(strings.TrimSpace(tpl[i+1 : i+end]))
			if err != nil || n < 0 || n >= len(args) {
				sb.WriteString(tpl[i : i+end+1])
			} else {
				fmt.Fprint(&sb, args[n])
			}
			i += end
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
