// Package virtual provides computed metadata fields for templates.
//
// A virtual field is referenced from a template as
// @virtual.<name>.<param>.<param>@ or @virtual.<name>(<param>,<param>)@.
// Dotted parameters cannot contain dots themselves, so metadata field names
// are written with dashes (dc-date-issued) and converted back by FieldParam.
package virtual

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/refer/item"
)

// Call is a parsed virtual-field invocation.
type Call struct {
	// Expr is the whole field expression, prefix included.
	Expr   string
	Name   string
	Params []string
}

// Param returns the i-th parameter or "".
func (c Call) Param(i int) string {
	if i < 0 || i >= len(c.Params) {
		return ""
	}
	return c.Params[i]
}

// FieldParam returns the i-th parameter as a metadata field name.
func (c Call) FieldParam(i int) string {
	return FieldName(c.Param(i))
}

// FieldName converts a dashed parameter (dc-date-issued) to a field name
// (dc.date.issued). Parameters that already contain dots are kept.
func FieldName(param string) string {
	if strings.Contains(param, ".") {
		return param
	}
	return strings.ReplaceAll(param, "-", ".")
}

// Parse splits a field expression that starts with prefix into a Call.
// The boolean is false when expr does not start with prefix or names no field.
func Parse(expr, prefix string) (Call, bool) {
	if !strings.HasPrefix(expr, prefix) {
		return Call{}, false
	}
	rest := strings.TrimPrefix(expr, prefix)

	call := Call{Expr: expr}
	if open := strings.Index(rest, "("); open >= 0 && strings.HasSuffix(rest, ")") {
		call.Name = rest[:open]
		inner := rest[open+1 : len(rest)-1]
		if strings.TrimSpace(inner) != "" {
			for _, p := range strings.Split(inner, ",") {
				call.Params = append(call.Params, strings.TrimSpace(p))
			}
		}
	} else {
		parts := strings.Split(rest, ".")
		call.Name = parts[0]
		call.Params = parts[1:]
	}

	if call.Name == "" {
		return Call{}, false
	}
	return call, true
}

// Field computes the values of a virtual field for a record.
type Field interface {
	Values(ctx context.Context, it *item.Item, call Call) []string
}

// FieldFunc adapts a function to the Field interface.
type FieldFunc func(ctx context.Context, it *item.Item, call Call) []string

// Values calls f.
func (f FieldFunc) Values(ctx context.Context, it *item.Item, call Call) []string {
	return f(ctx, it, call)
}

// Resolver looks virtual fields up by name.
type Resolver interface {
	Get(name string) (Field, bool)
}

// Mapper is a registry of virtual fields keyed by name.
type Mapper struct {
	mu     sync.RWMutex
	fields map[string]Field
}

// NewMapper creates an empty mapper.
func NewMapper() *Mapper {
	return &Mapper{
		fields: make(map[string]Field),
	}
}

// Register adds or replaces a virtual field.
func (m *Mapper) Register(name string, f Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[name] = f
}

// Get retrieves a virtual field by name.
func (m *Mapper) Get(name string) (Field, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.fields[name]
	return f, ok
}

// Contains reports whether a virtual field is registered.
func (m *Mapper) Contains(name string) bool {
	_, ok := m.Get(name)
	return ok
}

// Names returns the registered names, sorted.
func (m *Mapper) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.fields))
	for name := range m.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var defaultMapper = NewBuiltinMapper()

// Default returns the process-wide mapper holding the builtin fields.
func Default() *Mapper {
	return defaultMapper
}

// Register adds a virtual field to the default mapper.
func Register(name string, f Field) {
	defaultMapper.Register(name, f)
}
