// Package crosswalk renders records through line-oriented text templates.
//
// A template line holds at most one field marker, @<expression>@. Literal
// text before and after the marker is kept around every substituted value;
// a field with several values yields one output line per value and a field
// with none yields no line. Marker pairs delimit metadata groups, rendered
// once per value of the group field, and relation groups, rendered once per
// related record.
package crosswalk

import (
	"regexp"
	"strings"

	"github.com/lehigh-university-libraries/refer/virtual"
)

// Kind classifies a template line.
type Kind int

const (
	Literal Kind = iota
	MetadataField
	VirtualField
	MetadataGroupStart
	MetadataGroupEnd
	RelationGroupStart
	RelationGroupEnd
)

var kindNames = map[Kind]string{
	Literal:            "literal",
	MetadataField:      "metadata",
	VirtualField:       "virtual",
	MetadataGroupStart: "group-start",
	MetadataGroupEnd:   "group-end",
	RelationGroupStart: "relation-start",
	RelationGroupEnd:   "relation-end",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

var fieldPattern = regexp.MustCompile(`@[a-zA-Z0-9\-.*]+(\(.*\))?@`)

// Line is one parsed template line.
type Line struct {
	Before string
	After  string
	// Field is the marker expression without its @ delimiters, empty for
	// literal lines.
	Field string
	Kind  Kind
	// Group is the group field of a metadata group marker or the relation
	// name of a relation group marker.
	Group string
	// Virtual is the handler name of a virtual field and Call its parsed
	// invocation.
	Virtual string
	Call    virtual.Call
}

// HasValue reports whether the line substitutes field values.
func (l Line) HasValue() bool {
	return l.Kind == MetadataField || l.Kind == VirtualField
}

// String renders the line back to template form.
func (l Line) String() string {
	if l.Field == "" {
		return l.Before
	}
	return l.Before + "@" + l.Field + "@" + l.After
}

// Vocabulary names the reserved marker expressions.
//
// With the defaults a metadata group is written
// @group.<field>.start@ ... @group.<field>.end@ (or @group.end@), a relation
// group @relation.<name>.start@ ... @relation.<name>.end@ and a virtual field
// @virtual.<name>...@.
type Vocabulary struct {
	VirtualPrefix  string `mapstructure:"virtual_prefix" yaml:"virtual_prefix"`
	GroupPrefix    string `mapstructure:"group_prefix" yaml:"group_prefix"`
	RelationPrefix string `mapstructure:"relation_prefix" yaml:"relation_prefix"`
	StartSuffix    string `mapstructure:"start_suffix" yaml:"start_suffix"`
	EndSuffix      string `mapstructure:"end_suffix" yaml:"end_suffix"`
}

// DefaultVocabulary is used for every empty Vocabulary entry.
var DefaultVocabulary = Vocabulary{
	VirtualPrefix:  "virtual.",
	GroupPrefix:    "group.",
	RelationPrefix: "relation.",
	StartSuffix:    ".start",
	EndSuffix:      ".end",
}

func (v Vocabulary) withDefaults() Vocabulary {
	if v.VirtualPrefix == "" {
		v.VirtualPrefix = DefaultVocabulary.VirtualPrefix
	}
	if v.GroupPrefix == "" {
		v.GroupPrefix = DefaultVocabulary.GroupPrefix
	}
	if v.RelationPrefix == "" {
		v.RelationPrefix = DefaultVocabulary.RelationPrefix
	}
	if v.StartSuffix == "" {
		v.StartSuffix = DefaultVocabulary.StartSuffix
	}
	if v.EndSuffix == "" {
		v.EndSuffix = DefaultVocabulary.EndSuffix
	}
	return v
}

// parseLine splits a raw template line around its first field marker and
// classifies it.
func parseLine(raw string, vocab Vocabulary) Line {
	loc := fieldPattern.FindStringIndex(raw)
	if loc == nil {
		return Line{Before: raw, Kind: Literal}
	}

	line := Line{
		Before: raw[:loc[0]],
		After:  raw[loc[1]:],
		Field:  raw[loc[0]+1 : loc[1]-1],
		Kind:   MetadataField,
	}

	if kind, group, ok := vocab.marker(line.Field, vocab.GroupPrefix, MetadataGroupStart, MetadataGroupEnd); ok {
		line.Kind, line.Group = kind, group
		return line
	}
	if kind, group, ok := vocab.marker(line.Field, vocab.RelationPrefix, RelationGroupStart, RelationGroupEnd); ok {
		line.Kind, line.Group = kind, group
		return line
	}
	if strings.HasPrefix(line.Field, vocab.VirtualPrefix) {
		line.Kind = VirtualField
		if call, ok := virtual.Parse(line.Field, vocab.VirtualPrefix); ok {
			line.Virtual = call.Name
			line.Call = call
		}
	}
	return line
}

// marker matches <prefix><name><start> and <prefix><name><end>. The bare
// <prefix minus dot><end> form is an end marker closing any open group.
func (v Vocabulary) marker(field, prefix string, start, end Kind) (Kind, string, bool) {
	if field == strings.TrimSuffix(prefix, ".")+v.EndSuffix {
		return end, "", true
	}
	if !strings.HasPrefix(field, prefix) {
		return 0, "", false
	}
	rest := strings.TrimPrefix(field, prefix)
	switch {
	case strings.HasSuffix(rest, v.StartSuffix):
		return start, strings.TrimSuffix(rest, v.StartSuffix), true
	case strings.HasSuffix(rest, v.EndSuffix):
		return end, strings.TrimSuffix(rest, v.EndSuffix), true
	}
	return 0, "", false
}
