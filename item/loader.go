package item

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/refer/value"
)

// LoadFile loads a records file into a new MemoryStore. The format follows
// the extension: .json is JSON, anything else is YAML.
//
// The document holds a list of records under "items":
//
//	items:
//	  - id: 0b6e1f1c-2b1d-4a47-9c61-0d7c1f1d9d11
//	    type: item
//	    entity_type: Person
//	    metadata:
//	      dc.title: John Smith
//	      person.affiliation.name: [4Science, University]
//	      dc.contributor.author:
//	        - value: Walter White
//	          authority: 7d1f...
func LoadFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading records file: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Load(bytes.NewReader(data), format)
}

// Load reads a records document in the given format ("yaml" or "json").
func Load(r io.Reader, format string) (*MemoryStore, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	var doc any
	switch strings.ToLower(format) {
	case "json":
		var v structpb.Value
		if err := protojson.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("parsing records JSON: %w", err)
		}
		doc = v.AsInterface()
	case "yaml", "yml", "":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing records YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown records format: %s", format)
	}

	items, err := decodeDocument(doc)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(items...), nil
}

func decodeDocument(doc any) ([]*Item, error) {
	var entries []any
	switch d := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		entries = d
	case map[string]any:
		list, ok := d["items"].([]any)
		if !ok && d["items"] != nil {
			return nil, fmt.Errorf("records document: items must be a list")
		}
		entries = list
	default:
		return nil, fmt.Errorf("records document: unexpected %T at top level", doc)
	}

	items := make([]*Item, 0, len(entries))
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("record %d: expected a mapping", i)
		}
		it, err := decodeItem(m)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, it)
	}
	return items, nil
}

func decodeItem(m map[string]any) (*Item, error) {
	id := strings.TrimSpace(value.Text(m["id"]))
	if id == "" {
		return nil, fmt.Errorf("missing id")
	}

	it := New(id)
	if t := strings.TrimSpace(value.Text(m["type"])); t != "" {
		it.Type = ObjectType(strings.ToLower(t))
	}

	if et := strings.TrimSpace(value.Text(m["entity_type"])); et != "" {
		if err := it.Add(EntityTypeField, et, ""); err != nil {
			return nil, err
		}
	}

	if m["metadata"] == nil {
		return it, nil
	}
	metadata, ok := m["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("metadata must be a mapping")
	}

	fields := make([]string, 0, len(metadata))
	for field := range metadata {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		raw := metadata[field]
		list, ok := raw.([]any)
		if !ok {
			list = []any{raw}
		}
		for _, entry := range list {
			mv, ok := decodeValue(entry)
			if !ok {
				continue
			}
			if err := it.AddValue(field, mv); err != nil {
				return nil, err
			}
		}
	}
	return it, nil
}

func decodeValue(entry any) (MetadataValue, bool) {
	if m, ok := entry.(map[string]any); ok {
		mv := MetadataValue{
			Value:     value.Text(m["value"]),
			Authority: strings.TrimSpace(value.Text(m["authority"])),
			Language:  strings.TrimSpace(value.Text(m["language"])),
		}
		return mv, mv.Value != ""
	}
	texts := value.Texts(entry)
	if len(texts) == 0 {
		return MetadataValue{}, false
	}
	return MetadataValue{Value: texts[0]}, true
}
