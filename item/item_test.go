package item

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newPublication(t *testing.T) *Item {
	t.Helper()
	it := New("pub-1")
	for _, kv := range [][3]string{
		{"dc.title", "First Publication", ""},
		{"dc.title.alternative", "Alt Title", ""},
		{"dc.contributor.author", "John Smith", "person-1"},
		{"dc.contributor.author", "Walter White", ""},
		{"dc.contributor.editor", "Jesse Pinkman", ""},
		{"relationship.type", "Publication", ""},
	} {
		if err := it.Add(kv[0], kv[1], kv[2]); err != nil {
			t.Fatalf("Add(%q) error = %v", kv[0], err)
		}
	}
	return it
}

func TestMetadataByString(t *testing.T) {
	it := newPublication(t)

	tests := []struct {
		field string
		want  []string
	}{
		{field: "dc.title", want: []string{"First Publication"}},
		{field: "dc.title.alternative", want: []string{"Alt Title"}},
		{field: "dc.title.*", want: []string{"First Publication", "Alt Title"}},
		{field: "dc.contributor.author", want: []string{"John Smith", "Walter White"}},
		{field: "dc.contributor.*", want: []string{"John Smith", "Walter White", "Jesse Pinkman"}},
		{field: "dc.contributor", want: nil},
		{field: "dc.date.issued", want: nil},
		{field: "title", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, it.Values(tt.field)); diff != "" {
				t.Errorf("Values(%q) mismatch (-want +got):\n%s", tt.field, diff)
			}
		})
	}
}

func TestAddAssignsPlaces(t *testing.T) {
	it := newPublication(t)
	authors := it.MetadataByString("dc.contributor.author")
	if len(authors) != 2 {
		t.Fatalf("got %d authors, want 2", len(authors))
	}
	if authors[0].Place != 0 || authors[1].Place != 1 {
		t.Errorf("places = %d,%d, want 0,1", authors[0].Place, authors[1].Place)
	}
	if authors[0].Authority != "person-1" {
		t.Errorf("authority = %q, want person-1", authors[0].Authority)
	}
	if got := it.EntityType(); got != "Publication" {
		t.Errorf("EntityType() = %q, want Publication", got)
	}

	var fieldErr *InvalidFieldError
	if err := it.Add("dc.*", "x", ""); !errors.As(err, &fieldErr) {
		t.Errorf("Add with wildcard error = %v, want InvalidFieldError", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	a, b := New("a"), New("b")
	store := NewMemoryStore(a, b)

	got, err := store.Find(ctx, "b")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if got != b {
		t.Errorf("Find returned %v, want b", got)
	}

	if _, err := store.Find(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Find(missing) error = %v, want ErrNotFound", err)
	}

	replacement := New("a")
	if err := store.Put(replacement); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	all := store.All()
	if len(all) != 2 || all[0] != replacement {
		t.Errorf("All() = %v, want replacement first", all)
	}

	var ids []string
	for it, err := range Lookup(ctx, store, []string{"b", "a", "zz", "b"}) {
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Lookup error = %v, want ErrNotFound", err)
			}
			break
		}
		ids = append(ids, it.ID)
	}
	if diff := cmp.Diff([]string{"b", "a"}, ids); diff != "" {
		t.Errorf("Lookup ids mismatch (-want +got):\n%s", diff)
	}
}

const recordsYAML = `items:
  - id: person-1
    entity_type: Person
    metadata:
      dc.title: John Smith
      person.affiliation.name: [4Science, University]
      oairecerif.affiliation.startDate:
        - "2020"
        - "#PLACEHOLDER_PARENT_METADATA_VALUE#"
  - id: pub-1
    type: Item
    metadata:
      dc.date.issued: 2020
      dc.contributor.author:
        - value: John Smith
          authority: person-1
          language: en
        - Walter White
  - id: col-1
    type: collection
`

const recordsJSON = `{"items": [
  {"id": "person-1", "entity_type": "Person",
   "metadata": {"dc.title": "John Smith", "person.affiliation.name": ["4Science", "University"]}},
  {"id": "pub-1", "metadata": {"dc.date.issued": 2020,
   "dc.contributor.author": [{"value": "John Smith", "authority": "person-1"}, "Walter White"]}}
]}`

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		format string
		doc    string
		count  int
	}{
		{name: "yaml", format: "yaml", doc: recordsYAML, count: 3},
		{name: "json", format: "json", doc: recordsJSON, count: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Load(strings.NewReader(tt.doc), tt.format)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if store.Len() != tt.count {
				t.Fatalf("Len() = %d, want %d", store.Len(), tt.count)
			}

			ctx := context.Background()
			person, err := store.Find(ctx, "person-1")
			if err != nil {
				t.Fatalf("Find(person-1) error = %v", err)
			}
			if person.EntityType() != "Person" {
				t.Errorf("EntityType() = %q, want Person", person.EntityType())
			}
			if diff := cmp.Diff([]string{"4Science", "University"}, person.Values("person.affiliation.name")); diff != "" {
				t.Errorf("affiliations mismatch (-want +got):\n%s", diff)
			}

			pub, err := store.Find(ctx, "pub-1")
			if err != nil {
				t.Fatalf("Find(pub-1) error = %v", err)
			}
			if pub.Type != TypeItem {
				t.Errorf("Type = %q, want item", pub.Type)
			}
			if got := pub.MetadataFirstValue("dc.date.issued"); got != "2020" {
				t.Errorf("dc.date.issued = %q, want 2020", got)
			}
			authors := pub.MetadataByString("dc.contributor.author")
			if len(authors) != 2 || authors[0].Authority != "person-1" || authors[1].Value != "Walter White" {
				t.Errorf("authors = %+v", authors)
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFile(missing) expected error")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("items:\n  - type: item\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil || !strings.Contains(err.Error(), "missing id") {
		t.Errorf("LoadFile(bad) error = %v, want missing id", err)
	}

	if _, err := Load(strings.NewReader("{}"), "xml"); err == nil {
		t.Error("Load with unknown format expected error")
	}
}
