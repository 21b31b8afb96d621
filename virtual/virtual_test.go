package virtual

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lehigh-university-libraries/refer/item"
)

func TestParse(t *testing.T) {
	tests := []struct {
		expr   string
		want   Call
		wantOK bool
	}{
		{
			expr:   "virtual.id",
			want:   Call{Expr: "virtual.id", Name: "id", Params: []string{}},
			wantOK: true,
		},
		{
			expr:   "virtual.date.dc-date-issued.yyyy",
			want:   Call{Expr: "virtual.date.dc-date-issued.yyyy", Name: "date", Params: []string{"dc-date-issued", "yyyy"}},
			wantOK: true,
		},
		{
			expr:   "virtual.date(dc.date.issued, dd/MM/yyyy)",
			want:   Call{Expr: "virtual.date(dc.date.issued, dd/MM/yyyy)", Name: "date", Params: []string{"dc.date.issued", "dd/MM/yyyy"}},
			wantOK: true,
		},
		{
			expr:   "virtual.id()",
			want:   Call{Expr: "virtual.id()", Name: "id"},
			wantOK: true,
		},
		{expr: "dc.title", wantOK: false},
		{expr: "virtual.", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, ok := Parse(tt.expr, "virtual.")
			if ok != tt.wantOK {
				t.Fatalf("Parse ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFieldName(t *testing.T) {
	if got := FieldName("dc-date-issued"); got != "dc.date.issued" {
		t.Errorf("FieldName(dashed) = %q", got)
	}
	if got := FieldName("dc.date.issued"); got != "dc.date.issued" {
		t.Errorf("FieldName(dotted) = %q", got)
	}
}

func TestMapper(t *testing.T) {
	m := NewMapper()
	if m.Contains("id") {
		t.Fatal("empty mapper contains id")
	}
	m.Register("upper", FieldFunc(func(_ context.Context, it *item.Item, _ Call) []string {
		return []string{it.ID}
	}))
	if !m.Contains("upper") {
		t.Error("mapper does not contain registered field")
	}
	if diff := cmp.Diff([]string{"alternative", "authority", "date", "entity", "id", "name"}, Default().Names()); diff != "" {
		t.Errorf("default names mismatch (-want +got):\n%s", diff)
	}
}

func TestBuiltins(t *testing.T) {
	it := item.New("pub-1")
	mustAdd := func(field, v, authority string) {
		t.Helper()
		if err := it.Add(field, v, authority); err != nil {
			t.Fatal(err)
		}
	}
	mustAdd("relationship.type", "Publication", "")
	mustAdd("dc.date.issued", "2020-04-01", "")
	mustAdd("dc.date.issued", "not a date", "")
	mustAdd("dc.date.issued", item.PlaceholderParentMetadataValue, "")
	mustAdd("dc.title.alternative", "Alt", "")
	mustAdd("dc.contributor.author", "John Smith", "person-1")
	mustAdd("dc.contributor.author", "Walter White", "")
	mustAdd("dc.contributor.editor", "Roe, Rick; Poe, Edgar", "")
	mustAdd("dc.contributor.editor", "", "")
	mustAdd("dc.contributor.editor", "Moe, Max", "")

	tests := []struct {
		expr string
		want []string
	}{
		{expr: "virtual.id", want: []string{"pub-1"}},
		{expr: "virtual.entity", want: []string{"Publication"}},
		{expr: "virtual.date.dc-date-issued.yyyy", want: []string{"2020", item.PlaceholderParentMetadataValue, item.PlaceholderParentMetadataValue}},
		{expr: "virtual.date(dc.date.issued)", want: []string{"2020-04-01", item.PlaceholderParentMetadataValue, item.PlaceholderParentMetadataValue}},
		{expr: "virtual.date", want: nil},
		{expr: "virtual.alternative.dc-title.dc-title-alternative", want: []string{"Alt"}},
		{expr: "virtual.alternative.dc-subject", want: nil},
		{expr: "virtual.authority.dc-contributor-author", want: []string{"person-1", item.PlaceholderParentMetadataValue}},
		{expr: "virtual.name.dc-contributor-author", want: []string{"Smith, John", "White, Walter"}},
		{expr: "virtual.name(dc.contributor.author, initials)", want: []string{"J.", "W."}},
		{expr: "virtual.name.dc-contributor-author.family", want: []string{"Smith", "White"}},
		{expr: "virtual.name.dc-contributor-editor.direct", want: []string{"Rick Roe; Edgar Poe", item.PlaceholderParentMetadataValue, "Max Moe"}},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			call, ok := Parse(tt.expr, "virtual.")
			if !ok {
				t.Fatalf("Parse(%q) failed", tt.expr)
			}
			f, ok := Default().Get(call.Name)
			if !ok {
				t.Fatalf("builtin %q not registered", call.Name)
			}
			if diff := cmp.Diff(tt.want, f.Values(ctx, it, call)); diff != "" {
				t.Errorf("Values mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
