package pgstore

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"

	"github.com/lehigh-university-libraries/refer/discovery"
	"github.com/lehigh-university-libraries/refer/item"
)

func TestBuildPageQuery(t *testing.T) {
	tests := []struct {
		name      string
		q         discovery.Query
		offset    int
		limit     int
		wantCount string
		wantPage  string
		wantArgs  []any
		countArgs int
	}{
		{
			name:      "no filters",
			q:         discovery.Query{},
			limit:     20,
			wantCount: "SELECT count(*) FROM item i",
			wantPage:  "SELECT i.id, i.object_type FROM item i ORDER BY i.seq LIMIT $1 OFFSET $2",
			wantArgs:  []any{20, 0},
		},
		{
			name: "relation query",
			q: discovery.Query{
				ObjectType: item.TypeItem,
				Filters:    []string{"dc.contributor.author:person-1"},
			},
			offset: 40,
			limit:  20,
			wantCount: "SELECT count(*) FROM item i WHERE i.object_type = $1 AND " +
				"EXISTS (SELECT 1 FROM metadata_value m WHERE m.item_id = i.id AND m.schema_name = $2 AND m.element = $3 AND m.qualifier = $4 " +
				"AND (m.value = $5 OR m.authority = $5))",
			wantPage: "SELECT i.id, i.object_type FROM item i WHERE i.object_type = $1 AND " +
				"EXISTS (SELECT 1 FROM metadata_value m WHERE m.item_id = i.id AND m.schema_name = $2 AND m.element = $3 AND m.qualifier = $4 " +
				"AND (m.value = $5 OR m.authority = $5)) ORDER BY i.seq LIMIT $6 OFFSET $7",
			wantArgs:  []any{"item", "dc", "contributor", "author", "person-1", 20, 40},
			countArgs: 5,
		},
		{
			name: "reserved fields",
			q: discovery.Query{
				Filters: []string{"-search.entitytype:Person", "search.resourceid:*", "search.resourcetype:Item"},
			},
			wantCount: "SELECT count(*) FROM item i WHERE " +
				"NOT (EXISTS (SELECT 1 FROM metadata_value m WHERE m.item_id = i.id AND m.schema_name = $1 AND m.element = $2 AND m.qualifier = '' AND m.place = 0 AND m.value = $3)) " +
				"AND TRUE AND lower(i.object_type) = lower($4)",
			wantPage: "SELECT i.id, i.object_type FROM item i WHERE " +
				"NOT (EXISTS (SELECT 1 FROM metadata_value m WHERE m.item_id = i.id AND m.schema_name = $1 AND m.element = $2 AND m.qualifier = '' AND m.place = 0 AND m.value = $3)) " +
				"AND TRUE AND lower(i.object_type) = lower($4) ORDER BY i.seq OFFSET $5",
			wantArgs:  []any{"relationship", "type", "Person", "Item", 0},
			countArgs: 4,
		},
		{
			name: "wildcards and sort",
			q: discovery.Query{
				Filters: []string{"dc.subject.*:*"},
				Sort:    &discovery.Sort{Field: "dc.date.issued", Order: "desc"},
			},
			limit:     5,
			wantCount: "SELECT count(*) FROM item i WHERE EXISTS (SELECT 1 FROM metadata_value m WHERE m.item_id = i.id AND m.schema_name = $1 AND m.element = $2)",
			wantPage: "SELECT i.id, i.object_type FROM item i WHERE EXISTS (SELECT 1 FROM metadata_value m WHERE m.item_id = i.id AND m.schema_name = $1 AND m.element = $2) " +
				"ORDER BY (SELECT m.value FROM metadata_value m WHERE m.item_id = i.id AND m.schema_name = $3 AND m.element = $4 AND m.qualifier = $5 " +
				"ORDER BY m.schema_name, m.element, m.qualifier, m.place LIMIT 1) DESC NULLS LAST, i.seq LIMIT $6 OFFSET $7",
			wantArgs:  []any{"dc", "subject", "dc", "date", "issued", 5, 0},
			countArgs: 2,
		},
		{
			name:      "unparseable field",
			q:         discovery.Query{Filters: []string{"title:x"}},
			wantCount: "SELECT count(*) FROM item i WHERE FALSE",
			wantPage:  "SELECT i.id, i.object_type FROM item i WHERE FALSE ORDER BY i.seq OFFSET $1",
			wantArgs:  []any{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPageQuery(tt.q, tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("buildPageQuery error = %v", err)
			}
			if diff := cmp.Diff(tt.wantCount, got.Count); diff != "" {
				t.Errorf("count SQL mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantPage, got.Page); diff != "" {
				t.Errorf("page SQL mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantArgs, got.Args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
			if len(got.CountArgs) != tt.countArgs {
				t.Errorf("count args = %v, want %d", got.CountArgs, tt.countArgs)
			}
		})
	}
}

func TestBuildPageQueryInvalidFilter(t *testing.T) {
	_, err := buildPageQuery(discovery.Query{Filters: []string{"nofield"}}, 0, 0)
	if !errors.Is(err, discovery.ErrInvalidFilter) {
		t.Errorf("error = %v, want ErrInvalidFilter", err)
	}
}

func TestSchemaError(t *testing.T) {
	undefined := &pgconn.PgError{Code: pgerrcode.UndefinedTable, Message: `relation "item" does not exist`}
	err := schemaError(undefined)
	if !errors.Is(err, ErrSchemaMissing) {
		t.Errorf("schemaError(undefined table) = %v, want ErrSchemaMissing", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Error("schemaError dropped the postgres error")
	}

	other := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	if err := schemaError(other); errors.Is(err, ErrSchemaMissing) {
		t.Errorf("schemaError(unique violation) = %v", err)
	}
	if err := schemaError(nil); err != nil {
		t.Errorf("schemaError(nil) = %v", err)
	}
}
