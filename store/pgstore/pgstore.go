// Package pgstore keeps records in PostgreSQL. A Store serves single
// record lookups for dissemination and search pages for relation groups.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/lehigh-university-libraries/refer/discovery"
	"github.com/lehigh-university-libraries/refer/item"
)

// Schema creates the tables of the store.
const Schema = `
CREATE TABLE IF NOT EXISTS item (
	id          text PRIMARY KEY,
	object_type text NOT NULL DEFAULT 'item',
	seq         bigserial
);

CREATE TABLE IF NOT EXISTS metadata_value (
	item_id     text NOT NULL REFERENCES item (id) ON DELETE CASCADE,
	schema_name text NOT NULL,
	element     text NOT NULL,
	qualifier   text NOT NULL DEFAULT '',
	language    text NOT NULL DEFAULT '',
	value       text NOT NULL,
	authority   text NOT NULL DEFAULT '',
	place       integer NOT NULL,
	PRIMARY KEY (item_id, schema_name, element, qualifier, place)
);

CREATE INDEX IF NOT EXISTS metadata_value_lookup
	ON metadata_value (schema_name, element, qualifier, value);
CREATE INDEX IF NOT EXISTS metadata_value_authority
	ON metadata_value (authority) WHERE authority <> '';
`

var metadataColumns = []string{
	"item_id", "schema_name", "element", "qualifier", "language", "value", "authority", "place",
}

// Queryer is the subset of *pgxpool.Pool and pgx.Tx the store uses.
type Queryer interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store reads and writes records in PostgreSQL.
type Store struct {
	db   Queryer
	pool *pgxpool.Pool
}

var (
	_ item.Store      = (*Store)(nil)
	_ discovery.Index = (*Store)(nil)
)

// ErrSchemaMissing reports that the store tables do not exist yet.
var ErrSchemaMissing = errors.New("store schema missing, run refer import --migrate")

// schemaError marks undefined table errors with ErrSchemaMissing.
func schemaError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("%w: %w", ErrSchemaMissing, err)
	}
	return err
}

// New creates a store over an open connection or transaction.
func New(db Queryer) *Store {
	return &Store{db: db}
}

// Open connects a pool to dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// Close releases the pool opened by Open.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Find implements item.Store.
func (s *Store) Find(ctx context.Context, id string) (*item.Item, error) {
	var objectType string
	err := s.db.QueryRow(ctx, `SELECT object_type FROM item WHERE id = $1`, id).Scan(&objectType)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", item.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("finding item %s: %w", id, schemaError(err))
	}

	it := &item.Item{ID: id, Type: item.ObjectType(objectType)}
	if err := s.loadMetadata(ctx, map[string]*item.Item{id: it}); err != nil {
		return nil, err
	}
	return it, nil
}

// Page implements discovery.Index.
func (s *Store) Page(ctx context.Context, q discovery.Query, offset, limit int) ([]*item.Item, int, error) {
	pq, err := buildPageQuery(q, offset, limit)
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := s.db.QueryRow(ctx, pq.Count, pq.CountArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", schemaError(err))
	}
	if total == 0 || offset >= total {
		return nil, total, nil
	}

	rows, err := s.db.Query(ctx, pq.Page, pq.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("querying items: %w", err)
	}
	var page []*item.Item
	byID := make(map[string]*item.Item)
	for rows.Next() {
		var id, objectType string
		if err := rows.Scan(&id, &objectType); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scanning item: %w", err)
		}
		it := &item.Item{ID: id, Type: item.ObjectType(objectType)}
		page = append(page, it)
		byID[id] = it
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("querying items: %w", err)
	}

	if err := s.loadMetadata(ctx, byID); err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

func (s *Store) loadMetadata(ctx context.Context, items map[string]*item.Item) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}

	rows, err := s.db.Query(ctx, `
		SELECT item_id, schema_name, element, qualifier, language, value, authority, place
		FROM metadata_value
		WHERE item_id = ANY($1)
		ORDER BY item_id, schema_name, element, qualifier, place`, ids)
	if err != nil {
		return fmt.Errorf("querying metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var mv item.MetadataValue
		if err := rows.Scan(&id, &mv.Schema, &mv.Element, &mv.Qualifier, &mv.Language, &mv.Value, &mv.Authority, &mv.Place); err != nil {
			return fmt.Errorf("scanning metadata: %w", err)
		}
		if it, ok := items[id]; ok {
			it.Metadata = append(it.Metadata, mv)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("querying metadata: %w", err)
	}
	return nil
}

// Save inserts or replaces a record with all its metadata.
func (s *Store) Save(ctx context.Context, it *item.Item) error {
	if it.ID == "" {
		return errors.New("saving item: missing id")
	}
	objectType := it.Type
	if objectType == "" {
		objectType = item.TypeItem
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("saving item %s: %w", it.ID, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO item (id, object_type) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET object_type = EXCLUDED.object_type`,
		it.ID, string(objectType),
	); err != nil {
		return fmt.Errorf("saving item %s: %w", it.ID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM metadata_value WHERE item_id = $1`, it.ID); err != nil {
		return fmt.Errorf("saving item %s: %w", it.ID, err)
	}

	rows := make([][]interface{}, 0, len(it.Metadata))
	for _, mv := range it.Metadata {
		rows = append(rows, []interface{}{
			it.ID, mv.Schema, mv.Element, mv.Qualifier, mv.Language, mv.Value, mv.Authority, mv.Place,
		})
	}
	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"metadata_value"}, metadataColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("saving metadata of %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("saving item %s: %w", it.ID, err)
	}
	return nil
}

// Import saves every record in order and returns how many were saved.
func (s *Store) Import(ctx context.Context, items []*item.Item) (int, error) {
	for i, it := range items {
		if err := s.Save(ctx, it); err != nil {
			return i, err
		}
	}
	return len(items), nil
}
