// Package docs stores schemaless JSON documents in SQLite collections and
// implements a few queries over them.
package docs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// IDField holds a document's identifier.
const IDField = "_id"

// Document is one JSON object. Numbers read back from the database are float64.
type Document map[string]any

// Filter selects documents whose fields equal the given values. Keys may be
// dotted paths into nested objects. A scalar value also matches an array
// field that contains it. An empty Filter matches everything.
type Filter map[string]any

const schema = `CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       TEXT NOT NULL,
	UNIQUE (collection, id)
)`

// DB is a SQLite database of document collections.
type DB struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (db *DB) Close() error {
	if db == nil || db.sqlDB == nil {
		return nil
	}
	return db.sqlDB.Close()
}

// Collection returns a handle on the named collection. Collections exist
// implicitly once a document is inserted.
func (db *DB) Collection(name string) *Collection {
	return &Collection{sqlDB: db.sqlDB, name: name}
}

// Collection is a named set of documents.
type Collection struct {
	sqlDB *sql.DB
	name  string
}

func (c *Collection) Name() string { return c.name }

type row struct {
	seq int64
	doc Document
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (c *Collection) scan(ctx context.Context, q queryer, filter Filter) ([]row, error) {
	norm, err := normalize(filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	rows, err := q.QueryContext(ctx, `SELECT seq, body FROM documents WHERE collection = ? ORDER BY seq`, c.name)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c.name, err)
	}
	defer rows.Close()

	var out []row
	for rows.Next() {
		var (
			r    row
			body string
		)
		if err := rows.Scan(&r.seq, &body); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), &r.doc); err != nil {
			return nil, fmt.Errorf("decode document %d: %w", r.seq, err)
		}
		if matches(r.doc, norm) {
			out = append(out, r)
		}
	}
	return out, rows.Err()
}

// Find returns matching documents in insertion order.
func (c *Collection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	rows, err := c.scan(ctx, c.sqlDB, filter)
	if err != nil {
		return nil, err
	}
	out := make([]Document, len(rows))
	for i, r := range rows {
		out[i] = r.doc
	}
	return out, nil
}

// CountDocuments returns the number of matching documents.
func (c *Collection) CountDocuments(ctx context.Context, filter Filter) (int64, error) {
	if len(filter) == 0 {
		var n int64
		err := c.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE collection = ?`, c.name).Scan(&n)
		return n, err
	}
	rows, err := c.scan(ctx, c.sqlDB, filter)
	return int64(len(rows)), err
}

// InsertOne stores doc and returns its id. A missing _id gets a random UUID.
func (c *Collection) InsertOne(ctx context.Context, doc Document) (string, error) {
	stored := make(Document, len(doc)+1)
	for k, v := range doc {
		stored[k] = v
	}
	id, ok := stored[IDField]
	if !ok || id == nil {
		id = uuid.NewString()
		stored[IDField] = id
	}
	idStr := fmt.Sprint(id)
	body, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	if _, err := c.sqlDB.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)`,
		c.name, idStr, string(body),
	); err != nil {
		return "", fmt.Errorf("insert into %s: %w", c.name, err)
	}
	return idStr, nil
}

// UpdateMany replaces the fields in set on every matching document and
// returns how many documents were modified.
func (c *Collection) UpdateMany(ctx context.Context, filter Filter, set Document) (int64, error) {
	if _, ok := set[IDField]; ok {
		return 0, fmt.Errorf("update of %s is not allowed", IDField)
	}
	values, err := normalize(Filter(set))
	if err != nil {
		return 0, fmt.Errorf("set: %w", err)
	}
	tx, err := c.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := c.scan(ctx, tx, filter)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, r := range rows {
		for k, v := range values {
			r.doc[k] = v
		}
		body, err := json.Marshal(r.doc)
		if err != nil {
			return 0, fmt.Errorf("encode document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE documents SET body = ? WHERE seq = ?`, string(body), r.seq); err != nil {
			return 0, fmt.Errorf("update %s: %w", c.name, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}
