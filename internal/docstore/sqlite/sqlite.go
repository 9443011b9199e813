// Package sqlite provides a SQLite-backed implementation of the
// docstore.Store contract. Batches map onto SQL transactions, which
// supplies the all-or-nothing guarantee the ledger relies on.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/setil-app/backend/internal/docstore"
)

// Ensure Store implements docstore.Store.
var _ docstore.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    path TEXT PRIMARY KEY,
    collection TEXT NOT NULL,
    data TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
`

// Store implements docstore.Store on a SQLite database. Subscriptions
// are served by an in-process hub fed by committed batches, so live
// views work for every client sharing this Store.
type Store struct {
	db  *sql.DB
	hub *docstore.Hub

	// pub serializes batches through commit and publish, and orders
	// subscription snapshots against them, so subscribers never see
	// changes out of commit order.
	pub sync.Mutex
}

// New opens (or creates) the database at dbPath and prepares the
// schema. Parent directories are created as needed.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize writers: batches must not interleave.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db, hub: docstore.NewHub()}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Apply runs the batch inside a single SQL transaction and publishes
// the resulting changes once the transaction has committed.
func (s *Store) Apply(ctx context.Context, batch docstore.Batch) error {
	// Taken before the transaction starts: holding it only around the
	// commit could deadlock against Subscribe, which reads its snapshot
	// on the single connection while holding pub.
	s.pub.Lock()
	defer s.pub.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", docstore.ErrWriteConflict)
	}
	defer tx.Rollback()

	changes, err := docstore.Stage(batch, txStore{ctx: ctx, tx: tx})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", docstore.ErrWriteConflict)
	}

	s.hub.Publish(changes)
	return nil
}

// txStore adapts a SQL transaction to the staging interface used by
// docstore.Stage.
type txStore struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t txStore) Read(path string) (docstore.Data, bool, error) {
	var raw string
	err := t.tx.QueryRowContext(t.ctx,
		"SELECT data FROM documents WHERE path = ?", path,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	var data docstore.Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	return data, true, nil
}

func (t txStore) Write(path string, data docstore.Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	_, err = t.tx.ExecContext(t.ctx,
		`INSERT INTO documents (path, collection, data) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET data = excluded.data`,
		path, docstore.Collection(path), string(raw),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (t txStore) Remove(path string) error {
	if _, err := t.tx.ExecContext(t.ctx, "DELETE FROM documents WHERE path = ?", path); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// Get returns the document at path.
func (s *Store) Get(ctx context.Context, path string) (docstore.Data, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE path = ?", path,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", path, docstore.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	var data docstore.Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return data, nil
}

// List returns the documents directly under collection, keyed by id.
func (s *Store) List(ctx context.Context, collection string) (map[string]docstore.Data, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, data FROM documents WHERE collection = ?", collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make(map[string]docstore.Data)
	for rows.Next() {
		var path, raw string
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		var data docstore.Data
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		docs[docstore.ID(path)] = data
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	return docs, nil
}

// Subscribe delivers the current state as Added changes, then streams
// committed mutations from this process.
func (s *Store) Subscribe(ctx context.Context, target string, fn func(docstore.Change)) (docstore.UnsubscribeFunc, error) {
	// Holding pub while reading the snapshot keeps any concurrent
	// batch's changes behind it.
	s.pub.Lock()
	defer s.pub.Unlock()

	unsubscribe := s.hub.Add(target, fn)

	// Snapshot: the target document itself plus, when the target is a
	// collection, its direct children.
	if doc, err := s.Get(ctx, target); err == nil {
		fn(docstore.Change{Type: docstore.Added, Path: target, Data: doc})
	} else if !errors.Is(err, docstore.ErrNotFound) {
		unsubscribe()
		return nil, err
	}

	children, err := s.List(ctx, target)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	for id, doc := range children {
		fn(docstore.Change{Type: docstore.Added, Path: target + "/" + id, Data: doc})
	}

	return unsubscribe, nil
}
