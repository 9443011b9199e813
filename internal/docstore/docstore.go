// Package docstore defines the persistence contract the ledger core is
// written against: a document store with atomic multi-document batch
// writes, server-side numeric increments and live subscriptions.
//
// Documents are addressed by slash-separated paths, e.g.
// "groups/<id>" or "groups/<id>/users/<userId>". A path with its last
// segment removed is the document's collection.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced document is absent.
	// Non-retriable.
	ErrNotFound = errors.New("document not found")

	// ErrWriteConflict is returned when an atomic batch fails. No
	// partial state was committed, so retrying immediately is safe.
	ErrWriteConflict = errors.New("write conflict")
)

// Data is a decoded document body.
type Data = map[string]any

type opKind int

const (
	opSet opKind = iota
	opUpdate
	opDelete
	opIncrement
)

// Op is one write inside an atomic batch.
type Op struct {
	kind  opKind
	path  string
	data  Data
	field string
	delta int64
}

// Set creates or fully replaces the document at path.
func Set(path string, data Data) Op { return Op{kind: opSet, path: path, data: data} }

// Update merges partial data into an existing document. The batch
// fails if the document does not exist.
func Update(path string, partial Data) Op { return Op{kind: opUpdate, path: path, data: partial} }

// Delete removes the document at path. Deleting an absent document is
// a no-op.
func Delete(path string) Op { return Op{kind: opDelete, path: path} }

// Increment adds delta to a numeric field of an existing document.
// Increments are relative, so concurrent batches touching the same
// field commute to the same final sum regardless of order.
func Increment(path, field string, delta int64) Op {
	return Op{kind: opIncrement, path: path, field: field, delta: delta}
}

// Batch is an ordered list of writes applied all-or-nothing.
type Batch []Op

// ChangeType classifies a subscription delta.
type ChangeType int

const (
	Added ChangeType = iota
	Modified
	Removed
)

// Change is one document delta delivered to a subscriber.
type Change struct {
	Type ChangeType
	Path string
	Data Data
}

// UnsubscribeFunc releases a subscription. Callers must invoke it when
// the live view is torn down to avoid leaking listeners.
type UnsubscribeFunc func()

// Store is the persistence boundary of the ledger core.
type Store interface {
	// Apply commits the batch atomically: either every op succeeds or
	// the store is unchanged and ErrWriteConflict is returned.
	Apply(ctx context.Context, batch Batch) error

	// Get returns the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (Data, error)

	// List returns the documents directly under a collection path,
	// keyed by their final path segment.
	List(ctx context.Context, collection string) (map[string]Data, error)

	// Subscribe registers fn for the document at target (or, for a
	// collection path, its direct children). The current state is
	// delivered as Added changes before Subscribe returns; later
	// mutations follow as they commit. No ordering is guaranteed
	// between subscriptions on different targets.
	Subscribe(ctx context.Context, target string, fn func(Change)) (UnsubscribeFunc, error)

	Close() error
}

// Encode converts a struct into document data via its JSON form.
func Encode(v any) (Data, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode converts document data back into a struct via its JSON form.
func Decode(data Data, v any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Collection returns the collection a document path belongs to.
func Collection(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// ID returns the final segment of a path.
func ID(path string) string {
	idx := strings.LastIndex(path, "/")
	return path[idx+1:]
}

// matches reports whether a change at path is visible to a
// subscription on target: either the document itself or a direct child
// of a collection.
func matches(target, path string) bool {
	if path == target {
		return true
	}
	rest, ok := strings.CutPrefix(path, target+"/")
	if !ok {
		return false
	}
	return !strings.Contains(rest, "/")
}

// numeric coerces a decoded JSON value to int64 for increments.
func numeric(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, fmt.Errorf("field is not numeric: %T", v)
	}
}

// clone deep-copies document data so callers never alias stored state.
func clone(data Data) Data {
	if data == nil {
		return nil
	}
	copied := make(Data, len(data))
	for k, v := range data {
		copied[k] = cloneValue(v)
	}
	return copied
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case Data:
		return clone(val)
	case []any:
		copied := make([]any, len(val))
		for i, item := range val {
			copied[i] = cloneValue(item)
		}
		return copied
	default:
		return v
	}
}
