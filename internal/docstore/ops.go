package docstore

import "fmt"

// Backend is the minimal surface a Store implementation exposes to the
// shared batch-staging logic: reads and writes inside an uncommitted
// transaction.
type Backend interface {
	Read(path string) (Data, bool, error)
	Write(path string, data Data) error
	Remove(path string) error
}

// Stage applies every op of a batch against an uncommitted backend and
// returns the changes to publish once the backend commits. Any error
// means the batch must be rolled back; op-level violations (update or
// increment of an absent document, increment of a non-numeric field)
// surface as ErrWriteConflict.
func Stage(batch Batch, b Backend) ([]Change, error) {
	var changes []Change

	for _, op := range batch {
		switch op.kind {
		case opSet:
			_, existed, err := b.Read(op.path)
			if err != nil {
				return nil, err
			}
			if err := b.Write(op.path, clone(op.data)); err != nil {
				return nil, err
			}
			changeType := Added
			if existed {
				changeType = Modified
			}
			changes = append(changes, Change{Type: changeType, Path: op.path, Data: op.data})

		case opUpdate:
			doc, ok, err := b.Read(op.path)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("update %s: %w", op.path, ErrWriteConflict)
			}
			for k, v := range op.data {
				doc[k] = cloneValue(v)
			}
			if err := b.Write(op.path, doc); err != nil {
				return nil, err
			}
			changes = append(changes, Change{Type: Modified, Path: op.path, Data: doc})

		case opDelete:
			_, existed, err := b.Read(op.path)
			if err != nil {
				return nil, err
			}
			if !existed {
				continue
			}
			if err := b.Remove(op.path); err != nil {
				return nil, err
			}
			changes = append(changes, Change{Type: Removed, Path: op.path})

		case opIncrement:
			doc, ok, err := b.Read(op.path)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("increment %s: %w", op.path, ErrWriteConflict)
			}
			value, err := numeric(doc[op.field])
			if err != nil {
				return nil, fmt.Errorf("increment %s.%s: %w", op.path, op.field, ErrWriteConflict)
			}
			doc[op.field] = value + op.delta
			if err := b.Write(op.path, doc); err != nil {
				return nil, err
			}
			changes = append(changes, Change{Type: Modified, Path: op.path, Data: doc})
		}
	}

	return changes, nil
}
