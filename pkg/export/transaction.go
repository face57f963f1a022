package export

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Transaction represents a set of file writes that are committed together
// or not at all.
type Transaction struct {
	operations []fileOperation
	committed  bool
}

// fileOperation represents a single file write operation
type fileOperation struct {
	path    string
	content []byte
	mode    os.FileMode
}

// written remembers what a committed write replaced so it can be undone.
type written struct {
	path     string
	previous []byte // nil when the file did not exist
	mode     os.FileMode
}

// NewTransaction creates a new file operation transaction
func NewTransaction() *Transaction {
	return &Transaction{
		operations: make([]fileOperation, 0),
	}
}

// AddFile stages a file write operation (doesn't write yet)
func (t *Transaction) AddFile(path string, content []byte, mode os.FileMode) {
	t.operations = append(t.operations, fileOperation{
		path:    path,
		content: content,
		mode:    mode,
	})
}

// Len returns the number of staged writes.
func (t *Transaction) Len() int { return len(t.operations) }

// Commit writes all staged files. If any write fails, or ctx is cancelled
// between writes, files written so far are restored to their previous
// content (or removed if they were new).
func (t *Transaction) Commit(ctx context.Context) error {
	if t.committed {
		return errors.New("transaction already committed")
	}

	done := make([]written, 0, len(t.operations))

	for _, op := range t.operations {
		if err := ctx.Err(); err != nil {
			t.rollback(done)
			return errors.Wrap(err, "export interrupted")
		}

		dir := filepath.Dir(op.path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.rollback(done)
			return errors.Wrapf(err, "failed to create directory %s", dir)
		}

		w := written{path: op.path, mode: op.mode}
		if prev, err := os.ReadFile(op.path); err == nil {
			w.previous = prev
		}

		if err := os.WriteFile(op.path, op.content, op.mode); err != nil {
			t.rollback(done)
			return errors.Wrapf(err, "failed to write file %s", op.path)
		}

		done = append(done, w)
	}

	t.committed = true
	return nil
}

// rollback undoes writes in reverse order. Best effort; errors are ignored.
func (t *Transaction) rollback(done []written) {
	for i := len(done) - 1; i >= 0; i-- {
		w := done[i]
		if w.previous != nil {
			_ = os.WriteFile(w.path, w.previous, w.mode)
			continue
		}
		_ = os.Remove(w.path)
	}
}
