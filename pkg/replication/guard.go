package replication

import (
	"errors"
	"fmt"

	"github.com/openbookd/bookd/pkg/storage"
)

// ErrNotPrimary is returned for mutations attempted on a non-primary
// replica. Callers must re-resolve the current primary before retrying.
var ErrNotPrimary = errors.New("replica is not primary; re-resolve the service location")

// UnavailableError marks transient infrastructure failures: the replica is
// transitioning, or the underlying store could not complete the operation.
// Callers retry with backoff. The wrapped error carries the cause, if any.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service unavailable: %v", e.Err)
	}
	return "service unavailable"
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Guard wraps a transactional store with primary-role gating. Every Update
// checks the role on entry and again inside the transaction body, so a
// demotion racing a write fails with ErrNotPrimary before anything commits;
// the store's atomic commit guarantees no partial application either way.
// Reads are served on Primary and Secondary alike (a stale snapshot on a
// just-demoted replica is still consistent) but fail transient while the
// replica is Unavailable.
type Guard struct {
	src   Source
	store storage.Store
}

func NewGuard(src Source, store storage.Store) *Guard {
	return &Guard{src: src, store: store}
}

// Check maps the current role to the error the caller should see.
func (g *Guard) Check() error {
	switch g.src.Role() {
	case Primary:
		return nil
	case Secondary:
		return ErrNotPrimary
	default:
		return &UnavailableError{}
	}
}

func (g *Guard) Update(fn func(storage.Tx) error) error {
	if err := g.Check(); err != nil {
		return err
	}
	return g.store.Update(func(tx storage.Tx) error {
		// Role may change while waiting for the write slot.
		if err := g.Check(); err != nil {
			return err
		}
		return fn(tx)
	})
}

func (g *Guard) View(fn func(storage.ReadTx) error) error {
	if g.src.Role() == Unavailable {
		return &UnavailableError{}
	}
	return g.store.View(fn)
}

func (g *Guard) Close() error { return g.store.Close() }

var _ storage.Store = (*Guard)(nil)
