package storage

import "errors"

// ErrClosed is returned for operations against a closed store.
var ErrClosed = errors.New("storage: store is closed")

// ReadTx is a consistent point-in-time view of the store. All reads inside
// one ReadTx observe the same snapshot.
type ReadTx interface {
	// Get returns the value for key. The second return is false when the
	// key does not exist.
	Get(key []byte) ([]byte, bool, error)

	// Ascend iterates keys with the given prefix in ascending key order.
	// Returning an error from fn stops the scan and propagates the error.
	Ascend(prefix []byte, fn func(key, val []byte) error) error
}

// Tx is a single atomic unit of reads and writes. Writes become visible to
// subsequent reads within the same Tx, and to other transactions only after
// a successful commit.
type Tx interface {
	ReadTx

	Set(key, val []byte) error
	Delete(key []byte) error

	// DeleteRange removes every key in [start, end).
	DeleteRange(start, end []byte) error
}

// PrefixEnd returns the exclusive upper bound for a prefix scan or range
// delete.
func PrefixEnd(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	for i := len(bound) - 1; i >= 0; i-- {
		bound[i]++
		if bound[i] != 0 {
			return bound[:i+1]
		}
	}
	return nil // prefix is all 0xff; no upper bound
}

// Store is the transactional durable-collection capability. Update applies
// the whole transaction body atomically or not at all: an error from fn
// aborts with no visible effect. View runs fn against a consistent snapshot.
type Store interface {
	Update(fn func(Tx) error) error
	View(fn func(ReadTx) error) error
	Close() error
}
