package storage

import (
	"fmt"
	"io"
	"sync"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements Store on a single Pebble database. Writers are
// serialized with a mutex, so commit order is the serial order mutations are
// applied in; readers run against Pebble snapshots and never block writers.
type PebbleStore struct {
	mu     sync.Mutex // serializes Update and the closed flag
	views  sync.WaitGroup
	db     *pebble.DB
	closed bool
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Let in-flight snapshots drain; pebble refuses to close a database
	// with open snapshots.
	s.views.Wait()
	return s.db.Close()
}

func (s *PebbleStore) Update(fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	// Indexed batch: reads inside the transaction observe its own writes.
	// An error from fn abandons the batch; nothing becomes visible.
	b := s.db.NewIndexedBatch()
	defer b.Close()

	if err := fn(&batchTx{b: b}); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PebbleStore) View(fn func(ReadTx) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	// The snapshot is taken under the lock so Close cannot slip in between
	// the closed check and NewSnapshot; fn runs outside it, so readers
	// never block writers.
	s.views.Add(1)
	snap := s.db.NewSnapshot()
	s.mu.Unlock()

	defer s.views.Done()
	defer snap.Close()
	return fn(&snapTx{snap: snap})
}

var _ Store = (*PebbleStore)(nil)

// pebbleReader is the read surface shared by batches and snapshots.
type pebbleReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

func readerGet(r pebbleReader, key []byte) ([]byte, bool, error) {
	val, closer, err := r.Get(key)
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := append([]byte(nil), val...)
	if err := closer.Close(); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func readerAscend(r pebbleReader, prefix []byte, fn func(key, val []byte) error) error {
	iter, err := r.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: PrefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		k := append([]byte(nil), iter.Key()...)
		v := append([]byte(nil), iter.Value()...)
		if err := fn(k, v); err != nil {
			return err
		}
	}
	return iter.Error()
}

type batchTx struct {
	b *pebble.Batch
}

func (t *batchTx) Get(key []byte) ([]byte, bool, error) {
	return readerGet(t.b, key)
}

func (t *batchTx) Ascend(prefix []byte, fn func(key, val []byte) error) error {
	return readerAscend(t.b, prefix, fn)
}

func (t *batchTx) Set(key, val []byte) error {
	return t.b.Set(key, val, nil)
}

func (t *batchTx) Delete(key []byte) error {
	return t.b.Delete(key, nil)
}

func (t *batchTx) DeleteRange(start, end []byte) error {
	return t.b.DeleteRange(start, end, nil)
}

type snapTx struct {
	snap *pebble.Snapshot
}

func (t *snapTx) Get(key []byte) ([]byte, bool, error) {
	return readerGet(t.snap, key)
}

func (t *snapTx) Ascend(prefix []byte, fn func(key, val []byte) error) error {
	return readerAscend(t.snap, prefix, fn)
}
