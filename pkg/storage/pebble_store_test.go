package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpdateCommitsAtomically(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(func(tx Tx) error {
		require.NoError(t, tx.Set([]byte("k1"), []byte("v1")))
		require.NoError(t, tx.Set([]byte("k2"), []byte("v2")))
		return nil
	})
	require.NoError(t, err)

	err = s.View(func(tx ReadTx) error {
		v, ok, err := tx.Get([]byte("k1"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v1"), v)

		_, ok, err = tx.Get([]byte("k2"))
		require.NoError(t, err)
		require.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateAbortsOnError(t *testing.T) {
	s := newTestStore(t)

	boom := errors.New("boom")
	err := s.Update(func(tx Tx) error {
		require.NoError(t, tx.Set([]byte("k1"), []byte("v1")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing from the aborted transaction is visible.
	err = s.View(func(tx ReadTx) error {
		_, ok, err := tx.Get([]byte("k1"))
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateReadsItsOwnWrites(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(func(tx Tx) error {
		require.NoError(t, tx.Set([]byte("k"), []byte("v")))
		v, ok, err := tx.Get([]byte("k"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v"), v)
		return nil
	})
	require.NoError(t, err)
}

func TestAscendIsPrefixBounded(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Update(func(tx Tx) error {
		for _, k := range []string{"a:1", "a:2", "a:3", "b:1", "c:1"} {
			if err := tx.Set([]byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	}))

	var keys []string
	require.NoError(t, s.View(func(tx ReadTx) error {
		return tx.Ascend([]byte("a:"), func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	}))
	require.Equal(t, []string{"a:1", "a:2", "a:3"}, keys)
}

func TestDeleteRange(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Update(func(tx Tx) error {
		for _, k := range []string{"a:1", "a:2", "b:1"} {
			if err := tx.Set([]byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.Update(func(tx Tx) error {
		return tx.DeleteRange([]byte("a:"), PrefixEnd([]byte("a:")))
	}))

	var keys []string
	require.NoError(t, s.View(func(tx ReadTx) error {
		return tx.Ascend([]byte{}, func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	}))
	require.Equal(t, []string{"b:1"}, keys)
}

func TestViewSnapshotIgnoresLaterWrites(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Update(func(tx Tx) error {
		return tx.Set([]byte("k"), []byte("before"))
	}))

	err := s.View(func(tx ReadTx) error {
		// Commit a write after the snapshot was taken.
		require.NoError(t, s.Update(func(w Tx) error {
			return w.Set([]byte("k"), []byte("after"))
		}))

		v, ok, err := tx.Get([]byte("k"))
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("before"), v)
		return nil
	})
	require.NoError(t, err)
}

func TestPrefixEnd(t *testing.T) {
	require.Equal(t, []byte("a;"), PrefixEnd([]byte("a:")))
	require.Equal(t, []byte{0x02}, PrefixEnd([]byte{0x01, 0xff}))
	require.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
}

func TestClosedStoreRejectsUpdate(t *testing.T) {
	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.Update(func(Tx) error { return nil })
	require.ErrorIs(t, err, ErrClosed)
}

func TestClosedStoreRejectsView(t *testing.T) {
	s, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	err = s.View(func(ReadTx) error { return nil })
	require.ErrorIs(t, err, ErrClosed)
}
