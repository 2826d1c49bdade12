package book

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/btree"

	"github.com/openbookd/bookd/pkg/replication"
	"github.com/openbookd/bookd/pkg/storage"
	"github.com/openbookd/bookd/pkg/util"
)

// Partition is the durable order book for one currency pair: the bid and
// ask collections plus the capacity counter, mutated only through single
// atomic transactions against the store. In production the store is wrapped
// by replication.Guard, so every mutation is role-gated before it commits.
type Partition struct {
	pair      string
	maxOrders int
	store     storage.Store
	validator Validator

	// Clock stamps accepted orders. Swap for a fixed clock in tests.
	Clock util.Clock
}

func NewPartition(pair string, maxOrders int, store storage.Store) *Partition {
	return &Partition{
		pair:      pair,
		maxOrders: maxOrders,
		store:     store,
		validator: NewValidator(pair),
		Clock:     util.RealClock{},
	}
}

// Pair is the partition's immutable identity.
func (p *Partition) Pair() string { return p.pair }

// MaxOrders is the partition's capacity limit.
func (p *Partition) MaxOrders() int { return p.maxOrders }

// AddBid validates and stores a bid in one transaction, returning the order
// as accepted (id, timestamp and sequence assigned).
func (p *Partition) AddBid(req OrderRequest) (Order, error) {
	return p.add(Bid, req)
}

// AddAsk validates and stores an ask in one transaction.
func (p *Partition) AddAsk(req OrderRequest) (Order, error) {
	return p.add(Ask, req)
}

func (p *Partition) add(side Side, req OrderRequest) (Order, error) {
	var ord Order
	err := p.store.Update(func(tx storage.Tx) error {
		count, err := p.readCounter(tx, keyCount)
		if err != nil {
			return err
		}
		if int(count) >= p.maxOrders {
			return &CapacityError{Max: p.maxOrders, Count: int(count)}
		}
		if err := p.validator.Validate(req, side); err != nil {
			return err
		}

		seq, err := p.readCounter(tx, keySeq)
		if err != nil {
			return err
		}
		seq++

		ord = Order{
			ID:        uuid.New(),
			Pair:      p.pair,
			Price:     req.Price,
			Quantity:  req.Quantity,
			Timestamp: p.Clock.Now().UnixNano(),
			Sequence:  seq,
		}
		val, err := json.Marshal(ord)
		if err != nil {
			return fmt.Errorf("encode order: %w", err)
		}
		if err := tx.Set(orderKey(side, ord.ID), val); err != nil {
			return err
		}
		if err := tx.Set(keySeq, encodeU64(seq)); err != nil {
			return err
		}
		return tx.Set(keyCount, encodeU64(count+1))
	})
	if err != nil {
		return Order{}, wrapInfra(err)
	}
	return ord, nil
}

// Bids returns a point-in-time snapshot of the bid collection, best bid
// first (price descending, then time priority).
func (p *Partition) Bids() ([]Order, error) {
	var out []Order
	err := p.store.View(func(tx storage.ReadTx) error {
		var err error
		out, err = readSide(tx, Bid)
		return err
	})
	if err != nil {
		return nil, wrapInfra(err)
	}
	return out, nil
}

// Asks returns a point-in-time snapshot of the ask collection, best ask
// first (price ascending, then time priority).
func (p *Partition) Asks() ([]Order, error) {
	var out []Order
	err := p.store.View(func(tx storage.ReadTx) error {
		var err error
		out, err = readSide(tx, Ask)
		return err
	})
	if err != nil {
		return nil, wrapInfra(err)
	}
	return out, nil
}

// BookView is both sides of the book read from a single snapshot.
type BookView struct {
	Pair     string
	Bids     []Order
	Asks     []Order
	BidCount int
	AskCount int
}

// Snapshot reads bids and asks from one consistent snapshot, never a mix of
// pre- and post-mutation state.
func (p *Partition) Snapshot() (BookView, error) {
	view := BookView{Pair: p.pair}
	err := p.store.View(func(tx storage.ReadTx) error {
		bids, err := readSide(tx, Bid)
		if err != nil {
			return err
		}
		asks, err := readSide(tx, Ask)
		if err != nil {
			return err
		}
		view.Bids, view.Asks = bids, asks
		view.BidCount, view.AskCount = len(bids), len(asks)
		return nil
	})
	if err != nil {
		return BookView{}, wrapInfra(err)
	}
	return view, nil
}

// Count returns the resting order count across both sides.
func (p *Partition) Count() (int, error) {
	var count uint64
	err := p.store.View(func(tx storage.ReadTx) error {
		val, ok, err := tx.Get(keyCount)
		if err != nil {
			return err
		}
		if ok {
			count = decodeU64(val)
		}
		return nil
	})
	if err != nil {
		return 0, wrapInfra(err)
	}
	return int(count), nil
}

// ClearAllOrders removes every order from both collections and resets the
// counter in one transaction. The commit sequence is kept so ids and
// time-priority keys are never reused. Idempotent: clearing an empty
// partition is a no-op success.
func (p *Partition) ClearAllOrders() error {
	err := p.store.Update(func(tx storage.Tx) error {
		for _, side := range []Side{Bid, Ask} {
			prefix := sidePrefix(side)
			if err := tx.DeleteRange(prefix, storage.PrefixEnd(prefix)); err != nil {
				return err
			}
		}
		return tx.Set(keyCount, encodeU64(0))
	})
	if err != nil {
		return wrapInfra(err)
	}
	return nil
}

// readCounter reads a big-endian uint64 counter, zero when absent.
func (p *Partition) readCounter(tx storage.ReadTx, key []byte) (uint64, error) {
	val, ok, err := tx.Get(key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return decodeU64(val), nil
}

// readSide decodes one side of the book and orders it for presentation.
// Ordering is recomputed from stored data on every read.
func readSide(tx storage.ReadTx, side Side) ([]Order, error) {
	tree := btree.NewBTreeG[Order](lessFor(side))
	err := tx.Ascend(sidePrefix(side), func(_, val []byte) error {
		var ord Order
		if err := json.Unmarshal(val, &ord); err != nil {
			return fmt.Errorf("decode %s order: %w", side, err)
		}
		tree.Set(ord)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Order, 0, tree.Len())
	tree.Scan(func(ord Order) bool {
		out = append(out, ord)
		return true
	})
	return out, nil
}

// wrapInfra passes the four caller-facing kinds through untouched and wraps
// everything else (storage faults, commit failures) as transient.
func wrapInfra(err error) error {
	if IsInvalidOrder(err) || IsCapacityExceeded(err) || IsRoleError(err) || IsTransient(err) {
		return err
	}
	return &replication.UnavailableError{Err: err}
}
