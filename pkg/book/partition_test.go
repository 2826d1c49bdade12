package book

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/openbookd/bookd/pkg/storage"
	"github.com/openbookd/bookd/pkg/util"
)

const testPair = "GBPUSD"

func newTestPartition(t *testing.T, maxOrders int) *Partition {
	t.Helper()
	store, err := storage.NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewPartition(testPair, maxOrders, store)
}

func req(price, qty int64) OrderRequest {
	return OrderRequest{
		Pair:     testPair,
		Price:    decimal.NewFromInt(price),
		Quantity: decimal.NewFromInt(qty),
	}
}

func TestAddAssignsIdentityAndSequence(t *testing.T) {
	p := newTestPartition(t, 10)

	ord, err := p.AddBid(req(100, 1))
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, ord.ID)
	require.Equal(t, testPair, ord.Pair)
	require.Equal(t, uint64(1), ord.Sequence)
	require.NotZero(t, ord.Timestamp)

	ord2, err := p.AddAsk(req(105, 2))
	require.NoError(t, err)
	require.Equal(t, uint64(2), ord2.Sequence)
}

func TestOrderIDsAreUnique(t *testing.T) {
	p := newTestPartition(t, 100)

	seen := make(map[uuid.UUID]bool)
	for i := int64(1); i <= 25; i++ {
		bid, err := p.AddBid(req(i, 1))
		require.NoError(t, err)
		ask, err := p.AddAsk(req(i+1000, 1))
		require.NoError(t, err)

		require.False(t, seen[bid.ID], "duplicate bid id %s", bid.ID)
		require.False(t, seen[ask.ID], "duplicate ask id %s", ask.ID)
		seen[bid.ID] = true
		seen[ask.ID] = true
	}
}

func TestCapacityLimit(t *testing.T) {
	const maxOrders = 5
	p := newTestPartition(t, maxOrders)

	for i := int64(0); i < maxOrders; i++ {
		_, err := p.AddBid(req(100+i, 1))
		require.NoError(t, err)
	}

	_, err := p.AddAsk(req(50, 1))
	require.Error(t, err)
	require.True(t, IsCapacityExceeded(err))

	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, maxOrders, capErr.Count)
	require.Equal(t, maxOrders, capErr.Max)

	// The store still holds exactly maxOrders orders.
	count, err := p.Count()
	require.NoError(t, err)
	require.Equal(t, maxOrders, count)
}

func TestCapacityCheckedBeforeValidation(t *testing.T) {
	p := newTestPartition(t, 1)
	_, err := p.AddBid(req(100, 1))
	require.NoError(t, err)

	// Invalid request against a full partition reports capacity, mirroring
	// the transactional check order.
	_, err = p.AddBid(req(0, 1))
	require.True(t, IsCapacityExceeded(err))
}

func TestRejectedAddLeavesBookUnchanged(t *testing.T) {
	p := newTestPartition(t, 10)

	_, err := p.AddBid(req(100, 1))
	require.NoError(t, err)
	_, err = p.AddAsk(req(110, 1))
	require.NoError(t, err)

	bidsBefore, err := p.Bids()
	require.NoError(t, err)
	asksBefore, err := p.Asks()
	require.NoError(t, err)

	_, err = p.AddBid(req(0, 1)) // invalid price
	require.True(t, IsInvalidOrder(err))
	_, err = p.AddAsk(OrderRequest{Pair: "EURUSD", Price: decimal.NewFromInt(5), Quantity: decimal.NewFromInt(1)})
	require.True(t, IsInvalidOrder(err))

	bidsAfter, err := p.Bids()
	require.NoError(t, err)
	asksAfter, err := p.Asks()
	require.NoError(t, err)

	require.Equal(t, bidsBefore, bidsAfter)
	require.Equal(t, asksBefore, asksAfter)

	count, err := p.Count()
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestBidOrdering(t *testing.T) {
	p := newTestPartition(t, 10)

	for _, price := range []int64{10, 30, 20} {
		_, err := p.AddBid(req(price, 1))
		require.NoError(t, err)
	}

	bids, err := p.Bids()
	require.NoError(t, err)
	require.Len(t, bids, 3)

	got := []int64{
		bids[0].Price.IntPart(),
		bids[1].Price.IntPart(),
		bids[2].Price.IntPart(),
	}
	require.Equal(t, []int64{30, 20, 10}, got)
}

func TestAskOrdering(t *testing.T) {
	p := newTestPartition(t, 10)

	for _, price := range []int64{15, 5, 25} {
		_, err := p.AddAsk(req(price, 1))
		require.NoError(t, err)
	}

	asks, err := p.Asks()
	require.NoError(t, err)
	require.Len(t, asks, 3)

	got := []int64{
		asks[0].Price.IntPart(),
		asks[1].Price.IntPart(),
		asks[2].Price.IntPart(),
	}
	require.Equal(t, []int64{5, 15, 25}, got)
}

func TestEqualPricesKeepArrivalOrder(t *testing.T) {
	p := newTestPartition(t, 10)
	// Pin the clock so only the commit sequence can break the tie.
	p.Clock = util.FixedClock{T: time.Unix(1700000000, 0)}

	first, err := p.AddBid(req(100, 1))
	require.NoError(t, err)
	second, err := p.AddBid(req(100, 2))
	require.NoError(t, err)

	bids, err := p.Bids()
	require.NoError(t, err)
	require.Len(t, bids, 2)
	require.Equal(t, first.ID, bids[0].ID)
	require.Equal(t, second.ID, bids[1].ID)
}

func TestClearAllOrders(t *testing.T) {
	p := newTestPartition(t, 10)

	_, err := p.AddBid(req(100, 1))
	require.NoError(t, err)
	_, err = p.AddAsk(req(110, 1))
	require.NoError(t, err)

	require.NoError(t, p.ClearAllOrders())

	bids, err := p.Bids()
	require.NoError(t, err)
	require.Empty(t, bids)
	asks, err := p.Asks()
	require.NoError(t, err)
	require.Empty(t, asks)

	count, err := p.Count()
	require.NoError(t, err)
	require.Zero(t, count)

	// Second clear is a no-op success.
	require.NoError(t, p.ClearAllOrders())
}

func TestClearPreservesSequence(t *testing.T) {
	p := newTestPartition(t, 10)

	ord, err := p.AddBid(req(100, 1))
	require.NoError(t, err)
	require.Equal(t, uint64(1), ord.Sequence)

	require.NoError(t, p.ClearAllOrders())

	ord, err = p.AddBid(req(100, 1))
	require.NoError(t, err)
	require.Equal(t, uint64(2), ord.Sequence, "sequence must not restart after clear")
}

func TestSnapshotIsConsistent(t *testing.T) {
	p := newTestPartition(t, 10)

	_, err := p.AddBid(req(100, 1))
	require.NoError(t, err)
	_, err = p.AddAsk(req(110, 2))
	require.NoError(t, err)

	view, err := p.Snapshot()
	require.NoError(t, err)
	require.Equal(t, testPair, view.Pair)
	require.Equal(t, 1, view.BidCount)
	require.Equal(t, 1, view.AskCount)
	require.Len(t, view.Bids, 1)
	require.Len(t, view.Asks, 1)
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := storage.NewPebbleStore(dir)
	require.NoError(t, err)
	p := NewPartition(testPair, 10, store)

	ord, err := p.AddBid(req(100, 1))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = storage.NewPebbleStore(dir)
	require.NoError(t, err)
	defer store.Close()
	p = NewPartition(testPair, 10, store)

	bids, err := p.Bids()
	require.NoError(t, err)
	require.Len(t, bids, 1)
	require.Equal(t, ord.ID, bids[0].ID)
	require.True(t, ord.Price.Equal(bids[0].Price))

	count, err := p.Count()
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestEndToEndScenario(t *testing.T) {
	p := newTestPartition(t, 2)

	a, err := p.AddBid(req(100, 1))
	require.NoError(t, err)

	b, err := p.AddAsk(req(90, 1))
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	_, err = p.AddBid(req(95, 1))
	require.True(t, IsCapacityExceeded(err))
	var capErr *CapacityError
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, 2, capErr.Count)

	require.NoError(t, p.ClearAllOrders())

	bids, err := p.Bids()
	require.NoError(t, err)
	require.Empty(t, bids)
	asks, err := p.Asks()
	require.NoError(t, err)
	require.Empty(t, asks)
}
