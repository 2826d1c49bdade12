package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/openbookd/bookd/pkg/replication"
)

// Service is what the request boundary consumes: the partition's operations
// with context handling and structured logging on top. Role gating happens
// below it, in the guard wrapped around the partition's store.
type Service struct {
	part *Partition
	log  *zap.SugaredLogger
}

func NewService(part *Partition, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{part: part, log: log}
}

// Pair is the identity of the partition this service fronts.
func (s *Service) Pair() string { return s.part.Pair() }

func (s *Service) AddBid(ctx context.Context, req OrderRequest) (Order, error) {
	return s.add(ctx, Bid, req)
}

func (s *Service) AddAsk(ctx context.Context, req OrderRequest) (Order, error) {
	return s.add(ctx, Ask, req)
}

func (s *Service) add(ctx context.Context, side Side, req OrderRequest) (Order, error) {
	if err := ctxErr(ctx); err != nil {
		return Order{}, err
	}

	var (
		ord Order
		err error
	)
	if side == Bid {
		ord, err = s.part.AddBid(req)
	} else {
		ord, err = s.part.AddAsk(req)
	}
	if err != nil {
		s.log.Infow("order_rejected",
			"pair", s.part.Pair(),
			"side", side.String(),
			"reason", err.Error())
		return Order{}, err
	}

	s.log.Infow("order_accepted",
		"pair", ord.Pair,
		"side", side.String(),
		"id", ord.ID.String(),
		"price", ord.Price.String(),
		"quantity", ord.Quantity.String(),
		"sequence", ord.Sequence)
	return ord, nil
}

func (s *Service) Bids(ctx context.Context) ([]Order, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return s.part.Bids()
}

func (s *Service) Asks(ctx context.Context) ([]Order, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return s.part.Asks()
}

// Book returns both sides from one consistent snapshot.
func (s *Service) Book(ctx context.Context) (BookView, error) {
	if err := ctxErr(ctx); err != nil {
		return BookView{}, err
	}
	return s.part.Snapshot()
}

func (s *Service) Count(ctx context.Context) (int, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, err
	}
	return s.part.Count()
}

func (s *Service) Clear(ctx context.Context) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.part.ClearAllOrders(); err != nil {
		return err
	}
	s.log.Infow("book_cleared", "pair", s.part.Pair())
	return nil
}

// ctxErr surfaces a dead context as the transient kind: the operation did
// not run, so retrying is safe.
func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &replication.UnavailableError{Err: err}
	}
	return nil
}
