package book

import (
	"errors"
	"fmt"

	"github.com/openbookd/bookd/pkg/replication"
)

// InvalidOrderError rejects a request that fails validation. No state
// change; the reason is safe to show to the client.
type InvalidOrderError struct {
	Side   Side
	Reason string
}

func (e *InvalidOrderError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Side, e.Reason)
}

// CapacityError rejects an add against a full partition. Count is the
// number of orders resting at rejection time, so callers can decide whether
// to back off or go elsewhere.
type CapacityError struct {
	Max   int
	Count int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("max orders exceeded: partition holds %d of %d", e.Count, e.Max)
}

// The four failure kinds callers branch on. Each maps to a different
// recovery: fix the input, back off, re-resolve the primary, or retry.

func IsInvalidOrder(err error) bool {
	var e *InvalidOrderError
	return errors.As(err, &e)
}

func IsCapacityExceeded(err error) bool {
	var e *CapacityError
	return errors.As(err, &e)
}

func IsRoleError(err error) bool {
	return errors.Is(err, replication.ErrNotPrimary)
}

func IsTransient(err error) bool {
	var e *replication.UnavailableError
	return errors.As(err, &e)
}
