package book

import "fmt"

// Validator is the stateless rule-check for incoming order requests. It
// never touches the store.
type Validator struct {
	pair string
}

func NewValidator(pair string) Validator {
	return Validator{pair: pair}
}

// Validate returns nil for an acceptable request, or an InvalidOrderError
// naming the side and the first violated rule. The boundary normally
// rewrites a mismatched pair before the request gets here; the mismatch
// check stays anyway so the core never stores a foreign pair.
func (v Validator) Validate(req OrderRequest, side Side) error {
	if !req.Price.IsPositive() {
		return &InvalidOrderError{Side: side, Reason: "price must be greater than zero"}
	}
	if !req.Quantity.IsPositive() {
		return &InvalidOrderError{Side: side, Reason: "quantity must be greater than zero"}
	}
	if req.Pair != v.pair {
		return &InvalidOrderError{
			Side:   side,
			Reason: fmt.Sprintf("pair %q does not belong to partition %q", req.Pair, v.pair),
		}
	}
	return nil
}
