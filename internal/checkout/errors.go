package checkout

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
)

// ErrAttemptInFlight is returned when a submission is started on an attempt
// that is already submitting or has finished.
var ErrAttemptInFlight = errors.New("checkout attempt already submitted")

// CompositionError means the payment provider refused the session or answered
// without a hosted checkout URL. Nothing has been committed; the shopper may
// try again.
type CompositionError struct {
	Message string
	Err     error
}

func (e *CompositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("checkout composition failed: %s: %v", e.Message, e.Err)
	}
	return "checkout composition failed: " + e.Message
}

func (e *CompositionError) Unwrap() error {
	return e.Err
}

func newCompositionError(err error) *CompositionError {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Msg != "" {
		return &CompositionError{Message: stripeErr.Msg, Err: err}
	}
	return &CompositionError{Message: "payment provider rejected the checkout request", Err: err}
}
