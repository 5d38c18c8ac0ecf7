// Package checkout implements the checkout state machine:
//
//	idle -> filling -> submitting -> complete
//	              ^         |
//	              +-- fail -+
//
// An empty cart never gets past Begin unless the flow already completed,
// in which case the confirmation stays visible.
package checkout

import (
	"errors"
	"fmt"

	"github.com/flicky/moodshop-api/internal/model"
)

type State string

const (
	StateIdle       State = "idle"
	StateFilling    State = "filling"
	StateSubmitting State = "submitting"
	StateComplete   State = "complete"
)

var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid checkout transition")
)

// Flow is the per-session checkout record. Card details are never kept.
type Flow struct {
	State         State                 `json:"state"`
	Shipping      model.ShippingAddress `json:"shipping"`
	PaymentMethod model.PaymentMethod   `json:"payment_method,omitempty"`
	LastError     string                `json:"last_error,omitempty"`
	OrderNumber   string                `json:"order_number,omitempty"`
}

func New() *Flow {
	return &Flow{State: StateIdle}
}

// Begin enters filling. A completed flow with a new non-empty cart starts
// over, keeping the shipping draft.
func (f *Flow) Begin(cart *model.Cart) error {
	if cart.IsEmpty() {
		if f.State == StateComplete {
			return nil
		}
		return ErrEmptyCart
	}

	switch f.State {
	case StateIdle, StateFilling:
		f.State = StateFilling
	case StateComplete:
		f.State = StateFilling
		f.OrderNumber = ""
		f.LastError = ""
	default:
		return fmt.Errorf("%w: begin from %s", ErrInvalidTransition, f.State)
	}
	return nil
}

// Fill records the draft and moves to submitting when the form is valid.
// An invalid form leaves the flow in filling and returns *ValidationError.
func (f *Flow) Fill(form Form) error {
	if f.State != StateFilling {
		return fmt.Errorf("%w: fill from %s", ErrInvalidTransition, f.State)
	}

	form.Shipping = form.Shipping.Trimmed()
	f.Shipping = form.Shipping
	f.PaymentMethod = form.PaymentMethod
	f.LastError = ""

	if err := Validate(form); err != nil {
		return err
	}
	f.State = StateSubmitting
	return nil
}

func (f *Flow) Fail(reason string) error {
	if f.State != StateSubmitting {
		return fmt.Errorf("%w: fail from %s", ErrInvalidTransition, f.State)
	}
	f.State = StateFilling
	f.LastError = reason
	return nil
}

func (f *Flow) Complete(orderNumber string) error {
	if f.State != StateSubmitting {
		return fmt.Errorf("%w: complete from %s", ErrInvalidTransition, f.State)
	}
	f.State = StateComplete
	f.OrderNumber = orderNumber
	f.LastError = ""
	return nil
}
