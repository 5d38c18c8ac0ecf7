// Package payment decouples order finalization from any specific payment
// vendor. A gateway either approves a charge or declines it with a reason;
// transport problems and cancellation are reported as errors.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/moodshop-api/internal/model"
)

type Request struct {
	OrderID    uuid.UUID
	Amount     decimal.Decimal
	Method     model.PaymentMethod
	CardNumber string
}

// Result is either Success or Failure.
type Result interface {
	isResult()
}

type Success struct {
	TransactionID string
}

type Failure struct {
	Reason string
}

func (Success) isResult() {}
func (Failure) isResult() {}

type Gateway interface {
	Charge(ctx context.Context, req Request) (Result, error)
}

// DeclinedTestCard is always declined by the simulated gateway.
const DeclinedTestCard = "4000000000000002"

// SimulatedGateway stands in for a real processor: it waits for Delay and
// approves everything except amounts above DeclineOver and DeclinedTestCard.
type SimulatedGateway struct {
	Delay       time.Duration
	DeclineOver decimal.Decimal
}

func NewSimulatedGateway(delay time.Duration, declineOver decimal.Decimal) *SimulatedGateway {
	return &SimulatedGateway{Delay: delay, DeclineOver: declineOver}
}

func (g *SimulatedGateway) Charge(ctx context.Context, req Request) (Result, error) {
	if g.Delay > 0 {
		timer := time.NewTimer(g.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("charge %s: %w", req.OrderID, ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("charge %s: %w", req.OrderID, err)
	}

	if !req.Amount.IsPositive() {
		return Failure{Reason: "amount must be positive"}, nil
	}
	if !g.DeclineOver.IsZero() && req.Amount.GreaterThan(g.DeclineOver) {
		return Failure{Reason: "amount exceeds the approval limit"}, nil
	}
	if req.Method == model.PaymentCreditCard && req.CardNumber == DeclinedTestCard {
		return Failure{Reason: "card declined"}, nil
	}

	prefix := "ch_"
	if req.Method == model.PaymentPayPal {
		prefix = "pp_"
	}
	return Success{TransactionID: prefix + uuid.NewString()}, nil
}
