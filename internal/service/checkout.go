package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/flicky/moodshop-api/internal/checkout"
	"github.com/flicky/moodshop-api/internal/logging"
	"github.com/flicky/moodshop-api/internal/metrics"
	"github.com/flicky/moodshop-api/internal/model"
	"github.com/flicky/moodshop-api/internal/payment"
	"github.com/flicky/moodshop-api/internal/repository"
)

// OrderPublisher announces placed orders to asynchronous consumers.
type OrderPublisher interface {
	Publish(ctx context.Context, msg model.OrderMessage) error
}

// CheckoutView is what the checkout page renders: the flow, the cart it
// applies to and, once complete, the placed order.
type CheckoutView struct {
	Flow  *checkout.Flow
	Cart  *model.Cart
	Order *model.Order
}

const interruptedReason = "the previous payment attempt was interrupted, please try again"

type CheckoutService struct {
	cartStore  repository.CartStore
	flowStore  repository.FlowStore
	orderRepo  repository.OrderRepository
	gateway    payment.Gateway
	publisher  OrderPublisher
	allowGuest bool

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

func NewCheckoutService(
	cartStore repository.CartStore,
	flowStore repository.FlowStore,
	orderRepo repository.OrderRepository,
	gateway payment.Gateway,
	publisher OrderPublisher,
	allowGuest bool,
) *CheckoutService {
	return &CheckoutService{
		cartStore:  cartStore,
		flowStore:  flowStore,
		orderRepo:  orderRepo,
		gateway:    gateway,
		publisher:  publisher,
		allowGuest: allowGuest,
		inflight:   make(map[string]context.CancelFunc),
	}
}

// Start enters the checkout page. An empty cart is refused unless the flow
// already completed.
func (s *CheckoutService) Start(ctx context.Context, session model.Session) (*CheckoutView, error) {
	if s.inFlight(session.ID) {
		return s.Current(ctx, session)
	}

	flow, cart, err := s.load(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if flow.State == checkout.StateSubmitting {
		_ = flow.Fail(interruptedReason)
	}
	if err := flow.Begin(cart); err != nil {
		return nil, err
	}
	if err := s.flowStore.Save(ctx, session.ID, flow); err != nil {
		return nil, fmt.Errorf("save checkout flow: %w", err)
	}
	return s.view(ctx, flow, cart)
}

// Current returns the flow as stored, with the order once it is complete.
func (s *CheckoutService) Current(ctx context.Context, session model.Session) (*CheckoutView, error) {
	flow, cart, err := s.load(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, flow, cart)
}

// Submit validates the form, charges the cart subtotal and places the
// order. The cart is only cleared after the gateway approved the charge.
// A declined, failed or cancelled charge returns *PaymentError and sends
// the flow back to filling with the draft intact.
func (s *CheckoutService) Submit(ctx context.Context, session model.Session, form checkout.Form) (*CheckoutView, error) {
	if !session.LoggedIn && !s.allowGuest {
		return nil, ErrAuthRequired
	}

	chargeCtx, done, err := s.register(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	defer done()

	flow, cart, err := s.load(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		metrics.RecordCheckoutFailure("empty_cart")
		return nil, checkout.ErrEmptyCart
	}
	// nothing is in flight for this session, so a submitting flow is stale
	if flow.State == checkout.StateSubmitting {
		_ = flow.Fail(interruptedReason)
	}
	if err := flow.Begin(cart); err != nil {
		return nil, err
	}

	if err := flow.Fill(form); err != nil {
		metrics.RecordCheckoutFailure("validation")
		if saveErr := s.flowStore.Save(ctx, session.ID, flow); saveErr != nil {
			return nil, fmt.Errorf("save checkout flow: %w", saveErr)
		}
		return nil, err
	}
	if err := s.flowStore.Save(ctx, session.ID, flow); err != nil {
		return nil, fmt.Errorf("save checkout flow: %w", err)
	}

	order := newOrder(session, flow, cart)
	req := payment.Request{OrderID: order.ID, Amount: order.Total, Method: form.PaymentMethod}
	if form.PaymentMethod == model.PaymentCreditCard && form.Card != nil {
		req.CardNumber = checkout.NormalizeCardNumber(form.Card.Number)
	}

	result, chargeErr := s.gateway.Charge(chargeCtx, req)

	// From here on the outcome must be recorded even if the client went away.
	persistCtx := context.WithoutCancel(ctx)
	log := logging.FromContext(ctx).With("session_id", session.ID, "order_id", order.ID)

	if chargeErr != nil {
		reason := "payment could not be processed"
		kind := "payment_error"
		if errors.Is(chargeErr, context.Canceled) {
			reason, kind = "payment was cancelled", "cancelled"
		}
		log.Warn("charge failed", "error", chargeErr)
		return nil, s.fail(persistCtx, session.ID, flow, kind, &PaymentError{Reason: reason, Err: chargeErr})
	}

	var success payment.Success
	switch r := result.(type) {
	case payment.Failure:
		return nil, s.fail(persistCtx, session.ID, flow, "declined", &PaymentError{Reason: r.Reason})
	case payment.Success:
		success = r
	default:
		return nil, s.fail(persistCtx, session.ID, flow, "payment_error",
			&PaymentError{Reason: "payment could not be processed", Err: fmt.Errorf("unexpected result %T", result)})
	}

	order.TransactionID = success.TransactionID
	if err := s.orderRepo.Create(persistCtx, order); err != nil {
		log.Error("order not saved after successful charge",
			"transaction_id", success.TransactionID, "amount", order.Total.String(), "error", err)
		return nil, s.fail(persistCtx, session.ID, flow, "persistence", fmt.Errorf("%w: %w", ErrPersistence, err))
	}

	// only the ordered lines leave the cart; anything added meanwhile stays
	remaining, err := s.cartStore.Update(persistCtx, session.ID, func(c *model.Cart) error {
		for _, item := range order.Items {
			c.Deduct(item.ProductID, item.Quantity)
		}
		return nil
	})
	if err != nil {
		log.Error("clear ordered items from cart", "order_number", order.Number, "error", err)
		remaining = &model.Cart{}
	}
	if err := flow.Complete(order.Number); err != nil {
		return nil, err
	}
	if err := s.flowStore.Save(persistCtx, session.ID, flow); err != nil {
		log.Error("save completed checkout flow", "order_number", order.Number, "error", err)
	}
	if s.publisher != nil {
		msg := model.OrderMessage{OrderID: order.ID, Number: order.Number, Email: order.Email}
		if err := s.publisher.Publish(persistCtx, msg); err != nil {
			log.Error("publish order placed", "order_number", order.Number, "error", err)
		}
	}

	metrics.RecordOrderPlaced(string(order.PaymentMethod))
	log.Info("order placed", "order_number", order.Number, "transaction_id", order.TransactionID)
	return &CheckoutView{Flow: flow, Cart: remaining, Order: order}, nil
}

// Cancel aborts the session's in-flight payment.
func (s *CheckoutService) Cancel(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, ok := s.inflight[sessionID]
	if !ok {
		return ErrNoSubmission
	}
	cancel()
	return nil
}

func (s *CheckoutService) register(ctx context.Context, sessionID string) (context.Context, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inflight[sessionID]; ok {
		return nil, nil, ErrSubmissionInProgress
	}
	chargeCtx, cancel := context.WithCancel(ctx)
	s.inflight[sessionID] = cancel

	return chargeCtx, func() {
		s.mu.Lock()
		delete(s.inflight, sessionID)
		s.mu.Unlock()
		cancel()
	}, nil
}

func (s *CheckoutService) inFlight(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[sessionID]
	return ok
}

func (s *CheckoutService) fail(ctx context.Context, sessionID string, flow *checkout.Flow, kind string, cause error) error {
	metrics.RecordCheckoutFailure(kind)

	reason := cause.Error()
	var perr *PaymentError
	if errors.As(cause, &perr) {
		reason = perr.Reason
	} else if errors.Is(cause, ErrPersistence) {
		reason = ErrPersistence.Error()
	}

	if err := flow.Fail(reason); err != nil {
		return err
	}
	if err := s.flowStore.Save(ctx, sessionID, flow); err != nil {
		logging.FromContext(ctx).Error("save failed checkout flow", "session_id", sessionID, "error", err)
	}
	return cause
}

func (s *CheckoutService) load(ctx context.Context, sessionID string) (*checkout.Flow, *model.Cart, error) {
	flow, err := s.flowStore.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get checkout flow: %w", err)
	}
	cart, err := s.cartStore.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("get cart: %w", err)
	}
	return flow, cart, nil
}

func (s *CheckoutService) view(ctx context.Context, flow *checkout.Flow, cart *model.Cart) (*CheckoutView, error) {
	v := &CheckoutView{Flow: flow, Cart: cart}
	if flow.State == checkout.StateComplete && flow.OrderNumber != "" {
		order, err := s.orderRepo.GetByNumber(ctx, flow.OrderNumber)
		if err != nil {
			return nil, fmt.Errorf("get order: %w", err)
		}
		v.Order = order
	}
	return v, nil
}

func newOrder(session model.Session, flow *checkout.Flow, cart *model.Cart) *model.Order {
	order := &model.Order{
		ID:            uuid.New(),
		SessionID:     session.ID,
		Email:         flow.Shipping.Email,
		Shipping:      flow.Shipping,
		PaymentMethod: flow.PaymentMethod,
		Status:        model.OrderStatusPaid,
		Total:         cart.Subtotal(),
		Items:         make([]model.OrderItem, 0, len(cart.Items)),
	}
	if session.LoggedIn {
		userID := session.UserID
		order.UserID = &userID
		if session.Email != "" {
			order.Email = session.Email
		}
	}
	for _, item := range cart.Items {
		order.Items = append(order.Items, model.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return order
}
