package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flicky/moodshop-api/internal/checkout"
	"github.com/flicky/moodshop-api/internal/dto"
	"github.com/flicky/moodshop-api/internal/middleware"
	"github.com/flicky/moodshop-api/internal/service"
)

type CheckoutHandler struct {
	svc *service.CheckoutService
}

func NewCheckoutHandler(svc *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// Get enters the checkout page, moving the flow into filling.
func (h *CheckoutHandler) Get(c *gin.Context) {
	view, err := h.svc.Start(c.Request.Context(), middleware.GetSession(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCheckoutResponse(view))
}

// Submit blocks until the payment resolves and the order is stored.
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	form := checkout.Form{Shipping: req.Shipping, PaymentMethod: req.PaymentMethod, Card: req.Card}
	view, err := h.svc.Submit(c.Request.Context(), middleware.GetSession(c), form)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCheckoutResponse(view))
}

func (h *CheckoutHandler) CancelSubmission(c *gin.Context) {
	if err := h.svc.Cancel(middleware.GetSessionID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func toCheckoutResponse(view *service.CheckoutView) dto.CheckoutResponse {
	resp := dto.CheckoutResponse{
		State:         view.Flow.State,
		Shipping:      view.Flow.Shipping,
		PaymentMethod: view.Flow.PaymentMethod,
		LastError:     view.Flow.LastError,
		OrderNumber:   view.Flow.OrderNumber,
		Cart:          toCartResponse(view.Cart),
	}
	if view.Order != nil {
		order := toOrderResponse(view.Order)
		resp.Order = &order
	}
	return resp
}
