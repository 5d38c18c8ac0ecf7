package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/flicky/moodshop-api/internal/dto"
	"github.com/flicky/moodshop-api/internal/middleware"
	"github.com/flicky/moodshop-api/internal/model"
	"github.com/flicky/moodshop-api/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID := middleware.GetUserID(c)

	orders, err := h.orderService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, toOrderResponse(&orders[i]))
	}

	c.JSON(http.StatusOK, dto.OrderListResponse{Orders: items, Total: len(items)})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetByNumber(c.Request.Context(), c.Param("number"), middleware.GetSession(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

// Shipping is free, so the subtotal equals the total.
func toOrderResponse(order *model.Order) dto.OrderResponse {
	items := make([]dto.OrderItemResponse, 0, len(order.Items))
	subtotal := decimal.Zero
	for _, item := range order.Items {
		line := item.LineTotal()
		subtotal = subtotal.Add(line)
		items = append(items, dto.OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: line,
		})
	}
	return dto.OrderResponse{
		ID:            order.ID,
		Number:        order.Number,
		Email:         order.Email,
		Shipping:      order.Shipping,
		PaymentMethod: order.PaymentMethod,
		TransactionID: order.TransactionID,
		Status:        order.Status,
		Items:         items,
		Subtotal:      subtotal,
		ShippingCost:  decimal.Zero,
		Total:         order.Total,
		CreatedAt:     order.CreatedAt,
	}
}
