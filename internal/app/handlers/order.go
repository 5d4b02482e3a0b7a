package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/jwtauth/jwtmiddleware"
	"github.com/melihmerall/ilisan-commerce/internal/service"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
)

// OrderItemResponse is one order item snapshot in the API shape.
type OrderItemResponse struct {
	ProductName string `json:"productName"`
	ProductCode string `json:"productCode"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalPrice  string `json:"totalPrice"`
}

// OrderResponse is the order detail the confirmation page renders.
type OrderResponse struct {
	OrderNumber     string              `json:"orderNumber"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"paymentStatus"`
	ShippingStatus  string              `json:"shippingStatus"`
	PaymentMethod   string              `json:"paymentMethod"`
	SubTotal        string              `json:"subTotal"`
	ShippingCost    string              `json:"shippingCost"`
	TaxAmount       string              `json:"taxAmount"`
	DiscountAmount  string              `json:"discountAmount"`
	TotalAmount     string              `json:"totalAmount"`
	BillingAddress  string              `json:"billingAddress"`
	ShippingAddress string              `json:"shippingAddress"`
	PaymentDate     *time.Time          `json:"paymentDate,omitempty"`
	Items           []OrderItemResponse `json:"items"`
}

// OrderHandler handles GET /api/orders/{orderNumber}.
func OrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderHandler"
		logger := log.With(slog.String("op", op))

		orderNumber := chi.URLParam(r, "orderNumber")
		if orderNumber == "" {
			http.Error(w, "order number is required", http.StatusBadRequest)
			return
		}

		order, items, err := orderService.GetOrder(r.Context(), orderNumber)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get order", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, toOrderResponse(order, items))
	}
}

// OrderByIDHandler handles GET /api/orders/id/{orderID}. The callback
// redirect keys the confirmation page by internal order id, so this is the
// endpoint that page loads its detail from.
func OrderByIDHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderByIDHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, items, err := orderService.GetOrderByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get order", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, toOrderResponse(order, items))
	}
}

// OrderSummaryResponse is one row of the order history listing.
type OrderSummaryResponse struct {
	OrderNumber   string    `json:"orderNumber"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	TotalAmount   string    `json:"totalAmount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MyOrdersHandler handles GET /api/me/orders for a signed-in user.
func MyOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.MyOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := orderService.ListUserOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := make([]OrderSummaryResponse, 0, len(orders))
		for _, order := range orders {
			resp = append(resp, OrderSummaryResponse{
				OrderNumber:   order.OrderNumber,
				Status:        string(order.Status),
				PaymentStatus: string(order.PaymentStatus),
				TotalAmount:   order.TotalAmount.StringFixed(2),
				CreatedAt:     order.CreatedAt,
			})
		}
		writeJSON(w, logger, resp)
	}
}

func toOrderResponse(order *models.Order, items []*models.OrderItem) OrderResponse {
	resp := OrderResponse{
		OrderNumber:     order.OrderNumber,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		ShippingStatus:  string(order.ShippingStatus),
		PaymentMethod:   string(order.PaymentMethod),
		SubTotal:        order.SubTotal.StringFixed(2),
		ShippingCost:    order.ShippingCost.StringFixed(2),
		TaxAmount:       order.TaxAmount.StringFixed(2),
		DiscountAmount:  order.DiscountAmount.StringFixed(2),
		TotalAmount:     order.TotalAmount.StringFixed(2),
		BillingAddress:  order.BillingAddress,
		ShippingAddress: order.ShippingAddress,
		PaymentDate:     order.PaymentDate,
		Items:           make([]OrderItemResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductName: item.ProductName,
			ProductCode: item.ProductCode,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			TotalPrice:  item.TotalPrice.StringFixed(2),
		})
	}
	return resp
}
