package gateway

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Gateway statuses as they appear on the wire.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFailure = "FAILURE"
)

// BasketItem is one line of the gateway basket. The gateway requires the sum
// of line prices to equal the charged amount exactly.
type BasketItem struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Buyer carries the customer fields the hosted checkout page displays. All
// values are copied from the order snapshot, never from live records.
type Buyer struct {
	ID        string `json:"id"`
	FirstName string `json:"name"`
	LastName  string `json:"surname"`
	Email     string `json:"email"`
	Phone     string `json:"gsmNumber"`
}

// CheckoutRequest initializes a hosted checkout session.
type CheckoutRequest struct {
	ConversationID  string          `json:"conversationId"`
	Price           decimal.Decimal `json:"price"`
	PaidPrice       decimal.Decimal `json:"paidPrice"`
	Currency        string          `json:"currency"`
	CallbackURL     string          `json:"callbackUrl"`
	Buyer           Buyer           `json:"buyer"`
	BillingAddress  string          `json:"billingAddress"`
	ShippingAddress string          `json:"shippingAddress"`
	BasketItems     []BasketItem    `json:"basketItems"`
}

// CheckoutResult is the gateway's answer to an initialization call. On
// success Token correlates the session and PaymentPageURL is where the
// buyer's browser must be sent.
type CheckoutResult struct {
	Status         string `json:"status"`
	Token          string `json:"token"`
	PaymentPageURL string `json:"paymentPageUrl"`
	ErrorMessage   string `json:"errorMessage"`
}

// PaymentResult is the gateway-side final state of a checkout session,
// fetched by token after the buyer returns.
type PaymentResult struct {
	Status         string `json:"status"`
	ConversationID string `json:"conversationId"`
	PaymentStatus  string `json:"paymentStatus"`
	PaymentID      string `json:"paymentId"`
	ErrorMessage   string `json:"errorMessage"`
}

// CheckoutGateway is the outbound contract to the hosted payment provider.
type CheckoutGateway interface {
	InitializeCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error)
	RetrieveResult(ctx context.Context, token string) (*PaymentResult, error)
}

// BuildCheckoutRequest turns an order snapshot into a gateway request. One
// basket line per order item; when the order carries a nonzero shipping
// cost it is appended as a synthetic "Shipping" line and the paid price is
// recomputed as the basket sum, which is authoritative once shipping is
// added. The caller gets a warning log when that recomputation moved the
// charged amount away from the order total, since a divergence there points
// at an upstream pricing defect.
func BuildCheckoutRequest(log *slog.Logger, order *models.Order, items []*models.OrderItem, currency, callbackURL string) *CheckoutRequest {
	basket := make([]BasketItem, 0, len(items)+1)
	basketSum := decimal.Zero
	for _, item := range items {
		basket = append(basket, BasketItem{
			ID:    item.ProductCode,
			Name:  item.ProductName,
			Price: item.TotalPrice,
		})
		basketSum = basketSum.Add(item.TotalPrice)
	}

	if order.ShippingCost.IsPositive() {
		basket = append(basket, BasketItem{
			ID:    "SHIPPING",
			Name:  "Shipping",
			Price: order.ShippingCost,
		})
		basketSum = basketSum.Add(order.ShippingCost)
	}

	if !basketSum.Equal(order.TotalAmount) {
		log.Warn("basket sum diverges from order total, charging basket sum",
			slog.String("orderNumber", order.OrderNumber),
			slog.String("basketSum", basketSum.String()),
			slog.String("orderTotal", order.TotalAmount.String()),
		)
	}

	buyerID := "guest"
	if order.UserID != nil {
		buyerID = "user-" + strconv.FormatInt(*order.UserID, 10)
	}

	return &CheckoutRequest{
		ConversationID: order.OrderNumber,
		Price:          basketSum,
		PaidPrice:      basketSum,
		Currency:       currency,
		CallbackURL:    callbackURL,
		Buyer: Buyer{
			ID:        buyerID,
			FirstName: order.GuestFirstName,
			LastName:  order.GuestLastName,
			Email:     order.GuestEmail,
			Phone:     order.GuestPhone,
		},
		BillingAddress:  order.BillingAddress,
		ShippingAddress: order.ShippingAddress,
		BasketItems:     basket,
	}
}
