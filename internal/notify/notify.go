package notify

import (
	"context"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
)

// Notifier is the outbound notification contract. Every call is
// fire-and-forget from the business flow's point of view: a failed send is
// logged by the caller and never rolls anything back.
type Notifier interface {
	// SendOrderConfirmation notifies the customer that the order was placed.
	SendOrderConfirmation(ctx context.Context, order *models.Order) error
	// SendPaymentReceived notifies the customer that payment was captured.
	SendPaymentReceived(ctx context.Context, order *models.Order) error
	// SendAdminOrderAlert notifies the back office about a new order.
	SendAdminOrderAlert(ctx context.Context, order *models.Order) error
}
