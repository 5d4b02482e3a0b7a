package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/service"
)

// CheckoutAddress mirrors service.AddressInput on the wire.
type CheckoutAddress struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Email     string `json:"email"`
	Line1     string `json:"line1" validate:"required"`
	Line2     string `json:"line2"`
	City      string `json:"city" validate:"required"`
	District  string `json:"district"`
	PostCode  string `json:"postCode"`
	Country   string `json:"country" validate:"required"`
}

// CheckoutRequest is the checkout submission payload.
type CheckoutRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=card bank_transfer cash_on_delivery"`

	GuestFirstName string `json:"guestFirstName"`
	GuestLastName  string `json:"guestLastName"`
	GuestEmail     string `json:"guestEmail"`
	GuestPhone     string `json:"guestPhone"`

	ShippingAddressID *int64           `json:"shippingAddressId"`
	BillingAddressID  *int64           `json:"billingAddressId"`
	ShippingAddress   *CheckoutAddress `json:"shippingAddress"`
	BillingAddress    *CheckoutAddress `json:"billingAddress"`
	SameAsShipping    bool             `json:"sameAsShipping"`
}

// CheckoutResponse answers a checkout submission. PaymentPageURL is set for
// card payments; the client must redirect the buyer's browser there.
type CheckoutResponse struct {
	OrderID        int64  `json:"orderId"`
	OrderNumber    string `json:"orderNumber"`
	TotalAmount    string `json:"totalAmount"`
	PaymentPageURL string `json:"paymentPageUrl,omitempty"`
}

// CheckoutHandler handles POST /api/checkout for both guests and
// authenticated users.
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		var req CheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			http.Error(w, "validation error", http.StatusBadRequest)
			return
		}

		owner := resolveOwner(w, r)
		input := &service.CheckoutInput{
			Owner:             owner,
			PaymentMethod:     models.PaymentMethod(req.PaymentMethod),
			GuestFirstName:    req.GuestFirstName,
			GuestLastName:     req.GuestLastName,
			GuestEmail:        req.GuestEmail,
			GuestPhone:        req.GuestPhone,
			ShippingAddressID: req.ShippingAddressID,
			BillingAddressID:  req.BillingAddressID,
			ShippingAddress:   toAddressInput(req.ShippingAddress),
			BillingAddress:    toAddressInput(req.BillingAddress),
			SameAsShipping:    req.SameAsShipping,
		}

		outcome, err := checkoutService.Checkout(r.Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrGuestCheckoutDisabled):
				http.Error(w, "guest checkout is disabled", http.StatusForbidden)
			case errors.Is(err, service.ErrCartEmpty):
				http.Error(w, "cart is empty", http.StatusBadRequest)
			case errors.Is(err, service.ErrValidation):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, service.ErrGateway):
				// The order exists in a terminal failed state; the user can
				// retry with a fresh checkout.
				logger.Error("payment initialization failed", slog.Any("error", err))
				http.Error(w, "payment could not be started, please try again", http.StatusBadGateway)
			default:
				logger.Error("checkout failed", slog.Any("error", err))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, logger, CheckoutResponse{
			OrderID:        outcome.OrderID,
			OrderNumber:    outcome.OrderNumber,
			TotalAmount:    outcome.TotalAmount.StringFixed(2),
			PaymentPageURL: outcome.PaymentPageURL,
		})
	}
}

func toAddressInput(a *CheckoutAddress) *service.AddressInput {
	if a == nil {
		return nil
	}
	return &service.AddressInput{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Email:     a.Email,
		Line1:     a.Line1,
		Line2:     a.Line2,
		City:      a.City,
		District:  a.District,
		PostCode:  a.PostCode,
		Country:   a.Country,
	}
}
