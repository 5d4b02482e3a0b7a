package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/melihmerall/ilisan-commerce/internal/config"
	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/service"
)

// WebhookRequest is the provider's push notification body.
type WebhookRequest struct {
	IyziEventType         string `json:"iyziEventType"`
	PaymentConversationID string `json:"paymentConversationId"`
	Status                string `json:"status"`
	PaymentID             string `json:"paymentId"`
}

// CallbackHandler handles the browser redirect back from the hosted payment
// page (POST with a form field "token"). Success sends the buyer to the
// order confirmation page; every failure sends them back to the cart with a
// generic error flag, leaking nothing about why.
func CallbackHandler(log *slog.Logger, paymentService service.PaymentService, cfg config.CheckoutConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CallbackHandler"
		logger := log.With(slog.String("op", op))

		if err := r.ParseForm(); err != nil {
			logger.Error("failed to parse callback form", slog.Any("error", err))
			http.Redirect(w, r, cfg.CartURL+"?payment_error=1", http.StatusSeeOther)
			return
		}
		token := r.PostFormValue("token")

		order, err := paymentService.HandleCallback(r.Context(), token)
		if err != nil {
			logger.Warn("payment callback rejected", slog.Any("error", err))
			http.Redirect(w, r, cfg.CartURL+"?payment_error=1", http.StatusSeeOther)
			return
		}
		if order.PaymentStatus != models.PaymentStatusPaid {
			http.Redirect(w, r, cfg.CartURL+"?payment_error=1", http.StatusSeeOther)
			return
		}

		http.Redirect(w, r, fmt.Sprintf("%s?order=%d", cfg.ConfirmationURL, order.ID), http.StatusSeeOther)
	}
}

// WebhookHandler handles POST /api/payment/webhook. The provider retries
// on any non-2xx response, so every recognized-or-ignorable event answers
// 200; only structurally invalid JSON earns a 400.
func WebhookHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WebhookHandler"
		logger := log.With(slog.String("op", op))

		var req WebhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid webhook body", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		if req.PaymentConversationID == "" {
			// Not an event this service can correlate; acknowledge so the
			// provider stops retrying.
			logger.Warn("webhook without conversation id", slog.String("eventType", req.IyziEventType))
			w.WriteHeader(http.StatusOK)
			return
		}

		event := &service.WebhookEvent{
			EventType:             req.IyziEventType,
			PaymentConversationID: req.PaymentConversationID,
			Status:                req.Status,
			PaymentID:             req.PaymentID,
		}
		if err := paymentService.HandleWebhook(r.Context(), event); err != nil {
			// A storage failure is retryable; the transition is idempotent,
			// so answering 5xx and letting the provider redeliver is safe.
			logger.Error("webhook processing failed", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
	}
}
