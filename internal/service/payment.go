package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
	"github.com/melihmerall/ilisan-commerce/internal/gateway"
	"github.com/melihmerall/ilisan-commerce/internal/notify"
	"github.com/melihmerall/ilisan-commerce/internal/storage"
)

// WebhookEvent is the provider's server-to-server notification. It carries
// the conversation id but no token.
type WebhookEvent struct {
	EventType             string
	PaymentConversationID string
	Status                string
	PaymentID             string
}

// PaymentService reconciles the gateway outcome into the order's payment
// state. Both entry points may arrive in any order, any number of times;
// the transitions are idempotent and the success notification fires at most
// once per order because it is gated on the state actually having changed.
type PaymentService interface {
	// HandleCallback processes the browser-redirect path: it fetches the
	// gateway-side result for the token and transitions the matching order.
	HandleCallback(ctx context.Context, token string) (*models.Order, error)
	// HandleWebhook processes the push path. Unknown conversation ids are
	// acknowledged without error so the provider stops retrying.
	HandleWebhook(ctx context.Context, event *WebhookEvent) error
}

type paymentService struct {
	log          *slog.Logger
	orderRepo    storage.OrderStorage
	gw           gateway.CheckoutGateway
	notifier     notify.Notifier
	activityRepo storage.ActivityLogStorage
}

func NewPaymentService(log *slog.Logger, orderRepo storage.OrderStorage, gw gateway.CheckoutGateway, notifier notify.Notifier, activityRepo storage.ActivityLogStorage) PaymentService {
	return &paymentService{
		log:          log,
		orderRepo:    orderRepo,
		gw:           gw,
		notifier:     notifier,
		activityRepo: activityRepo,
	}
}

func (s *paymentService) HandleCallback(ctx context.Context, token string) (*models.Order, error) {
	const op = "service.PaymentService.HandleCallback"
	logger := s.log.With(slog.String("op", op))

	if token == "" {
		return nil, fmt.Errorf("%s: %w: missing token", op, ErrIntegrity)
	}

	result, err := s.gw.RetrieveResult(ctx, token)
	if err != nil {
		logger.Error("failed to retrieve gateway result", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w: %v", op, ErrGateway, err)
	}

	order, err := s.orderRepo.GetByPaymentToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			// The token matched no order. If the conversation id does match
			// one, the supplied token diverges from the stored one: treat
			// it as a tampering attempt and do not touch any state.
			if _, lookupErr := s.orderRepo.GetByOrderNumber(ctx, result.ConversationID); lookupErr == nil {
				logger.Warn("callback token does not match stored payment token",
					slog.String("conversationId", result.ConversationID))
				return nil, fmt.Errorf("%s: %w: token mismatch", op, ErrIntegrity)
			}
			logger.Warn("callback for unknown payment token")
			return nil, fmt.Errorf("%s: %w: unknown token", op, ErrIntegrity)
		}
		logger.Error("failed to get order by token", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	// Secondary integrity check: the gateway's conversation id must equal
	// the order number the token resolves to.
	if order.OrderNumber != result.ConversationID {
		logger.Warn("conversation id mismatch",
			slog.String("orderNumber", order.OrderNumber),
			slog.String("conversationId", result.ConversationID))
		return nil, fmt.Errorf("%s: %w: conversation id mismatch", op, ErrIntegrity)
	}

	success := result.Status == gateway.StatusSuccess && result.PaymentStatus == gateway.PaymentStatusSuccess
	if err := s.applyOutcome(ctx, order, success, result.PaymentID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Re-read so the caller sees the post-transition state.
	updated, err := s.orderRepo.GetByOrderNumber(ctx, order.OrderNumber)
	if err != nil {
		return order, nil
	}
	return updated, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, event *WebhookEvent) error {
	const op = "service.PaymentService.HandleWebhook"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("eventType", event.EventType),
		slog.String("conversationId", event.PaymentConversationID),
	)

	order, err := s.orderRepo.GetByOrderNumber(ctx, event.PaymentConversationID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			// The id may belong to another environment; acknowledge so the
			// provider stops retrying.
			logger.Warn("webhook for unknown conversation id")
			return nil
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get order: %w", op, err)
	}

	// Only the two terminal statuses drive a transition. Anything else is an
	// informational event this service does not act on; acknowledge it so the
	// provider stops retrying.
	switch event.Status {
	case gateway.PaymentStatusSuccess, gateway.PaymentStatusFailure:
	default:
		logger.Info("ignoring webhook status", slog.String("status", event.Status))
		return nil
	}

	success := event.Status == gateway.PaymentStatusSuccess
	if err := s.applyOutcome(ctx, order, success, event.PaymentID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// applyOutcome performs the idempotent transition. The "already in the
// target state" check lives inside the repository's conditional UPDATE, so
// two concurrent deliveries cannot both observe the pre-transition state.
func (s *paymentService) applyOutcome(ctx context.Context, order *models.Order, success bool, paymentID string) error {
	logger := s.log.With(slog.String("orderNumber", order.OrderNumber))

	if success {
		transitioned, err := s.orderRepo.MarkPaid(ctx, order.OrderNumber, paymentID, time.Now().UTC())
		if err != nil {
			logger.Error("failed to mark order paid", slog.Any("error", err))
			return fmt.Errorf("failed to mark order paid: %w", err)
		}
		if !transitioned {
			logger.Info("duplicate payment success notification, no-op")
			return nil
		}
		logger.Info("order paid", slog.String("paymentId", paymentID))
		s.audit(ctx, order, "order.paid")

		// Gated on the transition above: at most one success notification
		// per order, no matter how many times either path reports success.
		order.PaymentStatus = models.PaymentStatusPaid
		order.Status = models.OrderStatusConfirmed
		order.PaymentTransactionID = paymentID
		if err := s.notifier.SendPaymentReceived(ctx, order); err != nil {
			logger.Error("failed to send payment notification", slog.Any("error", err))
		}
		if err := s.notifier.SendAdminOrderAlert(ctx, order); err != nil {
			logger.Error("failed to send admin alert", slog.Any("error", err))
		}
		return nil
	}

	transitioned, err := s.orderRepo.MarkPaymentFailed(ctx, order.OrderNumber)
	if err != nil {
		logger.Error("failed to mark payment failed", slog.Any("error", err))
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}
	if !transitioned {
		logger.Info("duplicate payment failure notification, no-op")
		return nil
	}
	logger.Info("payment failed, order cancelled")
	s.audit(ctx, order, "order.payment_failed")
	return nil
}

func (s *paymentService) audit(ctx context.Context, order *models.Order, action string) {
	if err := s.activityRepo.Append(ctx, "gateway", action, order.OrderNumber); err != nil {
		s.log.Error("failed to append activity log", slog.Any("error", err))
	}
}
