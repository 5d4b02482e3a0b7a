package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/melihmerall/ilisan-commerce/internal/config"
	"github.com/melihmerall/ilisan-commerce/internal/domain/models"
)

// EmailNotifier sends plain-text order mails over SMTP. When the SMTP
// section is disabled in config it degrades to logging only, which keeps
// local development free of a mail server dependency.
type EmailNotifier struct {
	log *slog.Logger
	cfg config.SMTPConfig
}

var _ Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(log *slog.Logger, cfg config.SMTPConfig) *EmailNotifier {
	return &EmailNotifier{log: log, cfg: cfg}
}

func (n *EmailNotifier) SendOrderConfirmation(ctx context.Context, order *models.Order) error {
	subject := fmt.Sprintf("Your order %s has been received", order.OrderNumber)
	body := fmt.Sprintf("Hello %s,\r\n\r\nWe received your order %s for a total of %s.\r\n",
		order.GuestFirstName, order.OrderNumber, order.TotalAmount.StringFixed(2))
	return n.send(order.CustomerEmail(), subject, body)
}

func (n *EmailNotifier) SendPaymentReceived(ctx context.Context, order *models.Order) error {
	subject := fmt.Sprintf("Payment received for order %s", order.OrderNumber)
	body := fmt.Sprintf("Hello %s,\r\n\r\nYour payment of %s for order %s was received. The order is confirmed.\r\n",
		order.GuestFirstName, order.TotalAmount.StringFixed(2), order.OrderNumber)
	return n.send(order.CustomerEmail(), subject, body)
}

func (n *EmailNotifier) SendAdminOrderAlert(ctx context.Context, order *models.Order) error {
	if n.cfg.AdminEmail == "" {
		return nil
	}
	subject := fmt.Sprintf("New order %s", order.OrderNumber)
	body := fmt.Sprintf("Order %s (%s) placed for %s.\r\n",
		order.OrderNumber, order.PaymentMethod, order.TotalAmount.StringFixed(2))
	return n.send(n.cfg.AdminEmail, subject, body)
}

func (n *EmailNotifier) send(to, subject, body string) error {
	if !n.cfg.Enabled {
		n.log.Info("smtp disabled, skipping mail",
			slog.String("to", to),
			slog.String("subject", subject),
		)
		return nil
	}

	msg := []byte("From: " + n.cfg.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}
