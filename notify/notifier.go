package notify

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notifier delivers customer-facing order messages. Every method is
// fire-and-forget: failures are logged and never surfaced to the caller,
// because a lost email must not fail (or roll back) a payment reconciliation.
type Notifier interface {
	OrderCreated(ctx context.Context, email string, orderID string, amount decimal.Decimal)
	OrderPaid(ctx context.Context, email string, name string, orderID string, amount decimal.Decimal)
	FulfillmentChanged(ctx context.Context, email string, orderID string, status string)
	PasswordReset(ctx context.Context, email string, resetURL string)
}

// Service sends through Brevo. A nil Mailer (no API key configured)
// suppresses sends with a warning, which keeps local development quiet.
type Service struct {
	Mailer *BrevoClient
	Logger *logrus.Logger
}

func NewService(mailer *BrevoClient, logger *logrus.Logger) *Service {
	return &Service{Mailer: mailer, Logger: logger}
}

func (s *Service) OrderCreated(ctx context.Context, email string, orderID string, amount decimal.Decimal) {
	subject := fmt.Sprintf("Order #%.8s received", orderID)
	content := fmt.Sprintf(
		"<p>We've received your order <strong>#%.8s</strong> for <strong>₦%s</strong>.</p>"+
			"<p>Complete payment to start fulfillment.</p>",
		orderID, amount.StringFixed(2))
	go s.send(email, subject, content, orderID)
}

func (s *Service) OrderPaid(ctx context.Context, email string, name string, orderID string, amount decimal.Decimal) {
	subject := fmt.Sprintf("Payment confirmed for order #%.8s", orderID)
	go s.send(email, subject, orderPaidContent(name, orderID, amount), orderID)
}

// orderPaidContent includes a pre-filled WhatsApp link when WHATSAPP_NUMBER is
// configured, so the customer can nudge fulfillment from the confirmation mail.
func orderPaidContent(name string, orderID string, amount decimal.Decimal) string {
	content := fmt.Sprintf(
		"<p>Your payment of <strong>₦%s</strong> for order <strong>#%.8s</strong> is confirmed.</p>"+
			"<p>We're preparing your order for shipping.</p>",
		amount.StringFixed(2), orderID)
	if number, err := SupportWhatsAppNumber(); err == nil {
		link := WhatsAppLink(number, OrderConfirmationMessage(name, orderID))
		content += fmt.Sprintf(`<p><a href="%s">Chat with us on WhatsApp</a> to prioritize your delivery.</p>`, link)
	}
	return content
}

func (s *Service) PasswordReset(ctx context.Context, email string, resetURL string) {
	content := fmt.Sprintf(
		"<p>We received a request to reset your password.</p>"+
			`<p><a href="%s">Choose a new password</a>. The link expires in one hour.</p>`+
			"<p>If you didn't ask for this, you can ignore this email.</p>",
		resetURL)
	go s.send(email, "Reset your password", content, "")
}

func (s *Service) FulfillmentChanged(ctx context.Context, email string, orderID string, status string) {
	subject := fmt.Sprintf("Order #%.8s update: %s", orderID, status)
	content := fmt.Sprintf(
		"<p>Your order <strong>#%.8s</strong> is now <strong>%s</strong>.</p>",
		orderID, status)
	go s.send(email, subject, content, orderID)
}

// send runs on its own goroutine so a slow mail API never blocks a request
// or a reconciliation. Errors are logged only.
func (s *Service) send(email, subject, content, orderID string) {
	if email == "" {
		return
	}
	if s.Mailer == nil {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"order_id": orderID,
				"subject":  subject,
			}).Warn("BREVO_API_KEY not configured; email suppressed")
		}
		return
	}
	if err := s.Mailer.Send(email, subject, content); err != nil {
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{
				"order_id": orderID,
				"subject":  subject,
			}).Error("failed to send email: " + err.Error())
		}
		return
	}
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"order_id": orderID,
			"subject":  subject,
		}).Info("email sent")
	}
}
