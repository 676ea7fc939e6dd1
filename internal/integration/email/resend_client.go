// Package email delivers operational alerts via Resend.
package email

import (
	"context"
	"fmt"
	"html"

	"github.com/resend/resend-go/v2"

	"github.com/Staysteady/financial-dashboard-sub000/internal/application/adapter"
)

// ResendNotifier implements adapter.ConnectionNotifier using Resend. Alerts
// go to an operations mailbox, not to the end user.
type ResendNotifier struct {
	client    *resend.Client
	fromName  string
	fromEmail string
	toEmail   string
}

// NewResendNotifier creates a new Resend backed notifier.
func NewResendNotifier(apiKey, fromName, fromEmail, toEmail string) *ResendNotifier {
	return &ResendNotifier{
		client:    resend.NewClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		toEmail:   toEmail,
	}
}

// NotifyConnectionDegraded sends one alert for a connection that moved to
// error or expired.
func (n *ResendNotifier) NotifyConnectionDegraded(ctx context.Context, alert adapter.ConnectionAlert) error {
	subject := fmt.Sprintf("Bank connection %s: %s (%s)", alert.Status, alert.BankName, alert.BankCode)
	body := fmt.Sprintf(
		"<h2>Bank connection degraded</h2>"+
			"<p><strong>User:</strong> %s</p>"+
			"<p><strong>Bank:</strong> %s (%s)</p>"+
			"<p><strong>Status:</strong> %s</p>"+
			"<p><strong>Detail:</strong> %s</p>",
		alert.UserID,
		html.EscapeString(alert.BankName),
		html.EscapeString(alert.BankCode),
		html.EscapeString(alert.Status),
		html.EscapeString(alert.Message),
	)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail),
		To:      []string{n.toEmail},
		Subject: subject,
		Html:    body,
	}
	if _, err := n.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send connection alert: %w", err)
	}
	return nil
}

var _ adapter.ConnectionNotifier = (*ResendNotifier)(nil)
