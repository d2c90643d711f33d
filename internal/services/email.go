package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"

	"github.com/resend/resend-go/v2"
	"gopkg.in/gomail.v2"

	"github.com/HammerMeetNail/socialgraph/internal/config"
	"github.com/HammerMeetNail/socialgraph/internal/logging"
)

// Email represents an email to be sent
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// EmailProvider is the interface for sending emails
type EmailProvider interface {
	Send(ctx context.Context, email *Email) error
}

// NewEmailProvider picks the provider named in cfg, falling back to the console.
func NewEmailProvider(cfg *config.EmailConfig) EmailProvider {
	from := formatFrom(cfg.FromName, cfg.FromAddress)
	switch cfg.Provider {
	case "resend":
		return NewResendProvider(cfg.ResendAPIKey, from)
	case "smtp":
		return NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort, from)
	default:
		return NewConsoleProvider(logging.Default)
	}
}

func formatFrom(name, address string) string {
	if name == "" {
		return address
	}
	return fmt.Sprintf("%s <%s>", name, address)
}

// ResendProvider sends emails using the Resend API
type ResendProvider struct {
	client *resend.Client
	from   string
}

func NewResendProvider(apiKey, from string) *ResendProvider {
	return &ResendProvider{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (p *ResendProvider) Send(ctx context.Context, email *Email) error {
	params := &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	if _, err := p.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("sending email via Resend: %w", err)
	}

	logging.Info("Email sent via Resend", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

// SMTPProvider sends emails via SMTP (for Mailpit in local dev)
type SMTPProvider struct {
	host string
	port int
	from string
}

func NewSMTPProvider(host string, port int, from string) *SMTPProvider {
	return &SMTPProvider{host: host, port: port, from: from}
}

func (p *SMTPProvider) Send(ctx context.Context, email *Email) error {
	msg := p.message(email)

	dialer := gomail.NewDialer(p.host, p.port, "", "")
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email via SMTP: %w", err)
	}

	logging.Info("Email sent via SMTP", map[string]interface{}{"to": email.To, "subject": email.Subject})
	return nil
}

func (p *SMTPProvider) message(email *Email) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", p.from)
	msg.SetHeader("To", email.To)
	msg.SetHeader("Subject", email.Subject)
	msg.SetBody("text/plain", email.Text)
	if email.HTML != "" {
		msg.AddAlternative("text/html", email.HTML)
	}
	return msg
}

// ConsoleProvider logs emails instead of sending them (for development)
type ConsoleProvider struct {
	logger *logging.Logger
}

func NewConsoleProvider(logger *logging.Logger) *ConsoleProvider {
	if logger == nil {
		logger = logging.Default
	}
	return &ConsoleProvider{logger: logger}
}

func (p *ConsoleProvider) Send(ctx context.Context, email *Email) error {
	p.logger.Info("=== EMAIL (Console Provider) ===", map[string]interface{}{
		"to":      email.To,
		"subject": email.Subject,
		"body":    email.Text,
	})
	return nil
}

var friendRequestHTML = template.Must(template.New("friend_request_html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <p style="font-size: 16px;">Hi {{.RecipientName}},</p>
  <p style="font-size: 16px;"><strong>{{.RequesterName}}</strong> sent you a friend request.</p>
  <p>
    <a href="{{.RequestsURL}}" style="display: inline-block; background: #4F46E5; color: white; padding: 10px 18px; text-decoration: none; border-radius: 6px; margin: 12px 0;">
      Review request
    </a>
  </p>
  <p style="color: #999; font-size: 12px;">You received this because someone asked to connect with you.</p>
</body>
</html>`))

var friendRequestText = texttemplate.Must(texttemplate.New("friend_request_text").Parse(`Hi {{.RecipientName}},

{{.RequesterName}} sent you a friend request.

Review it here: {{.RequestsURL}}
`))

type friendRequestView struct {
	RecipientName string
	RequesterName string
	RequestsURL   string
}

func renderFriendRequestEmail(baseURL, recipientName, requesterName string) (string, string, error) {
	view := friendRequestView{
		RecipientName: displayNameOr(recipientName, "there"),
		RequesterName: displayNameOr(requesterName, "Someone"),
		RequestsURL:   strings.TrimRight(baseURL, "/") + "/#friends",
	}

	var html, text bytes.Buffer
	if err := friendRequestHTML.Execute(&html, view); err != nil {
		return "", "", fmt.Errorf("rendering friend request html: %w", err)
	}
	if err := friendRequestText.Execute(&text, view); err != nil {
		return "", "", fmt.Errorf("rendering friend request text: %w", err)
	}
	return html.String(), text.String(), nil
}

func displayNameOr(name, fallback string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return fallback
}
