package notify

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"divecenter-backend/internal/domain"
)

// MailClient is the part of the SendGrid client the sink uses.
type MailClient interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

type EmailConfig struct {
	FromEmail string
	FromName  string
	// StaffEmails maps a center id to the address that receives its alerts.
	StaffEmails map[string]string
	// DefaultStaffEmail is used for centers without their own address.
	DefaultStaffEmail string
	// NotifyRenters also mails the renter when their rental turns overdue.
	NotifyRenters bool
}

// EmailSink sends alerts to center staff through SendGrid.
type EmailSink struct {
	client MailClient
	cfg    EmailConfig
}

func NewEmailSink(apiKey string, cfg EmailConfig) *EmailSink {
	return NewEmailSinkWithClient(sendgrid.NewSendClient(apiKey), cfg)
}

func NewEmailSinkWithClient(client MailClient, cfg EmailConfig) *EmailSink {
	return &EmailSink{client: client, cfg: cfg}
}

func (s *EmailSink) Name() string { return "sendgrid" }

func (s *EmailSink) Send(ctx context.Context, ev domain.Event) error {
	title, message := Describe(ev)

	var errs []error
	if to := s.staffAddress(ev.CenterID); to != "" {
		if err := s.send(ctx, to, "", title, message); err != nil {
			errs = append(errs, err)
		}
	}
	if s.cfg.NotifyRenters && ev.Kind == domain.EventRentalOverdue && ev.RenterEmail != "" {
		body := fmt.Sprintf("Hello %s, the equipment you rented was due back on %s. Please return it to the dive center.",
			ev.RenterName, dueDate(ev))
		if err := s.send(ctx, ev.RenterEmail, ev.RenterName, "Your rental is overdue", body); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *EmailSink) staffAddress(centerID string) string {
	if to, ok := s.cfg.StaffEmails[centerID]; ok && to != "" {
		return to
	}
	return s.cfg.DefaultStaffEmail
}

func (s *EmailSink) send(ctx context.Context, to, toName, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := mail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	recipient := mail.NewEmail(toName, to)
	htmlContent := fmt.Sprintf("<html><body><p>%s</p></body></html>", html.EscapeString(body))

	msg := mail.NewSingleEmail(from, subject, recipient, body, htmlContent)
	response, err := s.client.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func dueDate(ev domain.Event) string {
	if ev.DueDate == nil {
		return "the agreed date"
	}
	return ev.DueDate.Format("2006-01-02")
}
