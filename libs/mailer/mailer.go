// Package mailer sends transactional email through a pluggable provider.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
)

var (
	// ErrNoRecipients is returned when a message has no To address.
	ErrNoRecipients = errors.New("mailer: message has no recipients")
	// ErrInvalidAddress is returned when a recipient does not parse as an address.
	ErrInvalidAddress = errors.New("mailer: invalid recipient address")
)

// Message represents an email to send. Tags are forwarded to providers
// that support message tagging and are logged by the log provider.
type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
	Tags    map[string]string
}

// SendResult contains the response from the provider.
type SendResult struct {
	ProviderMessageID string
}

// Provider sends emails via a specific backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// Mailer is the top-level entry point for sending emails.
type Mailer struct {
	provider    Provider
	fromAddress string
}

// New creates a Mailer with the given provider and default sender address.
func New(provider Provider, fromAddress string) *Mailer {
	return &Mailer{
		provider:    provider,
		fromAddress: fromAddress,
	}
}

// Select returns a Resend-backed Mailer when resendAPIKey is set and a
// log-only Mailer otherwise. The sender address is looked up in
// fromByProvider by provider name.
func Select(resendAPIKey string, fromByProvider map[string]string, logger *slog.Logger) *Mailer {
	var provider Provider
	if resendAPIKey != "" {
		provider = NewResendProvider(resendAPIKey)
	} else {
		provider = NewLogProvider(logger)
	}
	return New(provider, fromByProvider[provider.Name()])
}

// Send validates the recipients and hands the message to the provider.
// If msg.From is empty, the default sender address is used.
func (m *Mailer) Send(ctx context.Context, msg Message) (SendResult, error) {
	if len(msg.To) == 0 {
		return SendResult{}, ErrNoRecipients
	}
	for _, addr := range msg.To {
		if _, err := mail.ParseAddress(addr); err != nil {
			return SendResult{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
	}
	if msg.From == "" {
		msg.From = m.fromAddress
	}
	return m.provider.Send(ctx, msg)
}

// ProviderName returns the name of the configured provider.
func (m *Mailer) ProviderName() string {
	return m.provider.Name()
}
