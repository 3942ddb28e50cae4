// Package mailer delivers transactional email for the API. Providers are
// pluggable so the service can run against the real Resend backend in
// production and a log-only backend everywhere else.
package mailer

import "fmt"

// Message is a single outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// SendResult carries the provider-assigned identifier for a delivered message.
type SendResult struct {
	ProviderMessageID string
}

// Provider is a concrete delivery backend.
type Provider interface {
	Name() string
	Send(msg Message) (SendResult, error)
}

// Mailer wraps a provider with a default sender address.
type Mailer struct {
	provider    Provider
	fromAddress string
}

func New(provider Provider, fromAddress string) *Mailer {
	return &Mailer{provider: provider, fromAddress: fromAddress}
}

// Send delivers msg through the configured provider. An empty From falls
// back to the mailer's default sender.
func (m *Mailer) Send(msg Message) (SendResult, error) {
	if msg.From == "" {
		msg.From = m.fromAddress
	}
	if len(msg.To) == 0 {
		return SendResult{}, fmt.Errorf("mailer: message has no recipients")
	}
	if msg.Subject == "" {
		return SendResult{}, fmt.Errorf("mailer: message has no subject")
	}
	return m.provider.Send(msg)
}

// ProviderName reports which backend this mailer delivers through.
func (m *Mailer) ProviderName() string {
	return m.provider.Name()
}
