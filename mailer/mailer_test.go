package mailer

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

type capturingProvider struct {
	sent Message
}

func (p *capturingProvider) Name() string { return "capture" }

func (p *capturingProvider) Send(msg Message) (SendResult, error) {
	p.sent = msg
	return SendResult{ProviderMessageID: "captured"}, nil
}

func TestMailerAppliesDefaultFrom(t *testing.T) {
	provider := &capturingProvider{}
	m := New(provider, "default@example.com")

	_, err := m.Send(Message{To: []string{"to@example.com"}, Subject: "s"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if provider.sent.From != "default@example.com" {
		t.Fatalf("default From not applied: %q", provider.sent.From)
	}
}

func TestMailerKeepsExplicitFrom(t *testing.T) {
	provider := &capturingProvider{}
	m := New(provider, "default@example.com")

	_, err := m.Send(Message{From: "explicit@example.com", To: []string{"to@example.com"}, Subject: "s"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if provider.sent.From != "explicit@example.com" {
		t.Fatalf("explicit From overridden: %q", provider.sent.From)
	}
}

func TestMailerRejectsIncompleteMessages(t *testing.T) {
	provider := &capturingProvider{}
	m := New(provider, "default@example.com")

	if _, err := m.Send(Message{Subject: "s"}); err == nil {
		t.Fatal("message without recipients must error")
	}
	if _, err := m.Send(Message{To: []string{"to@example.com"}}); err == nil {
		t.Fatal("message without subject must error")
	}
}

func TestLogProviderSend(t *testing.T) {
	provider := NewLogProvider(slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := provider.Send(Message{
		From:    "test@example.com",
		To:      []string{"recipient@example.com"},
		Subject: "Assunto",
		Text:    "corpo",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !strings.HasPrefix(result.ProviderMessageID, "log-") {
		t.Fatalf("message ID = %q, want 'log-' prefix", result.ProviderMessageID)
	}
}

func TestProviderNames(t *testing.T) {
	if got := NewLogProvider(slog.Default()).Name(); got != "log" {
		t.Fatalf("LogProvider.Name() = %q", got)
	}
	if got := NewResendProvider("fake-api-key").Name(); got != "resend" {
		t.Fatalf("ResendProvider.Name() = %q", got)
	}
}
