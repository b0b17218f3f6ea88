package authkit

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the package needs. The default
// writes to stdout; cmd/server wires a zerolog-backed implementation.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DEBUG] "+format+"\n", args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INFO] "+format+"\n", args...)
}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERROR] "+format+"\n", args...)
}

// Mailer delivers outbound email. Delivery is fire-and-forget from the
// orchestrator's point of view: a failed send never rolls back a token
// that was already issued.
type Mailer interface {
	SendResetPasswordEmail(ctx context.Context, email, token string) error
	SendVerificationEmail(ctx context.Context, email, token string) error
}

type noopMailer struct{}

func (noopMailer) SendResetPasswordEmail(ctx context.Context, email, token string) error {
	return nil
}

func (noopMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	return nil
}

// NewNoopMailer returns a Mailer that silently discards all messages.
func NewNoopMailer() Mailer { return noopMailer{} }

// Clock returns the current time. Every expiry comparison in the package
// goes through an injected Clock so tests can control time.
type Clock func() time.Time
