package authkit

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Config holds the process-wide auth options. It is built once at startup
// and treated as immutable; the signing secret is never read from ambient
// state after construction.
type Config struct {
	SigningKey       []byte
	Issuer           string
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	ResetPasswordTTL time.Duration
	VerifyEmailTTL   time.Duration
}

// DefaultConfig returns a Config with conventional TTLs for the four
// purposes. The signing key has no default.
func DefaultConfig(signingKey []byte) Config {
	return Config{
		SigningKey:       signingKey,
		Issuer:           "authkit",
		AccessTTL:        30 * time.Minute,
		RefreshTTL:       30 * 24 * time.Hour,
		ResetPasswordTTL: 10 * time.Minute,
		VerifyEmailTTL:   10 * time.Minute,
	}
}

// Validate checks the config is usable.
func (c Config) Validate() error {
	if len(c.SigningKey) == 0 {
		return goerrors.New("signing key is required", goerrors.CategoryBadInput)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return goerrors.New("access and refresh TTLs must be positive", goerrors.CategoryBadInput)
	}
	if c.ResetPasswordTTL <= 0 || c.VerifyEmailTTL <= 0 {
		return goerrors.New("reset and verify TTLs must be positive", goerrors.CategoryBadInput)
	}
	return nil
}

// TTLFor returns the configured time-to-live for a token purpose.
func (c Config) TTLFor(purpose TokenPurpose) time.Duration {
	switch purpose {
	case PurposeAccess:
		return c.AccessTTL
	case PurposeRefresh:
		return c.RefreshTTL
	case PurposeResetPassword:
		return c.ResetPasswordTTL
	case PurposeVerifyEmail:
		return c.VerifyEmailTTL
	}
	return 0
}
