package authkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig(testSigningKey)
	require.NoError(t, cfg.Validate())

	missing := cfg
	missing.SigningKey = nil
	require.Error(t, missing.Validate())

	zeroAccess := cfg
	zeroAccess.AccessTTL = 0
	require.Error(t, zeroAccess.Validate())

	zeroReset := cfg
	zeroReset.ResetPasswordTTL = 0
	require.Error(t, zeroReset.Validate())
}

func TestConfigTTLFor(t *testing.T) {
	cfg := DefaultConfig(testSigningKey)

	assert.Equal(t, cfg.AccessTTL, cfg.TTLFor(PurposeAccess))
	assert.Equal(t, cfg.RefreshTTL, cfg.TTLFor(PurposeRefresh))
	assert.Equal(t, cfg.ResetPasswordTTL, cfg.TTLFor(PurposeResetPassword))
	assert.Equal(t, cfg.VerifyEmailTTL, cfg.TTLFor(PurposeVerifyEmail))
	assert.Equal(t, time.Duration(0), cfg.TTLFor(TokenPurpose("bogus")))
}
