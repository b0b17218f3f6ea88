package authkit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pinned(at time.Time) Clock {
	return func() time.Time { return at }
}

func TestCodecRoundTrip(t *testing.T) {
	codec := NewCodec(testSigningKey, "authkit-test")
	subject := uuid.New()
	expiresAt := time.Now().Add(10 * time.Minute)

	signed, err := codec.Encode(subject, PurposeRefresh, expiresAt)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := codec.Decode(signed)
	require.NoError(t, err)

	assert.Equal(t, PurposeRefresh, claims.Purpose)
	assert.Equal(t, "authkit-test", claims.Issuer)

	decoded, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, subject, decoded)
}

func TestCodecRejectsUnknownPurpose(t *testing.T) {
	codec := NewCodec(testSigningKey, "authkit-test")

	_, err := codec.Encode(uuid.New(), TokenPurpose("bogus"), time.Now().Add(time.Minute))
	require.Error(t, err)
}

func TestCodecRejectsWrongKey(t *testing.T) {
	signer := NewCodec(testSigningKey, "authkit-test")
	verifier := NewCodec([]byte("a-completely-different-secret!!!"), "authkit-test")

	signed, err := signer.Encode(uuid.New(), PurposeAccess, time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = verifier.Decode(signed)
	require.ErrorIs(t, err, ErrInvalidSignature)
	assert.True(t, HasTextCode(err, TextCodeInvalidSignature))
}

func TestCodecRejectsWrongIssuer(t *testing.T) {
	signer := NewCodec(testSigningKey, "other-service")
	verifier := NewCodec(testSigningKey, "authkit-test")

	signed, err := signer.Encode(uuid.New(), PurposeAccess, time.Now().Add(time.Minute))
	require.NoError(t, err)

	_, err = verifier.Decode(signed)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestCodecRejectsGarbage(t *testing.T) {
	codec := NewCodec(testSigningKey, "authkit-test")

	for _, input := range []string{"", "not-a-token", "aaaa.bbbb.cccc"} {
		_, err := codec.Decode(input)
		require.ErrorIs(t, err, ErrTokenMalformed, "input %q", input)
	}
}

func TestCodecExpiredToken(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := issuedAt.Add(10 * time.Minute)

	signer := NewCodec(testSigningKey, "authkit-test", WithCodecClock(pinned(issuedAt)))
	signed, err := signer.Encode(uuid.New(), PurposeRefresh, expiresAt)
	require.NoError(t, err)

	late := NewCodec(testSigningKey, "authkit-test", WithCodecClock(pinned(expiresAt.Add(time.Hour))))
	_, err = late.Decode(signed)
	require.ErrorIs(t, err, ErrTokenExpired)
	assert.True(t, HasTextCode(err, TextCodeTokenExpired))
}

func TestCodecExpiryBoundaryIsExclusive(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiresAt := issuedAt.Add(10 * time.Minute)

	signer := NewCodec(testSigningKey, "authkit-test", WithCodecClock(pinned(issuedAt)))
	signed, err := signer.Encode(uuid.New(), PurposeAccess, expiresAt)
	require.NoError(t, err)

	// One second before expiry the token is still valid.
	before := NewCodec(testSigningKey, "authkit-test", WithCodecClock(pinned(expiresAt.Add(-time.Second))))
	_, err = before.Decode(signed)
	require.NoError(t, err)

	// At exactly the expiry instant it is already expired.
	at := NewCodec(testSigningKey, "authkit-test", WithCodecClock(pinned(expiresAt)))
	_, err = at.Decode(signed)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodecExpiredBeatsSignatureOrder(t *testing.T) {
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	signer := NewCodec(testSigningKey, "authkit-test", WithCodecClock(pinned(issuedAt)))
	signed, err := signer.Encode(uuid.New(), PurposeAccess, issuedAt.Add(time.Minute))
	require.NoError(t, err)

	// A token we signed that has expired reports expired, never a
	// signature failure.
	late := NewCodec(testSigningKey, "authkit-test", WithCodecClock(pinned(issuedAt.Add(time.Hour))))
	_, err = late.Decode(signed)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenClaimsSubjectIDRejectsNonUUID(t *testing.T) {
	claims := &TokenClaims{}
	claims.Subject = "not-a-uuid"

	_, err := claims.SubjectID()
	require.ErrorIs(t, err, ErrTokenMalformed)
}
