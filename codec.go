package authkit

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenClaims is the signed payload: subject, purpose, expiry, issue time.
type TokenClaims struct {
	jwt.RegisteredClaims
	Purpose TokenPurpose `json:"purpose"`
}

// SubjectID parses the subject claim back into a user id.
func (c *TokenClaims) SubjectID() (uuid.UUID, error) {
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}
	return id, nil
}

// Codec creates and parses compact signed tokens. It is pure: Decode is a
// stateless cryptographic check and never consults the store.
type Codec struct {
	signingKey []byte
	issuer     string
	now        Clock
	logger     Logger
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithCodecClock overrides the clock used for expiry checks. Tests use
// this to pin time.
func WithCodecClock(now Clock) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCodecLogger overrides the codec logger.
func WithCodecLogger(logger Logger) CodecOption {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCodec creates a Codec signing with the given HMAC secret.
func NewCodec(signingKey []byte, issuer string, opts ...CodecOption) *Codec {
	c := &Codec{
		signingKey: signingKey,
		issuer:     issuer,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode serializes {jti, sub, purpose, exp, iat} and signs it with
// HS256. The jti keeps two tokens minted within the same second from
// serializing identically; timestamps alone have second precision.
func (c *Codec) Encode(subjectID uuid.UUID, purpose TokenPurpose, expiresAt time.Time) (string, error) {
	if !purpose.Valid() {
		return "", goerrors.New("unknown token purpose", goerrors.CategoryBadInput)
	}

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    c.issuer,
			Subject:   subjectID.String(),
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Purpose: purpose,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedValue, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signedValue, nil
}

// Decode verifies signature and expiry and returns the claims. Failures
// map to ErrInvalidSignature, ErrTokenMalformed, or ErrTokenExpired; a
// token signed by us but past its expiry always reports expired, never a
// signature failure.
func (c *Codec) Decode(signedValue string) (*TokenClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	parserOptions = append(parserOptions, jwt.WithTimeFunc(c.now))
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}

	token, err := jwt.ParseWithClaims(signedValue, &TokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("codec rejected unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, parserOptions...)

	if err != nil {
		switch {
		case goerrors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		c.logger.Error("codec could not decode claims")
		return nil, ErrTokenMalformed
	}

	if !claims.Purpose.Valid() {
		return nil, ErrTokenMalformed
	}
	if claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}
	// The expiry boundary is exclusive: a token is valid only while
	// now < expiresAt.
	if !c.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
