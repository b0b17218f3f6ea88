package authkit

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes surfaced on rich errors so callers can branch without
// string-matching messages.
const (
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeInvalidSignature   = "TOKEN_INVALID_SIGNATURE"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenNotFound      = "TOKEN_NOT_FOUND"
	TextCodeDuplicateToken     = "TOKEN_DUPLICATE"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
)

var (
	// ErrTokenMalformed means the token string could not be parsed at all.
	ErrTokenMalformed = goerrors.New("malformed token", goerrors.CategoryAuth).
				WithTextCode(TextCodeTokenMalformed)

	// ErrInvalidSignature means the token parsed but was not signed with
	// our secret.
	ErrInvalidSignature = goerrors.New("invalid token signature", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidSignature)

	// ErrTokenExpired means the token signature verified but its expiry
	// instant has passed. A token is valid strictly for t < expiresAt.
	ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
			WithTextCode(TextCodeTokenExpired)

	// ErrTokenNotFound means the signature verified but no live record
	// matches. Covers consumed, revoked, and never-issued tokens; callers
	// cannot tell those apart.
	ErrTokenNotFound = goerrors.New("token not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithTextCode(TextCodeTokenNotFound)

	// ErrDuplicateToken is a store uniqueness violation on insert. Should
	// not happen under correct issuance.
	ErrDuplicateToken = goerrors.New("duplicate token record", goerrors.CategoryConflict).
				WithTextCode(TextCodeDuplicateToken)

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = goerrors.New("incorrect email or password", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeInvalidCredentials)

	// ErrUnauthenticated is the umbrella failure for refresh, password
	// reset, and email verification. The internal cause (expired, forged,
	// consumed) is logged but never surfaced.
	ErrUnauthenticated = goerrors.New("please authenticate", goerrors.CategoryAuth).
				WithCode(goerrors.CodeUnauthorized).
				WithTextCode(TextCodeUnauthenticated)

	// ErrEmailTaken is returned on registration with an existing email.
	// Enumeration through registration is accepted, per the login/register
	// asymmetry in the error policy.
	ErrEmailTaken = goerrors.New("email already taken", goerrors.CategoryConflict).
			WithTextCode(TextCodeEmailTaken)

	// ErrNoEmptyString rejects empty passwords before hashing.
	ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput)

	// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
	ErrMismatchedHashAndPassword = goerrors.New("password does not match", goerrors.CategoryAuth)
)

// HasTextCode reports whether err carries the given rich-error text code.
func HasTextCode(err error, code string) bool {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}
