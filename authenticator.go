package authkit

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Authenticator composes the token lifecycle with the user repository and
// the password-hash capability to implement the login, logout, refresh,
// password reset, and email verification flows.
type Authenticator struct {
	repo      RepositoryManager
	lifecycle *TokenLifecycle
	mailer    Mailer
	logger    Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, lifecycle *TokenLifecycle) *Authenticator {
	return &Authenticator{
		repo:      repo,
		lifecycle: lifecycle,
		mailer:    noopMailer{},
		logger:    defLogger{},
	}
}

// WithMailer configures the outbound email collaborator.
func (a *Authenticator) WithMailer(mailer Mailer) *Authenticator {
	if mailer != nil {
		a.mailer = mailer
	}
	return a
}

// WithLogger overrides the logger.
func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Lifecycle returns the TokenLifecycle instance used by this Authenticator
func (a *Authenticator) Lifecycle() *TokenLifecycle {
	return a.lifecycle
}

// RegisterUserMessage is the registration input.
type RegisterUserMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user with a bcrypt digest and issues the first
// access+refresh pair. Duplicate emails fail with ErrEmailTaken.
func (a *Authenticator) Register(ctx context.Context, msg RegisterUserMessage) (*User, *TokenPair, error) {
	hash, err := HashPassword(msg.Password)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	user := &User{
		Name:         msg.Name,
		Email:        msg.Email,
		PasswordHash: hash,
		Role:         RoleUser,
	}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err = a.repo.Users().RegisterTx(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	pair, err := a.lifecycle.IssueAuthPair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, pair, nil
}

// Login verifies email+password and issues a token pair. Unknown email and
// wrong password both fail with the identical ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*User, *TokenPair, error) {
	user, err := a.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if isNoRows(err) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not look up user")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := a.lifecycle.IssueAuthPair(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	if err := a.repo.Users().TrackSuccessfulLogin(ctx, user); err != nil {
		a.logger.Error("failed to track login for user %s: %v", user.ID, err)
	}

	return user, pair, nil
}

// Logout consumes the refresh token. A second logout with the same token
// fails with ErrTokenNotFound; repeated logout is a client error, not a
// silent success. Store failures are not token state and pass through as
// internal errors.
func (a *Authenticator) Logout(ctx context.Context, refreshToken string) error {
	_, err := a.lifecycle.Consume(ctx, refreshToken, PurposeRefresh)
	if err != nil {
		a.logger.Debug("logout rejected: %v", err)

		var rich *goerrors.Error
		if goerrors.As(err, &rich) && rich.Category == goerrors.CategoryInternal {
			return err
		}
		return ErrTokenNotFound
	}
	return nil
}

// Refresh rotates the refresh token into a new pair. All failure causes
// collapse into ErrUnauthenticated so callers cannot probe whether a token
// ever existed.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := a.lifecycle.RotateRefresh(ctx, refreshToken)
	if err != nil {
		a.logger.Debug("refresh rejected: %v", err)
		return nil, ErrUnauthenticated
	}
	return pair, nil
}

// VerifyAccess validates a bearer access token and returns its subject.
func (a *Authenticator) VerifyAccess(ctx context.Context, accessToken string) (uuid.UUID, error) {
	subjectID, err := a.lifecycle.Verify(ctx, accessToken, PurposeAccess)
	if err != nil {
		a.logger.Debug("access token rejected: %v", err)
		return uuid.Nil, ErrUnauthenticated
	}
	return subjectID, nil
}

// ForgotPassword issues a reset-password token for the account and hands
// it to the mailer. An unknown email fails with a not-found error; see
// DESIGN.md for the enumeration trade-off kept from the source behavior.
func (a *Authenticator) ForgotPassword(ctx context.Context, email string) error {
	user, err := a.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if isNoRows(err) {
			return goerrors.New("no users found with this email", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not look up user")
	}

	token, err := a.lifecycle.Issue(ctx, user.ID, PurposeResetPassword, 0)
	if err != nil {
		return err
	}

	a.deliver(user.Email, token.Token, a.mailer.SendResetPasswordEmail)
	return nil
}

// ResetPassword verifies the reset token, swaps the credential digest, and
// burns every outstanding reset token for the subject. Outstanding refresh
// tokens are revoked too: a reset usually means the old credential is
// suspect, so live sessions must not survive it.
func (a *Authenticator) ResetPassword(ctx context.Context, token, newPassword string) error {
	subjectID, err := a.lifecycle.Verify(ctx, token, PurposeResetPassword)
	if err != nil {
		a.logger.Debug("reset token rejected: %v", err)
		return ErrUnauthenticated
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := a.repo.Users().ResetPasswordTx(ctx, tx, subjectID, hash); err != nil {
			if isNoRows(err) {
				return ErrUnauthenticated
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user password")
		}

		if _, err := a.repo.TokenRecords().DeleteAllByUserAndPurposeTx(ctx, tx, subjectID, PurposeResetPassword); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate reset tokens")
		}

		if _, err := a.repo.TokenRecords().DeleteAllByUserAndPurposeTx(ctx, tx, subjectID, PurposeRefresh); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke refresh tokens")
		}

		return nil
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	return nil
}

// SendVerificationEmail issues a verify-email token for the subject and
// hands it to the mailer.
func (a *Authenticator) SendVerificationEmail(ctx context.Context, subjectID uuid.UUID) error {
	user, err := a.repo.Users().GetByID(ctx, subjectID.String())
	if err != nil {
		if isNoRows(err) {
			return ErrUnauthenticated
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not look up user")
	}

	token, err := a.lifecycle.Issue(ctx, user.ID, PurposeVerifyEmail, 0)
	if err != nil {
		return err
	}

	a.deliver(user.Email, token.Token, a.mailer.SendVerificationEmail)
	return nil
}

// VerifyEmail verifies the token, marks the account verified, and burns
// every outstanding verify-email token for the subject.
func (a *Authenticator) VerifyEmail(ctx context.Context, token string) error {
	subjectID, err := a.lifecycle.Verify(ctx, token, PurposeVerifyEmail)
	if err != nil {
		a.logger.Debug("verification token rejected: %v", err)
		return ErrUnauthenticated
	}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := a.repo.Users().MarkEmailVerifiedTx(ctx, tx, subjectID); err != nil {
			if isNoRows(err) {
				return ErrUnauthenticated
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark email verified")
		}

		if _, err := a.repo.TokenRecords().DeleteAllByUserAndPurposeTx(ctx, tx, subjectID, PurposeVerifyEmail); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate verification tokens")
		}

		return nil
	})
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize email verification")
	}

	return nil
}

// deliver hands a token to the mailer without blocking the request and
// without tying the send to the request's cancellation.
func (a *Authenticator) deliver(email, token string, send func(context.Context, string, string) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := send(ctx, email, token); err != nil {
			a.logger.Error("email delivery to %s failed: %v", email, err)
		}
	}()
}
