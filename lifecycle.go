package authkit

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenLifecycle orchestrates issuance, verification-with-consumption,
// rotation, and bulk invalidation across the codec and the record store.
//
// Per token the states are issued, consumed, expired, revoked. Issued
// records are immutable; every transition out of issued deletes the row.
type TokenLifecycle struct {
	codec  *Codec
	repo   RepositoryManager
	config Config
	now    Clock
	logger Logger
}

// LifecycleOption configures a TokenLifecycle.
type LifecycleOption func(*TokenLifecycle)

// WithLifecycleClock overrides the clock used for expiry math.
func WithLifecycleClock(now Clock) LifecycleOption {
	return func(l *TokenLifecycle) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLifecycleLogger overrides the logger.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(l *TokenLifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewTokenLifecycle wires the codec and store behind one lifecycle
// manager. The same clock drives token expiry and record expiry checks.
func NewTokenLifecycle(codec *Codec, repo RepositoryManager, config Config, opts ...LifecycleOption) *TokenLifecycle {
	l := &TokenLifecycle{
		codec:  codec,
		repo:   repo,
		config: config,
		now:    time.Now,
		logger: defLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Issue mints a signed token for the subject and, for persisted purposes,
// records it. Access tokens skip persistence: signature plus embedded
// expiry is their whole lifecycle.
func (l *TokenLifecycle) Issue(ctx context.Context, subjectID uuid.UUID, purpose TokenPurpose, ttl time.Duration) (TokenInfo, error) {
	if !purpose.Valid() {
		return TokenInfo{}, goerrors.New("unknown token purpose", goerrors.CategoryBadInput)
	}
	if ttl <= 0 {
		ttl = l.config.TTLFor(purpose)
	}

	expiresAt := l.now().Add(ttl)

	signedValue, err := l.codec.Encode(subjectID, purpose, expiresAt)
	if err != nil {
		return TokenInfo{}, err
	}

	if purpose.Persisted() {
		record := &TokenRecord{
			SignedValue: signedValue,
			SubjectID:   subjectID,
			Purpose:     purpose,
			ExpiresAt:   expiresAt,
		}
		if _, err := l.repo.TokenRecords().Insert(ctx, record); err != nil {
			return TokenInfo{}, err
		}
	}

	return TokenInfo{Token: signedValue, Expires: expiresAt}, nil
}

// IssueAuthPair mints the access+refresh pair handed out by login,
// registration, and rotation.
func (l *TokenLifecycle) IssueAuthPair(ctx context.Context, subjectID uuid.UUID) (*TokenPair, error) {
	access, err := l.Issue(ctx, subjectID, PurposeAccess, l.config.AccessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := l.Issue(ctx, subjectID, PurposeRefresh, l.config.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Verify checks a token without consuming it and returns its subject.
// The codec runs first so forged, malformed, and expired input never
// reaches the store. For persisted purposes the record must still exist;
// its absence means consumed, revoked, or never issued, reported
// uniformly as ErrTokenNotFound.
func (l *TokenLifecycle) Verify(ctx context.Context, signedValue string, purpose TokenPurpose) (uuid.UUID, error) {
	claims, err := l.codec.Decode(signedValue)
	if err != nil {
		return uuid.Nil, err
	}

	if claims.Purpose != purpose {
		return uuid.Nil, ErrTokenNotFound
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		return uuid.Nil, err
	}

	if !purpose.Persisted() {
		return subjectID, nil
	}

	record, err := l.repo.TokenRecords().FindOne(ctx, signedValue, subjectID, purpose)
	if err != nil {
		return uuid.Nil, err
	}

	// Stored expiry is checked against the same clock; an expired row that
	// has not been purged yet must fail as expired, not as found.
	if !l.now().Before(record.ExpiresAt) {
		return uuid.Nil, ErrTokenExpired
	}

	return subjectID, nil
}

// Consume verifies and retires a single-use token in one step. The
// conditional delete's affected count decides the race: of N concurrent
// calls on the same signedValue exactly one observes count 1; the rest
// get ErrTokenNotFound.
func (l *TokenLifecycle) Consume(ctx context.Context, signedValue string, purpose TokenPurpose) (uuid.UUID, error) {
	if !purpose.Persisted() {
		return uuid.Nil, goerrors.New("purpose is not consumable", goerrors.CategoryBadInput)
	}

	claims, err := l.codec.Decode(signedValue)
	if err != nil {
		return uuid.Nil, err
	}

	if claims.Purpose != purpose {
		return uuid.Nil, ErrTokenNotFound
	}

	subjectID, err := claims.SubjectID()
	if err != nil {
		return uuid.Nil, err
	}

	count, err := l.repo.TokenRecords().DeleteBySignedValue(ctx, signedValue, subjectID, purpose)
	if err != nil {
		return uuid.Nil, err
	}
	if count == 0 {
		return uuid.Nil, ErrTokenNotFound
	}

	return subjectID, nil
}

// RotateRefresh retires a refresh token and mints a fresh access+refresh
// pair. If the consume step fails the rotation aborts with no new tokens.
func (l *TokenLifecycle) RotateRefresh(ctx context.Context, oldSignedValue string) (*TokenPair, error) {
	subjectID, err := l.Consume(ctx, oldSignedValue, PurposeRefresh)
	if err != nil {
		return nil, err
	}

	return l.IssueAuthPair(ctx, subjectID)
}

// InvalidateAllForUser burns every outstanding token of one purpose for a
// subject. Used to kill sibling reset links and verification emails once
// one of them succeeds, and to revoke sessions after a password reset.
func (l *TokenLifecycle) InvalidateAllForUser(ctx context.Context, subjectID uuid.UUID, purpose TokenPurpose) (int64, error) {
	if !purpose.Persisted() {
		return 0, goerrors.New("purpose is not persisted", goerrors.CategoryBadInput)
	}
	return l.repo.TokenRecords().DeleteAllByUserAndPurpose(ctx, subjectID, purpose)
}
