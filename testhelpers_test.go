package authkit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

var testSigningKey = []byte("test-signing-key-0123456789abcdef")

// newTestDB opens a per-test in-memory database with the schema applied.
// A single connection keeps the shared memory database alive and
// serializes concurrent writers.
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, RunMigrations(context.Background(), db))

	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() Config {
	cfg := DefaultConfig(testSigningKey)
	cfg.Issuer = "authkit-test"
	return cfg
}

func newTestLifecycle(t *testing.T) (*TokenLifecycle, RepositoryManager, *bun.DB) {
	t.Helper()

	db := newTestDB(t)
	repo := NewRepositoryManager(db)
	cfg := testConfig()
	codec := NewCodec(cfg.SigningKey, cfg.Issuer)
	return NewTokenLifecycle(codec, repo, cfg), repo, db
}

// newTestLifecycleWithClock pins the same clock on the codec and the
// lifecycle so embedded and stored expiries move together.
func newTestLifecycleWithClock(t *testing.T, now Clock) (*TokenLifecycle, RepositoryManager, *bun.DB) {
	t.Helper()

	db := newTestDB(t)
	repo := NewRepositoryManager(db)
	cfg := testConfig()
	codec := NewCodec(cfg.SigningKey, cfg.Issuer, WithCodecClock(now))
	lifecycle := NewTokenLifecycle(codec, repo, cfg, WithLifecycleClock(now))
	return lifecycle, repo, db
}

// captureMailer hands delivered tokens back to the test over channels.
type captureMailer struct {
	resetTokens  chan string
	verifyTokens chan string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{
		resetTokens:  make(chan string, 4),
		verifyTokens: make(chan string, 4),
	}
}

func (m *captureMailer) SendResetPasswordEmail(ctx context.Context, email, token string) error {
	m.resetTokens <- token
	return nil
}

func (m *captureMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	m.verifyTokens <- token
	return nil
}

// waitForToken blocks until the mailer delivers or the test times out.
// Delivery runs on a background goroutine so tests must rendezvous here.
func waitForToken(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case token := <-ch:
		return token
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mailer delivery")
		return ""
	}
}

func countTokenRecords(t *testing.T, db *bun.DB, purpose TokenPurpose) int {
	t.Helper()
	count, err := db.NewSelect().
		Model((*TokenRecord)(nil)).
		Where("?TableAlias.purpose = ?", string(purpose)).
		Count(context.Background())
	require.NoError(t, err)
	return count
}
