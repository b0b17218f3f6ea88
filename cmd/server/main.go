package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	authkit "github.com/nmoreau/go-authkit"
)

type serverConfig struct {
	Addr             string        `env:"AUTHKIT_ADDR" envDefault:":8080"`
	DatabaseDSN      string        `env:"AUTHKIT_DB_DSN" envDefault:"file:authkit.db?cache=shared"`
	SigningSecret    string        `env:"AUTHKIT_JWT_SECRET,required"`
	Issuer           string        `env:"AUTHKIT_ISSUER" envDefault:"authkit"`
	AccessTTL        time.Duration `env:"AUTHKIT_ACCESS_TTL" envDefault:"30m"`
	RefreshTTL       time.Duration `env:"AUTHKIT_REFRESH_TTL" envDefault:"720h"`
	ResetPasswordTTL time.Duration `env:"AUTHKIT_RESET_TTL" envDefault:"10m"`
	VerifyEmailTTL   time.Duration `env:"AUTHKIT_VERIFY_TTL" envDefault:"10m"`
	Debug            bool          `env:"AUTHKIT_DEBUG" envDefault:"false"`
}

// zeroLogger adapts zerolog to the authkit.Logger interface.
type zeroLogger struct {
	log zerolog.Logger
}

func (z zeroLogger) Debug(format string, args ...any) { z.log.Debug().Msgf(format, args...) }
func (z zeroLogger) Info(format string, args ...any)  { z.log.Info().Msgf(format, args...) }
func (z zeroLogger) Error(format string, args ...any) { z.log.Error().Msgf(format, args...) }

// logMailer logs outbound tokens instead of delivering them. Swap for a
// real SMTP implementation in production.
type logMailer struct {
	log zerolog.Logger
}

func (m logMailer) SendResetPasswordEmail(ctx context.Context, email, token string) error {
	m.log.Info().Str("email", email).Str("token", token).Msg("reset password email")
	return nil
}

func (m logMailer) SendVerificationEmail(ctx context.Context, email, token string) error {
	m.log.Info().Str("email", email).Str("token", token).Msg("verification email")
	return nil
}

func main() {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg := serverConfig{}
	if err := env.Parse(&cfg); err != nil {
		zl.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.Debug {
		zl = zl.Level(zerolog.DebugLevel)
	} else {
		zl = zl.Level(zerolog.InfoLevel)
	}
	logger := zeroLogger{log: zl}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DatabaseDSN)
	if err != nil {
		zl.Fatal().Err(err).Msg("could not open database")
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	defer db.Close()

	ctx := context.Background()
	if err := authkit.RunMigrations(ctx, db); err != nil {
		zl.Fatal().Err(err).Msg("could not run migrations")
	}

	repo := authkit.NewRepositoryManager(db)
	repo.MustValidate()

	authCfg := authkit.Config{
		SigningKey:       []byte(cfg.SigningSecret),
		Issuer:           cfg.Issuer,
		AccessTTL:        cfg.AccessTTL,
		RefreshTTL:       cfg.RefreshTTL,
		ResetPasswordTTL: cfg.ResetPasswordTTL,
		VerifyEmailTTL:   cfg.VerifyEmailTTL,
	}
	if err := authCfg.Validate(); err != nil {
		zl.Fatal().Err(err).Msg("invalid auth configuration")
	}

	codec := authkit.NewCodec(authCfg.SigningKey, authCfg.Issuer, authkit.WithCodecLogger(logger))
	lifecycle := authkit.NewTokenLifecycle(codec, repo, authCfg, authkit.WithLifecycleLogger(logger))
	authenticator := authkit.NewAuthenticator(repo, lifecycle).
		WithLogger(logger).
		WithMailer(logMailer{log: zl})

	app := fiber.New(fiber.Config{
		DisableStartupMessage: !cfg.Debug,
	})
	authkit.RegisterAuthRoutes(app, authenticator, authkit.WithControllerLogger(logger))

	go func() {
		if err := app.Listen(cfg.Addr); err != nil {
			zl.Fatal().Err(err).Msg("server stopped")
		}
	}()
	zl.Info().Str("addr", cfg.Addr).Msg("auth server listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zl.Error().Err(err).Msg("shutdown error")
	}
}
