package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/spec-kit/customer-ledger/internal/config"
)

// InitSentry configures error reporting. It reports false and does nothing when
// no DSN is configured.
func InitSentry(cfg config.Config, logger *zap.Logger) (bool, error) {
	if cfg.Sentry.DSN == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.App.Env,
		Release:          cfg.App.Name + "@" + cfg.App.Version,
		EnableTracing:    cfg.Sentry.TracesSampleRate > 0,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	})
	if err != nil {
		return false, err
	}
	logger.Info("sentry enabled", zap.String("environment", cfg.App.Env))
	return true, nil
}

// FlushSentry waits for buffered events before shutdown.
func FlushSentry(timeout time.Duration) {
	sentry.Flush(timeout)
}
