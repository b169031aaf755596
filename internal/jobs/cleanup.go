package jobs

import (
	"context"
	"time"

	"todoclient/internal/logging"
)

// TokenPurger deletes refresh tokens that expired or were revoked before cutoff
type TokenPurger interface {
	CleanupExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanup returns a job that purges refresh tokens older than retention
func TokenCleanup(purger TokenPurger, retention time.Duration, now func() time.Time) func(context.Context) error {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context) error {
		n, err := purger.CleanupExpiredTokens(ctx, now().Add(-retention))
		if err != nil {
			return err
		}
		if n > 0 {
			logging.Component("jobs").WithField("deleted", n).Info("Purged refresh tokens")
		}
		return nil
	}
}
