package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/nbekov/account-service/internal/metrics"
	"github.com/nbekov/account-service/internal/repository"
	"github.com/robfig/cron/v3"
)

// Purger periodically deletes expired reset-token records. Consumed
// tokens are kept until their expiry passes so the single-use claim
// keeps rejecting replays for the full token lifetime.
type Purger struct {
	users  repository.UserRepository
	logger *slog.Logger
	cron   *cron.Cron
}

func NewPurger(users repository.UserRepository, logger *slog.Logger) *Purger {
	return &Purger{
		users:  users,
		logger: logger.With("component", "reset_token_purger"),
		cron:   cron.New(),
	}
}

func (p *Purger) Start() error {
	if _, err := p.cron.AddFunc("@hourly", p.run); err != nil {
		return err
	}
	p.cron.Start()
	return nil
}

// Stop waits for a running purge cycle to finish.
func (p *Purger) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Purger) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	purged, err := p.users.PurgeResetTokens(ctx, time.Now())
	if err != nil {
		p.logger.Error("purge reset tokens", "error", err)
		return
	}
	if purged > 0 {
		metrics.ResetTokensPurgedTotal.Add(float64(purged))
		p.logger.Info("purged expired reset tokens", "count", purged)
	}
}
