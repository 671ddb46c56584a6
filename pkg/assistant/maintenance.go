package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
)

// Archived turns older than this are pruned by maintenance runs.
const archiveRetention = 30 * 24 * time.Hour

// RunMaintenance starts the cron-driven maintenance loop and blocks until
// ctx is cancelled. The schedule comes from app.maintenance_cron.
func (a *Assistant) RunMaintenance(ctx context.Context) error {
	expr := a.cfg.App.MaintenanceCron
	if expr == "" {
		<-ctx.Done()
		return nil
	}
	if !gronx.New().IsValid(expr) {
		return fmt.Errorf("invalid maintenance cron %q", expr)
	}

	a.log.Info().Str("cron", expr).Msg("maintenance scheduler started")
	for {
		next, err := gronx.NextTickAfter(expr, time.Now(), false)
		if err != nil {
			return fmt.Errorf("compute next maintenance tick: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		a.runMaintenanceOnce(ctx)
	}
}

func (a *Assistant) runMaintenanceOnce(ctx context.Context) {
	if a.archive == nil {
		return
	}
	cutoff := time.Now().Add(-archiveRetention)
	removed, err := a.archive.PruneMessagesBefore(ctx, cutoff)
	if err != nil {
		a.log.Error().Err(err).Msg("prune archive")
		return
	}
	if removed > 0 {
		a.log.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("pruned archived messages")
	}
}
