package repo

import (
	"context"
	"time"

	"github.com/minjcho/auth-service/internal/logging"
)

// Pruner removes blacklist entries that have aged past the retention
// window. Retention must be at least the longest token lifetime, which
// config.Load guarantees, so a revoked token is never forgotten while it
// could still verify.
type Pruner struct {
	Repo      *GormRepo
	Retention time.Duration
	Interval  time.Duration

	Now func() time.Time
}

func (p *Pruner) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pruner) Run(ctx context.Context) {
	l := logging.FromContext(ctx).With("svc", "blacklist.pruner")

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			horizon := p.now().Add(-p.Retention)
			n, err := p.Repo.PruneBlacklist(ctx, horizon)
			if err != nil {
				l.Error("prune_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("pruned_blacklist", "removed", n)
			}
		}
	}
}
