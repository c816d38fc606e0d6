// Package sweeper demotes entitlements whose expiry has passed and tells
// the affected users to renew. It is the only component that moves an
// entitlement back to inactive.
package sweeper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lumapag/pixgate/internal/clock"
	"github.com/lumapag/pixgate/internal/config"
	entitlementdomain "github.com/lumapag/pixgate/internal/entitlement/domain"
	"github.com/lumapag/pixgate/internal/notify"
	obsmetrics "github.com/lumapag/pixgate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("sweeper: missing dependency")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Repo     entitlementdomain.Repository
	Notifier notify.Notifier
	Plan     *config.PlanHolder
	Config   Config              `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Sweeper struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	repo     entitlementdomain.Repository
	notifier notify.Notifier
	plan     *config.PlanHolder
	metrics  *obsmetrics.Metrics
}

func New(p Params) (*Sweeper, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Repo == nil || p.Notifier == nil || p.Plan == nil {
		return nil, ErrInvalidConfig
	}
	return &Sweeper{
		db:       p.DB,
		log:      p.Log.Named("sweeper"),
		cfg:      p.Config.withDefaults(),
		clock:    p.Clock,
		repo:     p.Repo,
		notifier: p.Notifier,
		plan:     p.Plan,
		metrics:  p.Metrics,
	}, nil
}

// RunOnce runs a single sweep cycle. Row-level problems (an expiry that no
// longer parses, a failed write, a failed notification) are logged and
// skipped so one bad row cannot stall everyone else's demotion.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	grants, err := s.repo.ListActive(ctx, s.db)
	if err != nil {
		return fmt.Errorf("list active grants: %w", err)
	}

	now := s.clock.Now()
	expired := 0

	for _, grant := range grants {
		log := s.log.With(zap.String("user_id", grant.UserID))

		expiresAt, err := entitlementdomain.ParseExpiry(grant.ExpiresAt)
		if err != nil {
			log.Warn("skipping grant with unreadable expiry",
				zap.String("stored", grant.ExpiresAt),
				zap.Error(err),
			)
			continue
		}
		if !expiresAt.Before(now) {
			continue
		}

		if err := s.repo.Deactivate(ctx, s.db, grant.UserID, now); err != nil {
			log.Error("deactivation failed", zap.Error(err))
			continue
		}
		expired++

		if err := s.notifier.Notify(ctx, grant.UserID, s.renewalText(), nil); err != nil {
			log.Warn("renewal notice delivery failed", zap.Error(err))
			if s.metrics != nil {
				s.metrics.NotifyFailures.Inc()
			}
		}
	}

	if s.metrics != nil {
		s.metrics.SweepCyclesTotal.Inc()
		s.metrics.ExpiredGrantsTotal.Add(float64(expired))
	}
	if expired > 0 {
		s.log.Info("sweep cycle finished", zap.Int("expired", expired), zap.Int("active", len(grants)))
	}
	return nil
}

// RunForever runs sweep cycles on a fixed interval until ctx is canceled.
// Cycles run sequentially on this one goroutine; two can never overlap.
func (s *Sweeper) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("sweep cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) renewalText() string {
	plan := s.plan.Get()
	return fmt.Sprintf(
		"Your VIP access expired.\n\nRenewal: R$ %.2f / %d days.\nRequest a new PIX charge to renew.",
		float64(plan.PriceCents)/100,
		plan.AccessDays,
	)
}
