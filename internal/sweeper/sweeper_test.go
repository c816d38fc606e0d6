package sweeper_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/lumapag/pixgate/internal/clock"
	"github.com/lumapag/pixgate/internal/config"
	entitlementdomain "github.com/lumapag/pixgate/internal/entitlement/domain"
	entitlementrepo "github.com/lumapag/pixgate/internal/entitlement/repository"
	"github.com/lumapag/pixgate/internal/notify"
	"github.com/lumapag/pixgate/internal/sweeper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeNotifier struct {
	notified []string
	err      error
}

func (f *fakeNotifier) Notify(ctx context.Context, userID, text string, image *notify.Image) error {
	f.notified = append(f.notified, userID)
	return f.err
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.Exec(`CREATE TABLE entitlements (
		user_id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'inactive',
		expires_at TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

type sweepFixture struct {
	db       *gorm.DB
	clock    *clock.FakeClock
	repo     entitlementdomain.Repository
	notifier *fakeNotifier
	sweeper  *sweeper.Sweeper
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()

	db := setupTestDB(t)
	fc := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := entitlementrepo.Provide()
	notifier := &fakeNotifier{}

	sw, err := sweeper.New(sweeper.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fc,
		Repo:     repo,
		Notifier: notifier,
		Plan:     config.NewStaticPlanHolder(config.DefaultPlan()),
	})
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	return &sweepFixture{db: db, clock: fc, repo: repo, notifier: notifier, sweeper: sw}
}

func (f *sweepFixture) activate(t *testing.T, userID string, expiresAt time.Time) {
	t.Helper()
	if err := f.repo.Activate(context.Background(), f.db, userID, expiresAt, f.clock.Now()); err != nil {
		t.Fatalf("activate %s: %v", userID, err)
	}
}

func (f *sweepFixture) status(t *testing.T, userID string) entitlementdomain.EntitlementStatus {
	t.Helper()
	ent, err := f.repo.Get(context.Background(), f.db, userID)
	if err != nil {
		t.Fatalf("get %s: %v", userID, err)
	}
	return ent.Status
}

func TestRunOnceDemotesExpiredGrants(t *testing.T) {
	f := newSweepFixture(t)
	now := f.clock.Now()

	f.activate(t, "expired-user", now.Add(-time.Minute))
	f.activate(t, "future-user", now.Add(time.Hour))

	if err := f.sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	if got := f.status(t, "expired-user"); got != entitlementdomain.StatusInactive {
		t.Fatalf("expected expired user demoted, got %s", got)
	}
	if got := f.status(t, "future-user"); got != entitlementdomain.StatusActive {
		t.Fatalf("expected future user untouched, got %s", got)
	}

	if len(f.notifier.notified) != 1 || f.notifier.notified[0] != "expired-user" {
		t.Fatalf("expected one renewal notice to expired-user, got %v", f.notifier.notified)
	}
}

func TestRunOnceExpiryBoundaryIsExclusive(t *testing.T) {
	f := newSweepFixture(t)
	now := f.clock.Now()

	f.activate(t, "boundary-user", now)

	if err := f.sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if got := f.status(t, "boundary-user"); got != entitlementdomain.StatusActive {
		t.Fatalf("a grant expiring exactly now must survive the cycle, got %s", got)
	}

	f.clock.Advance(time.Second)
	if err := f.sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if got := f.status(t, "boundary-user"); got != entitlementdomain.StatusInactive {
		t.Fatalf("expected demotion one tick later, got %s", got)
	}
}

func TestRunOnceSkipsUnreadableExpiry(t *testing.T) {
	f := newSweepFixture(t)
	now := f.clock.Now()

	if err := f.db.Exec(
		`INSERT INTO entitlements (user_id, status, expires_at, created_at, updated_at)
		 VALUES (?, 'active', 'not-a-timestamp', ?, ?)`,
		"corrupt-user", now, now,
	).Error; err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}
	f.activate(t, "expired-user", now.Add(-time.Minute))

	if err := f.sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	// The corrupt row is skipped, not demoted and not fatal to the cycle.
	if got := f.status(t, "corrupt-user"); got != entitlementdomain.StatusActive {
		t.Fatalf("corrupt row must be left alone, got %s", got)
	}
	if got := f.status(t, "expired-user"); got != entitlementdomain.StatusInactive {
		t.Fatalf("healthy expired row must still be demoted, got %s", got)
	}
}

func TestRunOnceNotifyFailureDoesNotUndoDemotion(t *testing.T) {
	f := newSweepFixture(t)
	now := f.clock.Now()

	f.notifier.err = errors.New("chat unreachable")
	f.activate(t, "expired-user", now.Add(-time.Minute))
	f.activate(t, "another-expired", now.Add(-time.Hour))

	if err := f.sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	for _, user := range []string{"expired-user", "another-expired"} {
		if got := f.status(t, user); got != entitlementdomain.StatusInactive {
			t.Fatalf("expected %s demoted despite notify failure, got %s", user, got)
		}
	}
}

func TestRunOnceEmptyLedger(t *testing.T) {
	f := newSweepFixture(t)
	if err := f.sweeper.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once on empty ledger: %v", err)
	}
	if len(f.notifier.notified) != 0 {
		t.Fatalf("expected no notices, got %v", f.notifier.notified)
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := sweeper.New(sweeper.Params{})
	if !errors.Is(err, sweeper.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
