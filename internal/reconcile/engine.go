// Package reconcile applies provider postbacks to the ledger. Postbacks
// arrive out of band, possibly duplicated, possibly malformed, from an
// uncontrolled retry policy, so every event is absorbed: the engine logs
// and counts its failures but never propagates them back to the inbound
// channel.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/lumapag/pixgate/internal/clock"
	"github.com/lumapag/pixgate/internal/config"
	entitlementdomain "github.com/lumapag/pixgate/internal/entitlement/domain"
	"github.com/lumapag/pixgate/internal/extractor"
	"github.com/lumapag/pixgate/internal/notify"
	obsmetrics "github.com/lumapag/pixgate/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// approvedStatuses is the closed vocabulary of provider tokens that mean
// "paid". Anything else, including an empty or unknown token, does not
// approve. Extending this set is a deliberate code change, not inference.
var approvedStatuses = map[string]struct{}{
	"approved":  {},
	"paid":      {},
	"confirmed": {},
	"completed": {},
	"success":   {},
	"aprovado":  {},
	"pago":      {},
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	Clock    clock.Clock
	Repo     entitlementdomain.Repository
	Notifier notify.Notifier
	Plan     *config.PlanHolder
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Engine struct {
	db         *gorm.DB
	log        *zap.Logger
	clock      clock.Clock
	repo       entitlementdomain.Repository
	notifier   notify.Notifier
	plan       *config.PlanHolder
	inviteLink string
	metrics    *obsmetrics.Metrics
}

func New(p Params) *Engine {
	return &Engine{
		db:         p.DB,
		log:        p.Log.Named("reconcile"),
		clock:      p.Clock,
		repo:       p.Repo,
		notifier:   p.Notifier,
		plan:       p.Plan,
		inviteLink: p.Cfg.GroupInviteLink,
		metrics:    p.Metrics,
	}
}

// Process applies one postback. It never fails: the inbound channel always
// acknowledges, whatever happened here, because the provider's redelivery
// behavior on a non-2xx answer is not under our control.
func (e *Engine) Process(ctx context.Context, payload []byte) {
	doc, err := extractor.Decode(payload)
	if err != nil {
		e.log.Warn("postback body is not valid JSON", zap.Error(err))
		e.count(obsmetrics.PostbackResultInvalid)
		return
	}

	txID := extractor.CorrelationID(doc)
	status := normalizeStatus(doc)

	log := e.log.With(
		zap.String("provider_tx_id", txID),
		zap.String("status", status),
	)

	// Write-through: any status the provider reports is recorded against
	// the transaction, approved or not, so the ledger keeps the full
	// audit trail.
	if txID != "" {
		recorded := status
		if recorded == "" {
			recorded = entitlementdomain.TxStatusUnknown
		}
		if err := e.repo.UpdateTransactionStatus(ctx, e.db, txID, recorded); err != nil {
			log.Error("transaction status update failed", zap.Error(err))
		}
	}

	if _, ok := approvedStatuses[status]; !ok {
		log.Debug("postback is not an approval")
		e.count(obsmetrics.PostbackResultIgnored)
		return
	}

	userID := e.resolveUser(ctx, log, doc, txID)
	if userID == "" {
		log.Warn("approved postback with no resolvable user")
		e.count(obsmetrics.PostbackResultUnresolved)
		return
	}

	plan := e.plan.Get()
	now := e.clock.Now()
	expiresAt := now.Add(time.Duration(plan.AccessDays) * 24 * time.Hour)

	// Idempotent under redelivery: a repeated approval overwrites the
	// expiry with a freshly computed one instead of stacking durations.
	if err := e.repo.Activate(ctx, e.db, userID, expiresAt, now); err != nil {
		log.Error("entitlement activation failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}

	log.Info("entitlement activated",
		zap.String("user_id", userID),
		zap.Time("expires_at", expiresAt),
	)
	e.count(obsmetrics.PostbackResultApproved)

	if err := e.notifier.Notify(ctx, userID, e.confirmationText(expiresAt), nil); err != nil {
		// The entitlement write is the source of truth; delivery is
		// best effort and is not rolled back.
		log.Warn("confirmation delivery failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		if e.metrics != nil {
			e.metrics.NotifyFailures.Inc()
		}
	}
}

// resolveUser finds the owner of an approved postback: the newest
// transaction carrying the provider id first, then the tracking correlation
// token the charge flow embedded at creation time.
func (e *Engine) resolveUser(ctx context.Context, log *zap.Logger, doc extractor.Value, txID string) string {
	if txID != "" {
		userID, err := e.repo.FindUserByProviderTx(ctx, e.db, txID)
		if err != nil {
			log.Error("transaction lookup failed", zap.Error(err))
		} else if userID != "" {
			return userID
		}
	}
	return trackingUserID(doc)
}

// normalizeStatus reads the status token from the usual field names, at the
// top level or one level under "data", and lowercases it.
func normalizeStatus(doc extractor.Value) string {
	status := extractor.LookupString(doc, "status", "payment_status", "state")
	if status == "" {
		if data, ok := extractor.Field(doc, "data"); ok {
			status = extractor.LookupString(data, "status", "payment_status", "state")
		}
	}
	return strings.ToLower(strings.TrimSpace(status))
}

func trackingUserID(doc extractor.Value) string {
	tracking, ok := extractor.Field(doc, "tracking")
	if !ok {
		if data, dataOK := extractor.Field(doc, "data"); dataOK {
			tracking, ok = extractor.Field(data, "tracking")
		}
	}
	if !ok {
		return ""
	}
	return extractor.LookupString(tracking, "user_id")
}

func (e *Engine) confirmationText(expiresAt time.Time) string {
	text := "Payment confirmed. Your access is active until " +
		expiresAt.UTC().Format("2006-01-02") + " (UTC)."
	if e.inviteLink != "" {
		text += "\n\nJoin here: " + e.inviteLink
	}
	return text
}

func (e *Engine) count(result string) {
	if e.metrics != nil {
		e.metrics.PostbacksTotal.WithLabelValues(result).Inc()
	}
}

var Module = fx.Module("reconcile",
	fx.Provide(New),
)
