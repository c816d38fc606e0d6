package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/bwmarrin/snowflake"
	chargedomain "github.com/lumapag/pixgate/internal/charge/domain"
	"github.com/lumapag/pixgate/internal/clock"
	"github.com/lumapag/pixgate/internal/config"
	entitlementdomain "github.com/lumapag/pixgate/internal/entitlement/domain"
	"github.com/lumapag/pixgate/internal/extractor"
	"github.com/lumapag/pixgate/internal/notify"
	obsmetrics "github.com/lumapag/pixgate/internal/observability/metrics"
	providerdomain "github.com/lumapag/pixgate/internal/provider/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     entitlementdomain.Repository
	Provider providerdomain.Client
	Notifier notify.Notifier
	Plan     *config.PlanHolder
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     entitlementdomain.Repository
	provider providerdomain.Client
	notifier notify.Notifier
	plan     *config.PlanHolder
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) chargedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("charge.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		provider: p.Provider,
		notifier: p.Notifier,
		plan:     p.Plan,
		metrics:  p.Metrics,
	}
}

// CreateCharge calls the provider, extracts whatever credential and visual
// code the response carries, and records the attempt. The row is written
// even when extraction finds nothing, so a later postback that references
// this charge can still be inspected against the stored raw response. A
// provider failure writes no state at all.
func (s *Service) CreateCharge(ctx context.Context, userID string) (chargedomain.Result, error) {
	plan := s.plan.Get()

	resp, err := s.provider.CreateCharge(ctx, providerdomain.ChargeRequest{
		UserID:       userID,
		AmountCents:  plan.PriceCents,
		OfferHash:    plan.OfferHash,
		ProductHash:  plan.ProductHash,
		ProductTitle: plan.ProductTitle,
		ExpireInDays: plan.ExpireInDays,
		Customer: providerdomain.Customer{
			Name:        plan.Customer.Name,
			Email:       plan.Customer.Email,
			PhoneNumber: plan.Customer.PhoneNumber,
			Document:    plan.Customer.Document,
		},
	})
	if err != nil {
		s.countCharge(obsmetrics.ChargeResultProviderError)
		return chargedomain.Result{}, err
	}

	extracted := extractor.Extract(resp.Doc, string(resp.Raw))
	providerTxID := extractor.CorrelationID(resp.Doc)

	tx := &entitlementdomain.Transaction{
		ID:           s.genID.Generate(),
		UserID:       userID,
		ProviderTxID: providerTxID,
		Status:       entitlementdomain.TxStatusPending,
		CreatedAt:    s.clock.Now(),
		RawResponse:  datatypes.JSON(resp.Raw),
	}
	if err := s.repo.InsertTransaction(ctx, s.db, tx); err != nil {
		return chargedomain.Result{}, fmt.Errorf("record transaction: %w", err)
	}

	result := chargedomain.Result{
		TransactionID: tx.ID,
		ProviderTxID:  providerTxID,
		Credential:    extracted.Credential,
		Image:         s.buildImage(extracted),
	}

	if result.Credential == "" && result.Image == nil {
		s.log.Warn("no credential or visual code in charge response",
			zap.String("user_id", userID),
			zap.Int64("transaction_id", tx.ID.Int64()),
		)
		s.countCharge(obsmetrics.ChargeResultExtractionMiss)
		return result, chargedomain.ErrExtractionMiss
	}

	s.deliver(ctx, userID, result)
	s.countCharge(obsmetrics.ChargeResultOK)
	return result, nil
}

// buildImage decides the visual handed to the user: inline bytes from the
// provider when present, a remote URL, or a locally rendered QR code of the
// credential as a last resort.
func (s *Service) buildImage(extracted extractor.Result) *notify.Image {
	if extracted.Visual != nil {
		switch extracted.Visual.Kind {
		case extractor.VisualInline:
			decoded, err := base64.StdEncoding.DecodeString(extracted.Visual.Value)
			if err != nil {
				decoded, err = base64.RawStdEncoding.DecodeString(extracted.Visual.Value)
			}
			if err == nil {
				return &notify.Image{Kind: notify.ImageInline, Bytes: decoded}
			}
			s.log.Warn("inline visual code is not decodable base64", zap.Error(err))
		case extractor.VisualRemote:
			return &notify.Image{Kind: notify.ImageRemote, URL: extracted.Visual.Value}
		}
	}

	if extracted.Credential != "" {
		rendered, err := renderQR(extracted.Credential)
		if err != nil {
			s.log.Warn("QR rendering failed", zap.Error(err))
			return nil
		}
		return &notify.Image{Kind: notify.ImageInline, Bytes: rendered}
	}
	return nil
}

func (s *Service) deliver(ctx context.Context, userID string, result chargedomain.Result) {
	text := "PIX copy & paste code:\n" + result.Credential +
		"\n\nAccess is released automatically once the payment is confirmed."
	if result.Credential == "" {
		text = "Scan the attached code to pay. Access is released automatically once the payment is confirmed."
	}

	if err := s.notifier.Notify(ctx, userID, text, result.Image); err != nil {
		s.log.Warn("credential delivery failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		if s.metrics != nil {
			s.metrics.NotifyFailures.Inc()
		}
	}
}

func (s *Service) countCharge(result string) {
	if s.metrics != nil {
		s.metrics.ChargesTotal.WithLabelValues(result).Inc()
	}
}
