package repository

import (
	"context"
	"time"

	entitlementdomain "github.com/lumapag/pixgate/internal/entitlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() entitlementdomain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, userID string) (entitlementdomain.Entitlement, error) {
	var row struct {
		UserID    string
		Status    string
		ExpiresAt string
	}
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, status, COALESCE(expires_at, '') AS expires_at
		 FROM entitlements
		 WHERE user_id = ?`,
		userID,
	).Scan(&row).Error
	if err != nil {
		return entitlementdomain.Entitlement{}, err
	}

	if row.UserID == "" {
		return entitlementdomain.Entitlement{
			UserID: userID,
			Status: entitlementdomain.StatusInactive,
		}, nil
	}

	ent := entitlementdomain.Entitlement{
		UserID: row.UserID,
		Status: entitlementdomain.EntitlementStatus(row.Status),
	}
	if row.ExpiresAt != "" {
		// A stored expiry that no longer parses must not make the row
		// unreadable. The status is still served; the sweeper is the
		// one place that cares about the timestamp and it skips such
		// rows on its own.
		if expires, err := entitlementdomain.ParseExpiry(row.ExpiresAt); err == nil {
			ent.ExpiresAt = &expires
		}
	}
	return ent, nil
}

func (r *repo) Activate(ctx context.Context, db *gorm.DB, userID string, expiresAt, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO entitlements (user_id, status, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id)
		 DO UPDATE SET status = excluded.status,
		               expires_at = excluded.expires_at,
		               updated_at = excluded.updated_at`,
		userID,
		string(entitlementdomain.StatusActive),
		entitlementdomain.FormatExpiry(expiresAt),
		now,
		now,
	).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, userID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO entitlements (user_id, status, expires_at, created_at, updated_at)
		 VALUES (?, ?, NULL, ?, ?)
		 ON CONFLICT (user_id)
		 DO UPDATE SET status = excluded.status,
		               expires_at = NULL,
		               updated_at = excluded.updated_at`,
		userID,
		string(entitlementdomain.StatusInactive),
		now,
		now,
	).Error
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]entitlementdomain.ActiveGrant, error) {
	var rows []entitlementdomain.ActiveGrant
	err := db.WithContext(ctx).Raw(
		`SELECT user_id, COALESCE(expires_at, '') AS expires_at
		 FROM entitlements
		 WHERE status = ?`,
		string(entitlementdomain.StatusActive),
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, tx *entitlementdomain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (id, user_id, provider_tx_id, status, created_at, raw_response)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.UserID,
		tx.ProviderTxID,
		tx.Status,
		tx.CreatedAt,
		tx.RawResponse,
	).Error
}

func (r *repo) UpdateTransactionStatus(ctx context.Context, db *gorm.DB, providerTxID, status string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions SET status = ? WHERE provider_tx_id = ?`,
		status,
		providerTxID,
	).Error
}

func (r *repo) FindUserByProviderTx(ctx context.Context, db *gorm.DB, providerTxID string) (string, error) {
	// Retried charge creation can leave several rows with the same
	// provider id; the newest row is authoritative. IDs are snowflakes,
	// so descending id is descending creation time.
	var userID string
	err := db.WithContext(ctx).Raw(
		`SELECT user_id
		 FROM transactions
		 WHERE provider_tx_id = ?
		 ORDER BY id DESC
		 LIMIT 1`,
		providerTxID,
	).Scan(&userID).Error
	if err != nil {
		return "", err
	}
	return userID, nil
}
