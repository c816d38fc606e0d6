package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository is the ledger store: entitlements plus the charge-attempt
// transaction history. It is the only component that mutates either table.
type Repository interface {
	// Get returns the user's entitlement, defaulting to inactive when no
	// row exists yet.
	Get(ctx context.Context, db *gorm.DB, userID string) (Entitlement, error)

	// Activate upserts the entitlement to active with the given expiry.
	// Re-activating an already-active user overwrites the expiry; it
	// never stacks durations.
	Activate(ctx context.Context, db *gorm.DB, userID string, expiresAt, now time.Time) error

	// Deactivate sets the entitlement inactive and clears the expiry.
	Deactivate(ctx context.Context, db *gorm.DB, userID string, now time.Time) error

	// ListActive returns every active grant with its stored expiry text.
	ListActive(ctx context.Context, db *gorm.DB) ([]ActiveGrant, error)

	InsertTransaction(ctx context.Context, db *gorm.DB, tx *Transaction) error

	// UpdateTransactionStatus records the provider-reported status on
	// every transaction carrying the given provider id.
	UpdateTransactionStatus(ctx context.Context, db *gorm.DB, providerTxID, status string) error

	// FindUserByProviderTx resolves the owning user of a provider
	// transaction id. When charge creation was retried, several rows
	// share the id; the most recently created row wins. Returns "" when
	// no row matches.
	FindUserByProviderTx(ctx context.Context, db *gorm.DB, providerTxID string) (string, error)
}
