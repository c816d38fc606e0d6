package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EntitlementStatus is the access state of a user.
type EntitlementStatus string

const (
	StatusInactive EntitlementStatus = "inactive"
	StatusActive   EntitlementStatus = "active"
)

// Entitlement is the time-boxed access grant, one row per user. An active
// grant always carries an expiry; an inactive one never does. Rows are
// created implicitly on first query and never deleted.
type Entitlement struct {
	UserID    string            `json:"user_id" gorm:"primaryKey"`
	Status    EntitlementStatus `json:"status" gorm:"type:text;not null"`
	ExpiresAt *time.Time        `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (Entitlement) TableName() string { return "entitlements" }

// Transaction records one charge attempt. Rows are append-only except for
// the status column, which follows the provider's notifications.
type Transaction struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	UserID       string         `json:"user_id" gorm:"type:text;not null;index"`
	ProviderTxID string         `json:"provider_tx_id" gorm:"type:text"`
	Status       string         `json:"status" gorm:"type:text;not null"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null"`
	RawResponse  datatypes.JSON `json:"raw_response"`
}

func (Transaction) TableName() string { return "transactions" }

const (
	TxStatusPending = "pending"
	TxStatusUnknown = "unknown"
)

// ActiveGrant is a raw active-entitlement row. The expiry stays textual so
// that one corrupt stored timestamp fails that row alone, not the whole
// sweep.
type ActiveGrant struct {
	UserID    string
	ExpiresAt string
}

// expiryLayouts are accepted when reading a stored expiry back. Writes
// always use the first.
var expiryLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999-07:00",
}

// FormatExpiry renders an expiry for storage.
func FormatExpiry(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseExpiry reads a stored expiry back.
func ParseExpiry(s string) (time.Time, error) {
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedExpiry, s)
}
