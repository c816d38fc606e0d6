package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/lumapag/pixgate/internal/notify"
)

// ErrExtractionMiss means the provider answered but no credential or visual
// code could be located in the response. The transaction row is still
// recorded; the caller tells the user to try again.
var ErrExtractionMiss = errors.New("extraction_miss")

// Result is the outcome of one charge initiation.
type Result struct {
	TransactionID snowflake.ID
	ProviderTxID  string
	Credential    string
	Image         *notify.Image
}

// Service turns a user's purchase request into a pending transaction and a
// deliverable payment credential.
type Service interface {
	CreateCharge(ctx context.Context, userID string) (Result, error)
}
