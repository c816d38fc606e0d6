package domain

import (
	"context"
	"errors"

	"github.com/lumapag/pixgate/internal/extractor"
)

// ErrProviderUnavailable covers transport failures and non-2xx answers from
// the charge-creation API. No local state exists yet when it is returned.
var ErrProviderUnavailable = errors.New("provider_unavailable")

// Customer is the fixed buyer profile sent with every charge.
type Customer struct {
	Name        string
	Email       string
	PhoneNumber string
	Document    string
}

// ChargeRequest describes one PIX charge. Everything except UserID comes
// from the plan configuration.
type ChargeRequest struct {
	UserID       string
	AmountCents  int
	OfferHash    string
	ProductHash  string
	ProductTitle string
	ExpireInDays int
	Customer     Customer
}

// ChargeResponse is the provider's answer, kept both decoded and raw. The
// response schema is not a contract: Doc may be any shape, and when the
// body is not valid JSON Doc is null and only Raw is meaningful.
type ChargeResponse struct {
	Doc extractor.Value
	Raw []byte
}

// Client creates charges against the payment provider.
type Client interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResponse, error)
}
