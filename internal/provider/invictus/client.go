// Package invictus talks to the Invictus Pay public transaction API.
package invictus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lumapag/pixgate/internal/config"
	"github.com/lumapag/pixgate/internal/extractor"
	providerdomain "github.com/lumapag/pixgate/internal/provider/domain"
	"go.uber.org/zap"
)

const defaultTimeout = 25 * time.Second

type Client struct {
	baseURL     string
	apiToken    string
	postbackURL string
	client      *http.Client
	log         *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) providerdomain.Client {
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:     cfg.ProviderBaseURL,
		apiToken:    cfg.ProviderAPIToken,
		postbackURL: cfg.PostbackURL,
		client:      &http.Client{Timeout: timeout},
		log:         log.Named("provider.invictus"),
	}
}

type chargeBody struct {
	Amount        int          `json:"amount"`
	OfferHash     string       `json:"offer_hash"`
	PaymentMethod string       `json:"payment_method"`
	Customer      customerBody `json:"customer"`
	Cart          []cartItem   `json:"cart"`
	ExpireInDays  int          `json:"expire_in_days"`
	Tracking      trackingBody `json:"tracking"`
}

type customerBody struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Document    string `json:"document"`
}

type cartItem struct {
	ProductHash   string `json:"product_hash"`
	Title         string `json:"title"`
	Price         int    `json:"price"`
	Quantity      int    `json:"quantity"`
	OperationType int    `json:"operation_type"`
	Tangible      bool   `json:"tangible"`
}

// trackingBody is the correlation token: the provider echoes it back in
// postbacks, which is the fallback route from a notification to the
// originating user when the transaction-id lookup comes up empty.
type trackingBody struct {
	UserID string `json:"user_id"`
}

func (c *Client) CreateCharge(ctx context.Context, req providerdomain.ChargeRequest) (*providerdomain.ChargeResponse, error) {
	body := chargeBody{
		Amount:        req.AmountCents,
		OfferHash:     req.OfferHash,
		PaymentMethod: "pix",
		Customer: customerBody{
			Name:        req.Customer.Name,
			Email:       req.Customer.Email,
			PhoneNumber: req.Customer.PhoneNumber,
			Document:    req.Customer.Document,
		},
		Cart: []cartItem{{
			ProductHash:   req.ProductHash,
			Title:         req.ProductTitle,
			Price:         req.AmountCents,
			Quantity:      1,
			OperationType: 1,
			Tangible:      false,
		}},
		ExpireInDays: req.ExpireInDays,
		Tracking:     trackingBody{UserID: req.UserID},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("api_token", c.apiToken)
	query.Set("postback_url", c.postbackURL)
	endpoint := c.baseURL + "/api/public/v1/transactions?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", providerdomain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", providerdomain.ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Warn("charge creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(raw, 512)),
		)
		return nil, fmt.Errorf("%w: status %d", providerdomain.ErrProviderUnavailable, resp.StatusCode)
	}

	// The body is kept even when it is not valid JSON; the extractor
	// falls back to raw-text scanning in that case.
	doc, decodeErr := extractor.Decode(raw)
	if decodeErr != nil {
		c.log.Warn("charge response is not valid JSON", zap.Error(decodeErr))
		doc = extractor.Value{}
	}

	return &providerdomain.ChargeResponse{Doc: doc, Raw: raw}, nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
