package invictus_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lumapag/pixgate/internal/config"
	"github.com/lumapag/pixgate/internal/extractor"
	providerdomain "github.com/lumapag/pixgate/internal/provider/domain"
	"github.com/lumapag/pixgate/internal/provider/invictus"
	"go.uber.org/zap"
)

func testConfig(baseURL string) config.Config {
	return config.Config{
		ProviderBaseURL:  baseURL,
		ProviderAPIToken: "tok_test",
		PostbackURL:      "https://pixgate.example.com/webhooks/pix",
	}
}

func TestCreateChargeSendsExpectedRequest(t *testing.T) {
	var gotPath, gotToken, gotPostback string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("api_token")
		gotPostback = r.URL.Query().Get("postback_url")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"prov-1","status":"pending"}`))
	}))
	defer srv.Close()

	client := invictus.NewClient(testConfig(srv.URL), zap.NewNop())

	resp, err := client.CreateCharge(context.Background(), providerdomain.ChargeRequest{
		UserID:       "user-1",
		AmountCents:  2990,
		OfferHash:    "offer",
		ProductHash:  "prod",
		ProductTitle: "Acesso VIP - 30 dias",
		ExpireInDays: 1,
	})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}

	if gotPath != "/api/public/v1/transactions" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotToken != "tok_test" {
		t.Fatalf("expected api_token in query, got %q", gotToken)
	}
	if gotPostback != "https://pixgate.example.com/webhooks/pix" {
		t.Fatalf("expected postback_url in query, got %q", gotPostback)
	}

	if gotBody["payment_method"] != "pix" {
		t.Fatalf("expected payment_method pix, got %v", gotBody["payment_method"])
	}
	if gotBody["amount"] != float64(2990) {
		t.Fatalf("expected amount 2990, got %v", gotBody["amount"])
	}
	tracking, _ := gotBody["tracking"].(map[string]any)
	if tracking["user_id"] != "user-1" {
		t.Fatalf("expected tracking user id, got %v", gotBody["tracking"])
	}
	cart, _ := gotBody["cart"].([]any)
	if len(cart) != 1 {
		t.Fatalf("expected single cart item, got %v", gotBody["cart"])
	}

	if got := extractor.CorrelationID(resp.Doc); got != "prov-1" {
		t.Fatalf("expected decoded doc with id prov-1, got %q", got)
	}
	if len(resp.Raw) == 0 {
		t.Fatal("expected raw body kept")
	}
}

func TestCreateChargeRejectionIsProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid offer"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	client := invictus.NewClient(testConfig(srv.URL), zap.NewNop())

	_, err := client.CreateCharge(context.Background(), providerdomain.ChargeRequest{UserID: "user-1"})
	if !errors.Is(err, providerdomain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCreateChargeTransportFailureIsProviderUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := invictus.NewClient(testConfig(srv.URL), zap.NewNop())

	_, err := client.CreateCharge(context.Background(), providerdomain.ChargeRequest{UserID: "user-1"})
	if !errors.Is(err, providerdomain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCreateChargeKeepsUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	client := invictus.NewClient(testConfig(srv.URL), zap.NewNop())

	resp, err := client.CreateCharge(context.Background(), providerdomain.ChargeRequest{UserID: "user-1"})
	if err != nil {
		t.Fatalf("create charge: %v", err)
	}
	if string(resp.Raw) != `not json at all` {
		t.Fatalf("expected raw body preserved, got %q", resp.Raw)
	}
	if resp.Doc.Kind != extractor.KindNull {
		t.Fatalf("expected null doc for unparseable body, got kind %v", resp.Doc.Kind)
	}
}
