package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apolopay/payment-button-go/app/types"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:       baseURL,
		P2PBaseURL:    "https://p2p.apolopay.app",
		PublicKey:     "pk_test_1234567890",
		HTTPTimeout:   2 * time.Second,
		DefaultExpiry: 30 * time.Minute,
	})
}

func TestFetchAssets(t *testing.T) {
	var gotPublicKey, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/payment-button/assets" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotPublicKey = r.Header.Get("x-public-key")
		gotRequestID = r.Header.Get("x-request-id")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "ok",
			"result": []map[string]any{
				{"id": "usdt", "name": "Tether", "symbol": "USDT", "networks": []map[string]any{
					{"id": "trx", "name": "Tron"},
					{"id": "apolopay", "name": "ApoloPay", "kind": "apolopay"},
				}},
			},
		})
	}))
	defer srv.Close()

	assets, err := newTestClient(srv.URL).FetchAssets(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(assets) != 1 || assets[0].ID != "usdt" || len(assets[0].Networks) != 2 {
		t.Fatalf("unexpected assets: %+v", assets)
	}
	if gotPublicKey != "pk_test_1234567890" {
		t.Fatalf("expected x-public-key header, got %q", gotPublicKey)
	}
	if gotRequestID == "" {
		t.Fatal("expected x-request-id header")
	}
}

func TestFetchAssetsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "invalid public key"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchAssets(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if types.ErrorCode(err) != types.CodeAPIError {
		t.Fatalf("expected api_error, got %s", types.ErrorCode(err))
	}
	if !strings.Contains(err.Error(), "invalid public key") {
		t.Fatalf("expected backend message in error, got %v", err)
	}
}

func TestFetchAssetsMissingResultIsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "success", "message": "ok"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchAssets(context.Background())
	if types.ErrorCode(err) != types.CodeAPIError {
		t.Fatalf("expected api_error for missing result, got %v", err)
	}
}

func TestFetchAssetsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).FetchAssets(context.Background())
	if types.ErrorCode(err) != types.CodeNetworkError {
		t.Fatalf("expected network_error, got %v", err)
	}
}

func TestResolveDeposit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payment-button/process/confirm" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["processId"] != "prc_1" || body["assetId"] != "usdt" || body["networkId"] != "trx" {
			t.Errorf("unexpected body: %+v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "ok",
			"result": map[string]any{
				"wallet":      "0xABC",
				"network":     "trx",
				"asset":       "usdt",
				"amount":      10,
				"expiresAtMs": 1798761600000,
			},
		})
	}))
	defer srv.Close()

	deposit, err := newTestClient(srv.URL).ResolveDeposit(context.Background(), "prc_1", "usdt", "trx")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deposit.DepositTarget != "0xABC" {
		t.Fatalf("expected wallet target, got %s", deposit.DepositTarget)
	}
	if deposit.ExpiresAtMs != 1798761600000 {
		t.Fatalf("unexpected expiry: %d", deposit.ExpiresAtMs)
	}
	if !deposit.Amount.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected amount: %s", deposit.Amount)
	}
	if !strings.Contains(deposit.QRCodeURL, "data=0xABC") {
		t.Fatalf("expected target in QR url, got %s", deposit.QRCodeURL)
	}
}

func TestResolveDepositApoloPayTarget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "ok",
			"result": map[string]any{
				"wallet":    "apolo-internal-ref",
				"network":   "apolopay",
				"asset":     "usdt",
				"amount":    "10.50",
				"expiresAt": "1798761600",
			},
		})
	}))
	defer srv.Close()

	deposit, err := newTestClient(srv.URL).ResolveDeposit(context.Background(), "prc_1", "usdt", "apolopay")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deposit.DepositTarget != "https://p2p.apolopay.app/payment/prc_1" {
		t.Fatalf("expected redirect target, got %s", deposit.DepositTarget)
	}
	if deposit.ExpiresAtMs != 1798761600000 {
		t.Fatalf("expected seconds scaled to ms, got %d", deposit.ExpiresAtMs)
	}
	if deposit.Amount.String() != "10.5" {
		t.Fatalf("unexpected amount: %s", deposit.Amount)
	}
}

func TestResolveDepositMissingExpiryDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "ok",
			"result": map[string]any{
				"wallet":  "0xABC",
				"network": "trx",
				"asset":   "usdt",
				"amount":  1,
			},
		})
	}))
	defer srv.Close()

	before := time.Now().Add(30 * time.Minute).UnixMilli()
	deposit, err := newTestClient(srv.URL).ResolveDeposit(context.Background(), "prc_1", "usdt", "trx")
	after := time.Now().Add(30 * time.Minute).UnixMilli()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if deposit.ExpiresAtMs < before || deposit.ExpiresAtMs > after {
		t.Fatalf("expected now+30m default, got %d", deposit.ExpiresAtMs)
	}
}

func TestResolveDepositErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": "process not found"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ResolveDeposit(context.Background(), "prc_x", "usdt", "trx")
	if types.ErrorCode(err) != types.CodeAPIError {
		t.Fatalf("expected api_error, got %v", err)
	}
}
