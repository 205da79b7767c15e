package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/apolopay/payment-button-go/app/factory"
	"github.com/apolopay/payment-button-go/app/types"
)

const (
	assetsPath  = "/payment-button/assets"
	confirmPath = "/payment-button/process/confirm"
)

type Config struct {
	BaseURL       string
	P2PBaseURL    string
	QRBaseURL     string
	PublicKey     string
	HTTPTimeout   time.Duration
	DefaultExpiry time.Duration
}

// Client talks to the payment-button REST API. It is stateless; every call is
// an independent request/response pair.
type Client struct {
	cfg    Config
	client *http.Client
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewClient(cfg Config) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.DefaultExpiry <= 0 {
		cfg.DefaultExpiry = 30 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.P2PBaseURL = strings.TrimRight(strings.TrimSpace(cfg.P2PBaseURL), "/")

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: factory.NewModuleLogger("api-client"),
		now:    time.Now,
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// FetchAssets returns a fresh snapshot of the payable assets and their
// networks. Safe to call repeatedly.
func (c *Client) FetchAssets(ctx context.Context) ([]types.Asset, error) {
	body, err := c.doJSON(ctx, http.MethodGet, assetsPath, nil)
	if err != nil {
		return nil, err
	}

	var assets []types.Asset
	if err := json.Unmarshal(body.Result, &assets); err != nil {
		return nil, types.NewPaymentError(types.CodeAPIError, "malformed asset catalog payload", err)
	}
	return assets, nil
}

type confirmResult struct {
	Wallet      string          `json:"wallet"`
	Network     string          `json:"network"`
	Asset       string          `json:"asset"`
	Amount      decimal.Decimal `json:"amount"`
	ExpiresAtMs json.RawMessage `json:"expiresAtMs"`
	ExpiresAt   json.RawMessage `json:"expiresAt"`
}

// ResolveDeposit confirms the process for the chosen asset+network and returns
// the deposit target the payer must use. The backend's expiry encoding is
// inconsistent across versions, so the value is normalized defensively; a
// missing or unusable expiry falls back to now + DefaultExpiry.
func (c *Client) ResolveDeposit(ctx context.Context, processID, assetID, networkID string) (*types.DepositInfo, error) {
	payload := map[string]string{
		"processId": processID,
		"assetId":   assetID,
		"networkId": networkID,
	}

	body, err := c.doJSON(ctx, http.MethodPost, confirmPath, payload)
	if err != nil {
		return nil, err
	}

	var result confirmResult
	if err := json.Unmarshal(body.Result, &result); err != nil {
		return nil, types.NewPaymentError(types.CodeAPIError, "malformed deposit payload", err)
	}

	rawExpiry := result.ExpiresAtMs
	if len(rawExpiry) == 0 {
		rawExpiry = result.ExpiresAt
	}

	target := result.Wallet
	if result.Network == types.NetworkKindApoloPay {
		target = c.cfg.P2PBaseURL + "/payment/" + url.PathEscape(processID)
	}

	info := &types.DepositInfo{
		ProcessID:     processID,
		AssetID:       assetID,
		NetworkID:     networkID,
		Wallet:        result.Wallet,
		DepositTarget: target,
		QRCodeURL:     c.qrCodeURL(target),
		Amount:        result.Amount,
		ExpiresAtMs:   normalizeExpiryMs(rawExpiry, c.now(), c.cfg.DefaultExpiry),
	}
	return info, nil
}

func (c *Client) qrCodeURL(target string) string {
	base := strings.TrimSpace(c.cfg.QRBaseURL)
	if base == "" {
		base = "https://api.qrserver.com/v1/create-qr-code/"
	}
	return base + "?size=150x150&data=" + url.QueryEscape(target) + "&ecc=H"
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any) (*envelope, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, types.NewPaymentError(types.CodeAPIError, "encode request body", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return nil, types.NewPaymentError(types.CodeNetworkError, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-public-key", c.cfg.PublicKey)
	req.Header.Set("x-request-id", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Warn("Request transport failure")
		return nil, types.NewPaymentError(types.CodeNetworkError, "payment API unreachable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewPaymentError(types.CodeNetworkError, "read response body", err)
	}

	var body envelope
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, types.NewPaymentError(types.CodeAPIError, "malformed API envelope", err)
	}

	if resp.StatusCode >= 400 || len(body.Result) == 0 || string(body.Result) == "null" {
		message := strings.TrimSpace(body.Message)
		if message == "" {
			message = "payment API returned no result"
		}
		c.logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Warn("API error envelope")
		return nil, types.NewPaymentError(types.CodeAPIError, message, nil)
	}

	return &body, nil
}
