package types

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DepositInfo is the resolved payment target for one asset+network choice.
// ExpiresAtMs is always a normalized millisecond epoch, whatever unit or
// encoding the backend answered with.
type DepositInfo struct {
	ProcessID     string
	AssetID       string
	NetworkID     string
	Wallet        string
	DepositTarget string
	QRCodeURL     string
	Amount        decimal.Decimal
	ExpiresAtMs   int64
}

// ConfirmationResult is the payload attached to a realtime push.
type ConfirmationResult struct {
	Status        string          `json:"status"`
	TransactionID string          `json:"transactionId,omitempty"`
	Message       string          `json:"message,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// SocketMessage is one frame pushed by the confirmation backend.
type SocketMessage struct {
	Success bool            `json:"success"`
	Event   string          `json:"event"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// StatusCompleted is the result status that terminates a session with success.
const StatusCompleted = "completed"
