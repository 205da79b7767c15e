package types

import "fmt"

// Stable machine-readable error codes surfaced to the embedding UI. The
// realtime codes (connect_error, payment_failed) match what the backend's
// push protocol uses on the wire.
const (
	CodeConfigError    = "config_error"
	CodeNetworkError   = "network_error"
	CodeAPIError       = "api_error"
	CodeDataLoadError  = "data_load_error"
	CodeConnectError   = "connect_error"
	CodePaymentTimeout = "payment_timeout"
	CodePaymentFailed  = "payment_failed"
)

// PaymentError carries a stable code plus a human-readable message. Display,
// localization and retry affordances are the caller's concern.
type PaymentError struct {
	Code    string
	Message string
	cause   error
}

func NewPaymentError(code, message string, cause error) *PaymentError {
	return &PaymentError{Code: code, Message: message, cause: cause}
}

func (e *PaymentError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.cause
}

// ErrorCode extracts the payment error code from err, walking the wrap chain.
// Returns an empty string for nil or foreign errors.
func ErrorCode(err error) string {
	for err != nil {
		if pe, ok := err.(*PaymentError); ok {
			return pe.Code
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = unwrapper.Unwrap()
	}
	return ""
}
