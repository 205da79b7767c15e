package types

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SessionOptions is everything the host page must supply before a session can
// open. The process id is created by the merchant's checkout flow beforehand;
// public keys are issued with a fixed pk_ prefix.
type SessionOptions struct {
	PublicKey string `validate:"required,startswith=pk_,min=12"`
	ProcessID string `validate:"required"`
}

// Validate reports a config_error for missing or malformed options. It runs
// before any network call is made.
func (o SessionOptions) Validate() error {
	o.PublicKey = strings.TrimSpace(o.PublicKey)
	o.ProcessID = strings.TrimSpace(o.ProcessID)

	if err := validate.Struct(o); err != nil {
		return NewPaymentError(CodeConfigError, "invalid session options", err)
	}
	return nil
}
