package session

import (
	"github.com/apolopay/payment-button-go/app/api"
	"github.com/apolopay/payment-button-go/app/realtime"
	"github.com/apolopay/payment-button-go/app/timer"
	"github.com/apolopay/payment-button-go/app/types"
	"github.com/apolopay/payment-button-go/config"
)

// NewFromConfig assembles a ready-to-open controller from configuration:
// REST client, realtime channel and expiry countdown wired together for one
// payment process.
func NewFromConfig(cfg *config.Config, processID string, hooks Hooks) (*Controller, error) {
	opts := types.SessionOptions{
		PublicKey: cfg.Payment.PublicKey,
		ProcessID: processID,
	}

	client := api.NewClient(api.Config{
		BaseURL:       cfg.API.BaseURL,
		P2PBaseURL:    cfg.API.P2PBaseURL,
		QRBaseURL:     cfg.API.QRBaseURL,
		PublicKey:     cfg.Payment.PublicKey,
		HTTPTimeout:   cfg.API.HTTPTimeout,
		DefaultExpiry: cfg.Payment.DefaultExpiry,
	})

	channel := realtime.NewChannel(realtime.Config{
		URL:          cfg.Socket.URL,
		PublicKey:    cfg.Payment.PublicKey,
		DialTimeout:  cfg.Socket.DialTimeout,
		WriteTimeout: cfg.Socket.WriteTimeout,
	})

	countdown := timer.NewCountdownWithInterval(cfg.Payment.TickInterval)

	return New(opts, client, client, channel, countdown, hooks)
}
