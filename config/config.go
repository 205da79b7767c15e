package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	API     APIConfig
	Socket  SocketConfig
	Payment PaymentConfig
	Log     LogConfig
}

type APIConfig struct {
	BaseURL     string
	P2PBaseURL  string
	QRBaseURL   string
	HTTPTimeout time.Duration
}

type SocketConfig struct {
	URL          string
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

type PaymentConfig struct {
	PublicKey     string
	DefaultExpiry time.Duration
	TickInterval  time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	publicKey := os.Getenv("APOLOPAY_PUBLIC_KEY")
	if publicKey == "" {
		return nil, errors.New("APOLOPAY_PUBLIC_KEY environment variable is required")
	}

	return &Config{
		API: APIConfig{
			BaseURL:     getEnv("APOLOPAY_API_URL", "https://pb-test-api.apolopay.app"),
			P2PBaseURL:  getEnv("APOLOPAY_P2P_URL", "https://p2p.apolopay.app"),
			QRBaseURL:   getEnv("APOLOPAY_QR_URL", "https://api.qrserver.com/v1/create-qr-code/"),
			HTTPTimeout: getSecondsEnv("APOLOPAY_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Socket: SocketConfig{
			URL:          getEnv("APOLOPAY_SOCKET_URL", "wss://pb-test-ws.apolopay.app"),
			DialTimeout:  getSecondsEnv("APOLOPAY_SOCKET_DIAL_TIMEOUT_SECONDS", 10*time.Second),
			WriteTimeout: getSecondsEnv("APOLOPAY_SOCKET_WRITE_TIMEOUT_SECONDS", 5*time.Second),
		},
		Payment: PaymentConfig{
			PublicKey:     publicKey,
			DefaultExpiry: getMinutesEnv("APOLOPAY_DEFAULT_EXPIRY_MINUTES", 30*time.Minute),
			TickInterval:  getSecondsEnv("APOLOPAY_TICK_INTERVAL_SECONDS", time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
