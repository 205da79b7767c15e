package factory

import (
	"testing"
)

func TestNewModuleLogger(t *testing.T) {
	logger := NewModuleLogger("payment-session")
	if logger == nil {
		t.Fatal("expected logger")
	}
}

func TestLoggerWithProcessAddsProcessID(t *testing.T) {
	logger := LoggerWithProcess(NewModuleLogger("payment-session"), "prc_123")
	if logger == nil {
		t.Fatal("expected logger with process id")
	}
}

func TestLoggerWithProcessEmptyIDKeepsLogger(t *testing.T) {
	logger := LoggerWithProcess(NewModuleLogger("payment-session"), "")
	if logger == nil {
		t.Fatal("expected logger")
	}
}
