package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewDefaultLevel(t *testing.T) {
	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false): %v", err)
	}
	defer logger.Sync()

	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info level enabled without --debug")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warn level disabled")
	}
}

func TestNewDebugLevel(t *testing.T) {
	logger, err := New(true)
	if err != nil {
		t.Fatalf("New(true): %v", err)
	}
	defer logger.Sync()

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level disabled with --debug")
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	if logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("nop logger should discard everything")
	}
}
