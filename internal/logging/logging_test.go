package logging_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewWithWriter_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelInfo)
	logger.Warn("fetch failed", "error", errors.New("boom"))
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), "err=boom")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestRedact(t *testing.T) {
	fs := domain.FieldSet{
		"customerName":          "Ana",
		"customerPhone":         "555-0101",
		"customerIdNumber":      "ID-1",
		"customerLicenseNumber": "L-9",
	}
	masked := logging.Redact(fs)
	assert.Equal(t, "Ana", masked["customerName"])
	assert.Equal(t, logging.Mask, masked["customerPhone"])
	assert.Equal(t, logging.Mask, masked["customerIdNumber"])
	assert.Equal(t, logging.Mask, masked["customerLicenseNumber"])

	// Original untouched.
	assert.Equal(t, "555-0101", fs["customerPhone"])

	payload := logging.Redact(map[string]any{
		"customer": map[string]any{"id_number": "ID-1", "full_name": "Ana"},
	})
	nested := payload["customer"].(map[string]any)
	assert.Equal(t, logging.Mask, nested["id_number"])
	assert.Equal(t, "Ana", nested["full_name"])
}

func TestRedactor_CustomPatterns(t *testing.T) {
	r := logging.NewRedactor([]string{"secret"})
	out := r.Apply(map[string]any{"api_secret": "x", "name": "y"})
	assert.Equal(t, logging.Mask, out["api_secret"])
	assert.Equal(t, "y", out["name"])
}
