package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("production", "warn", &buf)
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	logger.Info().Msg("dropped")
	logger.Warn().Str("connector", "phonypay").Msg("kept")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "kept" || line["connector"] != "phonypay" || line["service"] != "payhub" {
		t.Fatalf("unexpected line: %v", line)
	}
}

func TestSetupUnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	Setup("sandbox", "chatty", &buf)
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info, got %s", zerolog.GlobalLevel())
	}
}
