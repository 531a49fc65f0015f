package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNewWritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "micclips.log")

	log := New(Options{Level: "info", Path: path})
	log.Info().Str("device", "Mic A").Msg("Selected device")
	log.Debug().Msg("filtered out")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "Selected device") {
		t.Errorf("expected info line in log file, got %q", out)
	}
	if strings.Contains(out, "filtered out") {
		t.Errorf("debug line should be filtered at info level")
	}
}
