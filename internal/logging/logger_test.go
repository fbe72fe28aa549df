package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase TRACE", "TRACE", LevelTrace},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "loud", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtInfo  bool
	}{
		{"warn filters info", "warn", false, false},
		{"info filters debug", "info", false, true},
		{"debug passes debug", "debug", true, true},
		{"trace passes debug", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v", got, tt.logAtDebug)
			}

			buf.Reset()
			logger.Info("info message")
			if got := strings.Contains(buf.String(), "info message"); got != tt.logAtInfo {
				t.Errorf("info message visible = %v, want %v", got, tt.logAtInfo)
			}
		})
	}
}

func TestNewLogger_TraceLabel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("trace", &buf)
	logger.Log(context.Background(), LevelTrace, "spike")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("trace line not labelled: %q", buf.String())
	}
}

func TestNewEventLogger_InfoLevelIsNil(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "info")
	if el != nil {
		t.Fatal("expected nil EventLogger at info level")
	}

	el.Log(EventReward, 1, map[string]any{"reward": 1.0})
	el.Close()

	if _, err := os.Stat(filepath.Join(dir, "events.jsonl")); err == nil {
		t.Error("events.jsonl should not exist at info level")
	}
}

func TestEventLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	el := NewEventLogger(dir, "debug")
	if el == nil {
		t.Fatal("expected EventLogger at debug level")
	}

	fields := map[string]any{"reward": 0.5}
	el.Log(EventReward, 5.0, fields)
	el.Log(EventPrune, 5.1, map[string]any{"count": 3})
	el.Close()

	if _, ok := fields["event"]; ok {
		t.Error("Log mutated caller's map")
	}

	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("open events: %v", err)
	}
	defer f.Close()

	var kinds []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("invalid JSON line: %v", err)
		}
		if _, ok := entry["time"]; !ok {
			t.Error("entry missing time")
		}
		kinds = append(kinds, entry["event"].(string))
	}
	if len(kinds) != 2 || kinds[0] != EventReward || kinds[1] != EventPrune {
		t.Errorf("events = %v, want [reward prune]", kinds)
	}
}
