// Package logging provides leveled logging and plasticity event tracing for
// the simulator. It has two outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - An EventLogger for JSONL learning events (<dir>/events.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. Per-spike and per-event
// detail is only logged at this level.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name to a slog.Level.
// Supported values: "warn", "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing text to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Event kinds written by the simulator.
const (
	EventReward        = "reward"
	EventPrune         = "prune"
	EventQueueOverflow = "queue_overflow"
	EventPresentation  = "presentation"
)

// EventLogger appends learning events to a JSONL file. It is safe for
// concurrent use, and a nil EventLogger is a no-op.
type EventLogger struct {
	mu   sync.Mutex
	file *os.File
	now  func() time.Time
}

// NewEventLogger opens dir/events.jsonl for append. At info level or above
// it returns nil and creates nothing. It also returns nil when the file
// cannot be opened.
func NewEventLogger(dir string, level string) *EventLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &EventLogger{file: f, now: time.Now}
}

// Log writes one event line. kind is stored under "event", simulated time
// under "sim_time" and wall-clock time under "time". fields is not mutated.
func (el *EventLogger) Log(kind string, simTime float64, fields map[string]any) {
	if el == nil || el.file == nil {
		return
	}

	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = kind
	entry["sim_time"] = simTime
	entry["time"] = el.now().UTC().Format(time.RFC3339Nano)

	el.mu.Lock()
	defer el.mu.Unlock()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = el.file.Write(data)
}

// Close closes the underlying file. Safe on nil receiver.
func (el *EventLogger) Close() {
	if el == nil || el.file == nil {
		return
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	el.file.Close()
	el.file = nil
}
