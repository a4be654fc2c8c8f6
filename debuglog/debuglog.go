// Package debuglog is the per-scrape diagnostic trail. Each execution context
// (the broker, each document run in a tab) appends step entries to its own Log;
// logs are concatenated, never merged, when they cross a boundary so causal
// order survives navigation.
package debuglog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Source identifies which side of the broker boundary produced an entry.
type Source string

const (
	SourceBackground Source = "background"
	SourceContent    Source = "content"
)

// Entry is one diagnostic step.
type Entry struct {
	Step      string    `json:"step"`
	Source    Source    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Meta      any       `json:"meta,omitempty"`
}

// Log is an append-only entry list bound to a single source.
type Log struct {
	mu      sync.Mutex
	source  Source
	entries []Entry
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Log. A nil logger mirrors to slog.Default().
func New(source Source, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		source: source,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Add appends a step. meta may be nil.
func (l *Log) Add(step string, meta any) {
	e := Entry{
		Step:      step,
		Source:    l.source,
		Timestamp: l.now(),
		Meta:      normalize(meta),
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	l.mu.Unlock()

	if e.Meta != nil {
		l.logger.Debug("debuglog: "+step, "source", string(l.source), "meta", e.Meta)
	} else {
		l.logger.Debug("debuglog: "+step, "source", string(l.source))
	}
}

// Entries returns a copy of the entries logged so far.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Concat joins entry sequences in argument order. The result is never nil.
func Concat(parts ...[]Entry) []Entry {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]Entry, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// normalize turns metadata into something that survives a JSON round trip:
// errors become their message, maps and slices are walked, funcs become
// a placeholder.
func normalize(meta any) any {
	switch v := meta.(type) {
	case nil:
		return nil
	case error:
		return v.Error()
	case string, bool, int, int64, float64:
		return v
	case fmt.Stringer:
		return v.String()
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = normalize(val)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	}

	// Anything else: keep it only if it marshals.
	if _, err := json.Marshal(meta); err != nil {
		return fmt.Sprintf("%T", meta)
	}
	return meta
}
