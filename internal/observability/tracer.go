package observability

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Tracer starts spans around generation stages.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, Span)
}

// Span is ended exactly once with the operation's error.
type Span interface {
	End(err error)
}

// NopTracer records nothing.
type NopTracer struct{}

type nopSpan struct{}

func (NopTracer) Start(ctx context.Context, _ string) (context.Context, Span) { return ctx, nopSpan{} }
func (nopSpan) End(error)                                                     {}

// JSONTraceEntry is one span written by JSONTracer.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	DurationMS float64   `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// JSONTracer writes spans as JSON lines and keeps them for inspection.
type JSONTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w; w may be nil.
func NewJSONTracer(w io.Writer) *JSONTracer {
	t := &JSONTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of all ended spans.
func (t *JSONTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start opens a span.
func (t *JSONTracer) Start(ctx context.Context, operation string) (context.Context, Span) {
	return ctx, &jsonSpan{tracer: t, operation: operation, started: time.Now().UTC()}
}

type jsonSpan struct {
	tracer    *JSONTracer
	operation string
	started   time.Time
}

func (s *jsonSpan) End(err error) {
	ended := time.Now().UTC()
	entry := JSONTraceEntry{
		Operation:  s.operation,
		Status:     status(err == nil),
		DurationMS: float64(ended.Sub(s.started)) / float64(time.Millisecond),
		StartedAt:  s.started,
		EndedAt:    ended,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
	s.tracer.mu.Unlock()
}

var (
	_ Tracer = NopTracer{}
	_ Tracer = (*JSONTracer)(nil)
)
