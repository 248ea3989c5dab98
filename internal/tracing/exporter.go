package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanRecord is one line of the trace file. The attributes set by the
// gateway and the stats engine are lifted into typed fields; anything else
// lands in Extra.
type SpanRecord struct {
	TraceID    string  `json:"trace_id"`
	SpanID     string  `json:"span_id"`
	ParentID   string  `json:"parent_id,omitempty"`
	Name       string  `json:"name"`
	Start      string  `json:"start"`
	DurationMs float64 `json:"duration_ms"`
	Failed     bool    `json:"failed,omitempty"`
	Error      string  `json:"error,omitempty"`

	Session          *SessionFields `json:"session,omitempty"`
	Streak           *StreakFields  `json:"streak,omitempty"`
	MigrationVersion *int64         `json:"migration_version,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// SessionFields mirrors the session.* attributes. Only Date is set on
// recompute and streak spans.
type SessionFields struct {
	GUID          string `json:"guid,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	Date          string `json:"date,omitempty"`
	ActualSeconds *int64 `json:"actual_seconds,omitempty"`
}

// StreakFields mirrors the streak.* attributes.
type StreakFields struct {
	Current int64 `json:"current"`
	Longest int64 `json:"longest"`
}

// FileExporter appends SpanRecords as JSON lines.
type FileExporter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileExporter appends to path, creating it and its parent directories.
func NewFileExporter(path string) (*FileExporter, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) // #nosec G304 -- path comes from the user's config
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &FileExporter{file: f, enc: json.NewEncoder(f)}, nil
}

// ExportSpans writes one line per span. Spans exported after Shutdown are
// dropped.
func (e *FileExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	for _, s := range spans {
		if err := e.enc.Encode(toRecord(s)); err != nil {
			return fmt.Errorf("encode span %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Shutdown closes the file. Calling it twice is harmless.
func (e *FileExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file, e.enc = nil, nil
	return err
}

func toRecord(s sdktrace.ReadOnlySpan) SpanRecord {
	rec := SpanRecord{
		TraceID:    s.SpanContext().TraceID().String(),
		SpanID:     s.SpanContext().SpanID().String(),
		Name:       s.Name(),
		Start:      s.StartTime().Format(time.RFC3339Nano),
		DurationMs: float64(s.EndTime().Sub(s.StartTime()).Microseconds()) / 1000,
	}
	if s.Parent().IsValid() {
		rec.ParentID = s.Parent().SpanID().String()
	}
	if st := s.Status(); st.Code == codes.Error {
		rec.Failed = true
		rec.Error = st.Description
	}
	for _, kv := range s.Attributes() {
		rec.set(kv)
	}
	return rec
}

func (r *SpanRecord) session() *SessionFields {
	if r.Session == nil {
		r.Session = &SessionFields{}
	}
	return r.Session
}

func (r *SpanRecord) streak() *StreakFields {
	if r.Streak == nil {
		r.Streak = &StreakFields{}
	}
	return r.Streak
}

func (r *SpanRecord) set(kv attribute.KeyValue) {
	switch string(kv.Key) {
	case AttrSessionGUID:
		r.session().GUID = kv.Value.AsString()
	case AttrSessionMode:
		r.session().Mode = kv.Value.AsString()
	case AttrSessionOutcome:
		r.session().Outcome = kv.Value.AsString()
	case AttrSessionDate:
		r.session().Date = kv.Value.AsString()
	case AttrActualSeconds:
		v := kv.Value.AsInt64()
		r.session().ActualSeconds = &v
	case AttrStreakCurrent:
		r.streak().Current = kv.Value.AsInt64()
	case AttrStreakLongest:
		r.streak().Longest = kv.Value.AsInt64()
	case AttrMigrationVersion:
		v := kv.Value.AsInt64()
		r.MigrationVersion = &v
	case AttrErrorMessage:
		r.Error = kv.Value.AsString()
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[string(kv.Key)] = kv.Value.AsInterface()
	}
}
