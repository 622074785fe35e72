package dao

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sink receives records after the state they describe is committed.
type Sink interface {
	Publish(ctx context.Context, rec Record) error
}

// NopSink drops everything.
type NopSink struct{}

func (NopSink) Publish(context.Context, Record) error { return nil }

// MemorySink keeps records in order, tests read them back.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) Publish(_ context.Context, rec Record) error {
	m.mu.Lock()
	m.records = append(m.records, rec)
	m.mu.Unlock()
	return nil
}

// Records returns a copy of everything published so far.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

// Kinds lists the kinds in publish order.
func (m *MemorySink) Kinds() []string {
	recs := m.Records()
	kinds := make([]string, len(recs))
	for i, r := range recs {
		kinds[i] = r.Kind()
	}
	return kinds
}

// Drain returns everything published so far and forgets it.
func (m *MemorySink) Drain() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.records
	m.records = nil
	return out
}

// Reset forgets recorded events.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.records = nil
	m.mu.Unlock()
}

// Find returns every recorded event of type T.
func Find[T Event](m *MemorySink) []T {
	var out []T
	for _, r := range m.Records() {
		if ev, ok := r.Event.(T); ok {
			out = append(out, ev)
		}
	}
	return out
}

// LogSink writes the terse event line through zap.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log.Named("events")}
}

func (l *LogSink) Publish(_ context.Context, rec Record) error {
	l.log.Info(rec.LogLine(),
		zap.Uint64("seq", rec.Seq),
		zap.String("kind", rec.Kind()),
		zap.String("tx", rec.Tx),
		zap.Int64("at", rec.At),
	)
	return nil
}

// MultiSink fans out to every sink and joins their errors.
type MultiSink []Sink

func (ms MultiSink) Publish(ctx context.Context, rec Record) error {
	var errs error
	for _, s := range ms {
		errs = multierr.Append(errs, s.Publish(ctx, rec))
	}
	return errs
}
