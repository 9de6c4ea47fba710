package metrics

import (
	"context"
	"time"
)

// KindOK labels a generation that produced records
const KindOK = "ok"

// Outcome describes one finished generation call
type Outcome struct {
	Task         string
	Kind         string // KindOK or an error kind
	Model        string
	Duration     time.Duration
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// Success reports whether the generation produced records
func (o Outcome) Success() bool {
	return o.Kind == KindOK
}

// Recorder receives generation outcomes and HTTP request timings
type Recorder interface {
	RecordGeneration(ctx context.Context, outcome Outcome)
	RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration)
}

// Multi fans every record out to each non-nil recorder in order
type Multi []Recorder

// NewMulti drops nil recorders
func NewMulti(recorders ...Recorder) Multi {
	out := make(Multi, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// RecordGeneration forwards to every recorder
func (m Multi) RecordGeneration(ctx context.Context, outcome Outcome) {
	for _, r := range m {
		r.RecordGeneration(ctx, outcome)
	}
}

// RecordAPIRequest forwards to every recorder
func (m Multi) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	for _, r := range m {
		r.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	}
}

// Nop discards everything
type Nop struct{}

// RecordGeneration does nothing
func (Nop) RecordGeneration(context.Context, Outcome) {}

// RecordAPIRequest does nothing
func (Nop) RecordAPIRequest(context.Context, string, int, time.Duration) {}
