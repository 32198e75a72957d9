// Package storage persists game state and betting lines.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/sbconlon/mlb-scraper/internal/pkg/metrics"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// Sink is one persistence backend.
type Sink interface {
	Name() string
	DumpState(ctx context.Context, g *tracker.Game) error
	DumpLines(ctx context.Context, g *tracker.Game) error
	Close() error
}

// Multi fans dumps out to every sink. A failing sink does not stop the
// others; failures are counted and returned joined.
type Multi struct {
	sinks   []Sink
	metrics *metrics.Metrics
}

var _ tracker.Sink = (*Multi)(nil)

func NewMulti(m *metrics.Metrics, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, metrics: m}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) DumpState(ctx context.Context, g *tracker.Game) error {
	return m.each(KindState, func(s Sink) error { return s.DumpState(ctx, g) })
}

func (m *Multi) DumpLines(ctx context.Context, g *tracker.Game) error {
	return m.each(KindLines, func(s Sink) error { return s.DumpLines(ctx, g) })
}

// Sinks returns the configured sinks.
func (m *Multi) Sinks() []Sink { return m.sinks }

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) each(op string, fn func(Sink) error) error {
	var errs []error
	for _, s := range m.sinks {
		if err := fn(s); err != nil {
			m.metrics.RecordSinkFailure(s.Name(), op)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
