// Package notify delivers operator alerts.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sbconlon/mlb-scraper/internal/pkg/metrics"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// Notifier is one alert channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg string) error
}

// Multi sends each alert to every notifier. Failures are counted and
// returned joined; a failing notifier does not block the rest.
type Multi struct {
	notifiers []Notifier
	metrics   *metrics.Metrics
}

var _ tracker.Notifier = (*Multi)(nil)

func NewMulti(m *metrics.Metrics, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, metrics: m}
}

func (m *Multi) Notify(ctx context.Context, msg string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			m.metrics.RecordNotifyFailure(n.Name())
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of configured notifiers.
func (m *Multi) Len() int { return len(m.notifiers) }
