package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/pkg/metrics"
	"github.com/sbconlon/mlb-scraper/internal/pkg/stream"
)

// Open builds the sinks named in cfg.Sinks. hub is required only for the
// stream sink. On error, sinks opened so far are closed.
func Open(ctx context.Context, cfg config.StorageConfig, runID string, hub *stream.Hub, m *metrics.Metrics) (*Multi, error) {
	var sinks []Sink
	fail := func(err error) (*Multi, error) {
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}

	for _, name := range cfg.Sinks {
		var (
			s   Sink
			err error
		)
		switch name {
		case config.SinkCSV:
			s, err = NewCSVSink(cfg.CSV, runID)
		case config.SinkSQL:
			s, err = OpenSQL(ctx, cfg.SQL, runID)
		case config.SinkRedis:
			s, err = NewRedisSink(ctx, cfg.Redis, runID)
		case config.SinkAMQP:
			s, err = NewAMQPSink(cfg.AMQP, runID)
		case config.SinkStream:
			if hub == nil {
				err = errors.New("stream sink needs a hub")
				break
			}
			s = NewStreamSink(hub, runID)
		default:
			err = fmt.Errorf("unknown sink %q", name)
		}
		if err != nil {
			return fail(fmt.Errorf("failed to open %s sink: %w", name, err))
		}
		sinks = append(sinks, s)
		slog.Info("Storage sink ready", "sink", name)
	}
	return NewMulti(m, sinks...), nil
}
