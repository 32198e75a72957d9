package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes records to a topic exchange under state.<id> and
// lines.<id>.
type AMQPSink struct {
	conn     *amqp.Connection
	exchange string
	runID    string
	now      func() time.Time

	mu sync.Mutex // amqp channels are not safe for concurrent publishing
	ch publisher
}

func NewAMQPSink(cfg config.AMQPConfig, runID string) (*AMQPSink, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}
	slog.Info("Connected to AMQP server", "exchange", cfg.Exchange)
	return &AMQPSink{conn: conn, ch: ch, exchange: cfg.Exchange, runID: runID, now: time.Now}, nil
}

func (a *AMQPSink) Name() string { return config.SinkAMQP }

func (a *AMQPSink) DumpState(_ context.Context, g *tracker.Game) error {
	rec := NewStateRecord(a.runID, g)
	return a.publish(Event{Kind: KindState, State: &rec})
}

func (a *AMQPSink) DumpLines(_ context.Context, g *tracker.Game) error {
	rec, ok := NewLinesRecord(a.runID, g)
	if !ok {
		return nil
	}
	return a.publish(Event{Kind: KindLines, Lines: &rec})
}

func (a *AMQPSink) publish(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	err = a.ch.Publish(a.exchange, ev.RoutingKey(), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    a.now(),
		AppId:        a.runID,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", ev.RoutingKey(), err)
	}
	return nil
}

func (a *AMQPSink) Close() error {
	if a.conn == nil {
		return nil
	}
	return a.conn.Close()
}
