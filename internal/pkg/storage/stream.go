package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sbconlon/mlb-scraper/internal/pkg/config"
	"github.com/sbconlon/mlb-scraper/internal/pkg/stream"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// StreamSink broadcasts records to websocket clients.
type StreamSink struct {
	hub   *stream.Hub
	runID string
}

func NewStreamSink(hub *stream.Hub, runID string) *StreamSink {
	return &StreamSink{hub: hub, runID: runID}
}

func (s *StreamSink) Name() string { return config.SinkStream }

func (s *StreamSink) DumpState(_ context.Context, g *tracker.Game) error {
	rec := NewStateRecord(s.runID, g)
	return s.send(g.ID, Event{Kind: KindState, State: &rec})
}

func (s *StreamSink) DumpLines(_ context.Context, g *tracker.Game) error {
	rec, ok := NewLinesRecord(s.runID, g)
	if !ok {
		return nil
	}
	return s.send(g.ID, Event{Kind: KindLines, Lines: &rec})
}

func (s *StreamSink) send(gameID string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if !s.hub.Broadcast(stream.Message{GameID: gameID, Payload: data}) {
		return fmt.Errorf("stream queue full, dropped %s", ev.RoutingKey())
	}
	return nil
}

func (s *StreamSink) Close() error { return nil }
