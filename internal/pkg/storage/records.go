package storage

import (
	"time"

	"github.com/sbconlon/mlb-scraper/internal/pkg/models"
	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// StateRecord is one dumped row of in-game state.
type StateRecord struct {
	RunID     string    `json:"run_id"`
	GameID    string    `json:"game_id"`
	Timestamp time.Time `json:"timestamp"`
	Inning    int       `json:"inning"`
	IsBot     bool      `json:"is_bot"`
	Outs      int       `json:"outs"`
	Away      int       `json:"away"`
	Home      int       `json:"home"`
	First     bool      `json:"1B"`
	Second    bool      `json:"2B"`
	Third     bool      `json:"3B"`
	Batter    string    `json:"batter"`
	Pitcher   string    `json:"pitcher"`
	Balls     int       `json:"balls"`
	Strikes   int       `json:"strikes"`
}

// LinesRecord is one dumped set of betting lines for a game.
type LinesRecord struct {
	RunID     string             `json:"run_id"`
	GameID    string             `json:"game_id"`
	Timestamp time.Time          `json:"timestamp"`
	Books     []models.BookLines `json:"books"`
}

// Event wraps a record for the publishing sinks.
type Event struct {
	Kind  string       `json:"kind"` // "state" or "lines"
	State *StateRecord `json:"state,omitempty"`
	Lines *LinesRecord `json:"lines,omitempty"`
}

const (
	KindState = "state"
	KindLines = "lines"
)

func NewStateRecord(runID string, g *tracker.Game) StateRecord {
	return StateRecord{
		RunID:     runID,
		GameID:    g.ID,
		Timestamp: g.Updated,
		Inning:    g.Inning,
		IsBot:     g.Bottom,
		Outs:      g.Outs,
		Away:      g.Score.Away,
		Home:      g.Score.Home,
		First:     g.Bases[0],
		Second:    g.Bases[1],
		Third:     g.Bases[2],
		Batter:    g.Batter,
		Pitcher:   g.Pitcher,
		Balls:     g.Count.Balls,
		Strikes:   g.Count.Strikes,
	}
}

// NewLinesRecord returns the game's current lines, or false when it has none.
func NewLinesRecord(runID string, g *tracker.Game) (LinesRecord, bool) {
	if g.Lines == nil {
		return LinesRecord{}, false
	}
	ts := g.Lines.Stamp
	if ts.IsZero() {
		ts = g.Updated
	}
	return LinesRecord{
		RunID:     runID,
		GameID:    g.ID,
		Timestamp: ts,
		Books:     g.Lines.Books,
	}, true
}

// RoutingKey is the topic the event is published under, e.g. "state.NYY202407040".
func (e Event) RoutingKey() string {
	switch {
	case e.State != nil:
		return e.Kind + "." + e.State.GameID
	case e.Lines != nil:
		return e.Kind + "." + e.Lines.GameID
	}
	return e.Kind
}
