package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sbconlon/mlb-scraper/internal/pkg/models"
)

// Bucket is a life stage. Games only move forward through them.
type Bucket int

const (
	NotStarted Bucket = iota
	InProgress
	Concluded
)

func (b Bucket) String() string {
	switch b {
	case NotStarted:
		return "not-started"
	case InProgress:
		return "in-progress"
	case Concluded:
		return "concluded"
	default:
		return "bucket(" + strconv.Itoa(int(b)) + ")"
	}
}

// Score is runs for each side.
type Score struct {
	Away int `json:"away"`
	Home int `json:"home"`
}

// Count is the ball-strike count of the current plate appearance.
type Count struct {
	Balls   int `json:"balls"`
	Strikes int `json:"strikes"`
}

// Bases holds occupancy of first, second and third base.
type Bases [3]bool

// LiveFields are the values read from an in-progress card. Nil pointers mean
// the field could not be read and the previous value is kept.
type LiveFields struct {
	InningLabel string // e.g. "Top 5", "Mid 7"
	Score       *Score
	Outs        *int
	Bases       *Bases
	Count       *Count
	Batter      string
	Pitcher     string
}

// Game is one logical game. It is owned by exactly one bucket.
type Game struct {
	ID        string        `json:"id"`
	Prefix    string        `json:"prefix"`
	Seq       uint64        `json:"-"` // creation order, breaks start time ties
	StartTime time.Time     `json:"start_time,omitzero"`
	Bucket    Bucket        `json:"-"`
	Updated   time.Time     `json:"updated,omitzero"`
	Inning    int           `json:"inning"`
	Bottom    bool          `json:"is_bot"`
	Outs      int           `json:"outs"`
	Score     Score         `json:"score"`
	Bases     Bases         `json:"bases"`
	Batter    string        `json:"batter,omitempty"`
	Pitcher   string        `json:"pitcher,omitempty"`
	Count     Count         `json:"count"`
	Lines     *models.Lines `json:"lines,omitempty"`
}

// HasStartTime reports whether the posted start time is known.
func (g *Game) HasStartTime() bool { return !g.StartTime.IsZero() }

// Half labels the current half inning.
func (g *Game) Half() string {
	if g.Bottom {
		return "Bot"
	}
	return "Top"
}

// Recognized inning label tokens and whether they mean the home team bats.
var inningTokens = map[string]bool{
	"Top": false,
	"Bot": true,
	"Mid": true,
	"End": true,
}

// Apply overwrites the live state from f and stamps ts. Fields the card did
// not yield (nil values, empty names) keep their previous value. A nil lines clears
// the merged odds; otherwise a copy stamped with ts is attached. An unknown
// inning label leaves the inning untouched and is reported after everything
// else has been applied.
func (g *Game) Apply(ts time.Time, f LiveFields, lines *models.Lines) error {
	g.Updated = ts
	if lines != nil {
		g.Lines = lines.StampedAt(ts)
	} else {
		g.Lines = nil
	}
	if f.Score != nil {
		g.Score = *f.Score
	}
	if f.Outs != nil {
		g.Outs = *f.Outs % 3
	}
	if f.Bases != nil {
		g.Bases = *f.Bases
	}
	if f.Count != nil {
		g.Count = *f.Count
	}
	if f.Batter != "" {
		g.Batter = f.Batter
	}
	if f.Pitcher != "" {
		g.Pitcher = f.Pitcher
	}

	inning, bottom, err := parseInning(f.InningLabel)
	if err != nil {
		return err
	}
	g.Inning = inning
	g.Bottom = bottom
	return nil
}

func parseInning(label string) (int, bool, error) {
	label = strings.TrimSpace(label)
	if len(label) < 3 {
		return 0, false, &UnrecognizedPeriodLabelError{Label: label}
	}
	bottom, ok := inningTokens[label[:3]]
	if !ok {
		return 0, false, &UnrecognizedPeriodLabelError{Label: label}
	}
	n, err := strconv.Atoi(strings.TrimSpace(label[3:]))
	if err != nil || n < 1 {
		return 0, false, &UnrecognizedPeriodLabelError{Label: label}
	}
	return n, bottom, nil
}

// String renders a small text scoreboard for debug logs.
func (g *Game) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]\n", g.ID, g.Bucket)
	fmt.Fprintf(&b, "%s %d | Away %d - Home %d | %d out\n", g.Half(), g.Inning, g.Score.Away, g.Score.Home, g.Outs)
	fmt.Fprintf(&b, "P: %s  AB: %s  (%d-%d)\n", orDash(g.Pitcher), orDash(g.Batter), g.Count.Balls, g.Count.Strikes)
	fmt.Fprintf(&b, "    %s\n", base(g.Bases[1]))
	fmt.Fprintf(&b, "  %s   %s", base(g.Bases[2]), base(g.Bases[0]))
	return b.String()
}

func base(occupied bool) string {
	if occupied {
		return "[x]"
	}
	return "[ ]"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
