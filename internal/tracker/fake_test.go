package tracker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sbconlon/mlb-scraper/internal/pkg/models"
)

type fakeCard struct {
	stage     Stage
	delayed   bool
	postponed bool
	suspended bool
	away      string
	home      string
	start     time.Time
	live      LiveFields
	final     *Score
}

func (c fakeCard) IsWarmup() bool     { return c.stage == StageWarmup }
func (c fakeCard) IsNotStarted() bool { return c.stage == StageNotStarted }
func (c fakeCard) IsInProgress() bool { return c.stage == StageInProgress }
func (c fakeCard) IsConcluded() bool  { return c.stage == StageConcluded && !c.postponed && !c.suspended }
func (c fakeCard) IsDelayed() bool    { return c.delayed }
func (c fakeCard) IsPostponed() bool  { return c.postponed }
func (c fakeCard) IsSuspended() bool  { return c.suspended }
func (c fakeCard) Teams() (string, string) {
	return c.away, c.home
}
func (c fakeCard) StartTime() (time.Time, bool) { return c.start, !c.start.IsZero() }
func (c fakeCard) Live() LiveFields             { return c.live }
func (c fakeCard) FinalScore() (Score, bool) {
	if c.final == nil {
		return Score{}, false
	}
	return *c.final, true
}

func pregame(away, home string, start time.Time) fakeCard {
	return fakeCard{stage: StageNotStarted, away: away, home: home, start: start}
}

func liveCard(away, home, inning string, outs int) fakeCard {
	return fakeCard{
		stage: StageInProgress, away: away, home: home,
		live: LiveFields{InningLabel: inning, Outs: &outs, Score: &Score{Away: 1, Home: 2}},
	}
}

func finalCard(away, home string, score Score) fakeCard {
	return fakeCard{stage: StageConcluded, away: away, home: home, final: &score}
}

// fakeSource returns one batch of cards per call.
type fakeSource struct {
	batches [][]Snapshot
	calls   int
	err     error

	opened, closed int
	events         []string
}

func (s *fakeSource) Snapshots(ctx context.Context) ([]Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	if len(s.batches) > 1 {
		s.batches = s.batches[1:]
	}
	return batch, nil
}

func cards(cs ...fakeCard) []Snapshot {
	out := make([]Snapshot, len(cs))
	for i, c := range cs {
		out[i] = c
	}
	return out
}

// sessionSource also implements Session.
type sessionSource struct {
	fakeSource
}

func (s *sessionSource) Open(ctx context.Context) error {
	s.opened++
	s.events = append(s.events, "open")
	return nil
}

func (s *sessionSource) Close() error {
	s.closed++
	s.events = append(s.events, "close")
	return nil
}

type fakeOdds struct {
	lines map[string]models.Lines
	err   error
}

func (o *fakeOdds) Get(ctx context.Context) (map[string]models.Lines, error) {
	return o.lines, o.err
}

func (o *fakeOdds) Usage() (int, int) { return 480, 20 }

type fakeSink struct {
	states []Game
	lines  []Game
	err    error
}

func (s *fakeSink) DumpState(ctx context.Context, g *Game) error {
	s.states = append(s.states, *g)
	return s.err
}

func (s *fakeSink) DumpLines(ctx context.Context, g *Game) error {
	s.lines = append(s.lines, *g)
	return s.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, msg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) count(substr string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.msgs {
		if strings.Contains(m, substr) {
			c++
		}
	}
	return c
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

var errBoom = errors.New("boom")

func day(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}
