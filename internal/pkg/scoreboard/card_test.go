package scoreboard

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

func parseFixture(t *testing.T) []*Card {
	t.Helper()
	f, err := os.Open("testdata/scores.html")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()
	cards, err := Parse(f, time.Date(2024, 7, 4, 16, 0, 0, 0, Eastern))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cards) != 6 {
		t.Fatalf("Parse returned %d cards, want 6", len(cards))
	}
	return cards
}

func TestParseClassification(t *testing.T) {
	cards := parseFixture(t)
	want := []tracker.Stage{
		tracker.StageInProgress,
		tracker.StageNotStarted,
		tracker.StageNotStarted,
		tracker.StageConcluded,
		tracker.StageConcluded,
		tracker.StageWarmup,
	}
	for i, c := range cards {
		if got := tracker.Classify(c); got != want[i] {
			t.Errorf("card %d (%s) classified %s, want %s", i, c, got, want[i])
		}
	}
	if !cards[2].IsDelayed() || cards[1].IsDelayed() {
		t.Error("delayed flag wrong")
	}
	if !cards[4].IsPostponed() || cards[4].IsConcluded() {
		t.Error("postponed card flags wrong")
	}
}

func TestParseLiveCard(t *testing.T) {
	c := parseFixture(t)[0]

	away, home := c.Teams()
	if away != "Red Sox" || home != "Yankees" {
		t.Errorf("Teams() = (%q, %q), want (%q, %q)", away, home, "Red Sox", "Yankees")
	}
	live := c.Live()
	if live.InningLabel != "Bot 7" {
		t.Errorf("InningLabel = %q, want %q", live.InningLabel, "Bot 7")
	}
	if live.Score == nil || *live.Score != (tracker.Score{Away: 3, Home: 5}) {
		t.Errorf("Score = %v, want 3-5", live.Score)
	}
	if live.Outs == nil || *live.Outs != 2 {
		t.Errorf("Outs = %v, want 2", live.Outs)
	}
	if live.Bases == nil || *live.Bases != (tracker.Bases{true, false, true}) {
		t.Errorf("Bases = %v, want first and third", live.Bases)
	}
	if live.Count == nil || *live.Count != (tracker.Count{Balls: 3, Strikes: 2}) {
		t.Errorf("Count = %v, want 3-2", live.Count)
	}
	if live.Pitcher != "Cole" || live.Batter != "Devers" {
		t.Errorf("Pitcher, Batter = %q, %q", live.Pitcher, live.Batter)
	}
}

func TestParseStartTime(t *testing.T) {
	cards := parseFixture(t)
	tests := []struct {
		card int
		want time.Time
	}{
		{1, time.Date(2024, 7, 4, 19, 5, 0, 0, Eastern)},
		{2, time.Date(2024, 7, 4, 22, 40, 0, 0, Eastern)},
	}
	for _, tt := range tests {
		got, ok := cards[tt.card].StartTime()
		if !ok || !got.Equal(tt.want) {
			t.Errorf("card %d StartTime() = %v, %v, want %v", tt.card, got, ok, tt.want)
		}
	}
	if _, ok := cards[0].StartTime(); ok {
		t.Error("live card reported a start time")
	}
}

func TestParseFinalScore(t *testing.T) {
	cards := parseFixture(t)
	if got, ok := cards[3].FinalScore(); !ok || got != (tracker.Score{Away: 6, Home: 2}) {
		t.Errorf("FinalScore() = %v, %v, want 6-2", got, ok)
	}
	if _, ok := cards[4].FinalScore(); ok {
		t.Error("postponed card reported a score")
	}
}

func TestParseFailsSoft(t *testing.T) {
	page := `<main><div id="scores-schedule-root">
		<div data-test-mlb="singleGameContainer">
			<div data-mlb-test="inningNumberLabel">Top 3</div>
			<div class="StyledCountWrapper">one - two</div>
			<div data-mlb-test="playerNameLinks">Only One</div>
		</div></div></main>`
	cards, err := Parse(strings.NewReader(page), time.Now())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	live := cards[0].Live()
	if live.Score != nil || live.Outs != nil || live.Bases != nil || live.Count != nil {
		t.Errorf("missing fields produced values: %+v", live)
	}
	if live.Pitcher != "" || live.Batter != "" {
		t.Errorf("single player link produced names %q, %q", live.Pitcher, live.Batter)
	}
	if away, home := cards[0].Teams(); away != "" || home != "" {
		t.Errorf("Teams() = %q, %q, want empty", away, home)
	}
}

func TestParseNoScoreboard(t *testing.T) {
	_, err := Parse(strings.NewReader("<main><p>Offline</p></main>"), time.Now())
	if !errors.Is(err, ErrNoScoreboard) {
		t.Errorf("Parse error = %v, want ErrNoScoreboard", err)
	}
}

func TestCardsResolveAgainstTeamTable(t *testing.T) {
	table := tracker.DefaultTeamTable()
	for _, c := range parseFixture(t) {
		_, home := c.Teams()
		if _, err := table.Lookup(home); err != nil {
			t.Errorf("home team %q not in team table: %v", home, err)
		}
	}
}
