// Package scoreboard reads game cards from the MLB scores page.
package scoreboard

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"golang.org/x/net/html"

	"github.com/sbconlon/mlb-scraper/internal/tracker"
)

// ErrNoScoreboard is returned when the page has no scores container.
var ErrNoScoreboard = errors.New("scores container not found")

// Eastern is the zone the scores page posts start times in.
var Eastern = mustLoad("America/New_York")

const occupiedFill = "#EFB21F"

var (
	startTimePattern = regexp.MustCompile(`^\d?\d:\d\d [AP]M ET$`)
	liveTokens       = map[string]bool{"Top": true, "Bot": true, "Mid": true, "End": true}
)

// Card is one game container on the scores page. All extraction happens in
// Parse; missing elements leave fields empty instead of failing.
type Card struct {
	day time.Time // scoreboard date, Eastern

	inning     string // inningNumberLabel
	startLabel string // div gameStartTimesStateLabel, posted start for pregame
	stateLabel string // span gameStartTimesStateLabel, Final/Postponed/...
	away, home string

	score   *tracker.Score
	outs    *int
	bases   *tracker.Bases
	count   *tracker.Count
	pitcher string
	batter  string
}

var _ tracker.Snapshot = (*Card)(nil)

// Parse extracts every game card from a scores page. day is the date the
// page shows; only its calendar date is used.
func Parse(r io.Reader, day time.Time) ([]*Card, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scores page: %w", err)
	}
	root := findFirst(doc, byAttr("div", "id", "scores-schedule-root"))
	if root == nil {
		return nil, ErrNoScoreboard
	}
	day = day.In(Eastern)
	var cards []*Card
	for _, n := range findAll(root, byAttr("div", "data-test-mlb", "singleGameContainer")) {
		cards = append(cards, parseCard(n, day))
	}
	return cards, nil
}

func parseCard(n *html.Node, day time.Time) *Card {
	c := &Card{
		day:        day,
		inning:     text(findFirst(n, byAttr("div", "data-mlb-test", "inningNumberLabel"))),
		startLabel: text(findFirst(n, byAttr("div", "data-mlb-test", "gameStartTimesStateLabel"))),
		stateLabel: text(findFirst(n, byAttr("span", "data-mlb-test", "gameStartTimesStateLabel"))),
		score:      parseScore(n),
		outs:       parseOuts(n),
		bases:      parseBases(n),
		count:      parseCount(n),
	}
	if teams := findAll(n, byAttr("div", "data-mlb-test", "teamNameLabel")); len(teams) >= 2 {
		c.away = text(findFirst(teams[0], byTag("div")))
		c.home = text(findFirst(teams[1], byTag("div")))
	}
	if players := findAll(n, byAttr("div", "data-mlb-test", "playerNameLinks")); len(players) == 2 {
		c.pitcher, c.batter = text(players[0]), text(players[1])
	}
	return c
}

// parseScore reads runs from the first column of the box score (second table).
func parseScore(n *html.Node) *tracker.Score {
	tables := findAll(n, byTag("table"))
	if len(tables) < 2 {
		return nil
	}
	rows := findAll(tables[1], byTag("tr"))
	if len(rows) < 3 {
		return nil
	}
	runs := func(row *html.Node) (int, bool) {
		td := findFirst(row, byTag("td"))
		if td == nil {
			return 0, false
		}
		v, err := strconv.Atoi(text(findFirst(td, byTag("div"))))
		return v, err == nil
	}
	away, ok1 := runs(rows[1])
	home, ok2 := runs(rows[2])
	if !ok1 || !ok2 {
		return nil
	}
	return &tracker.Score{Away: away, Home: home}
}

// parseOuts reads the leading digit of the second <title>, e.g. "2 Outs".
func parseOuts(n *html.Node) *int {
	titles := findAll(n, byTag("title"))
	if len(titles) < 2 {
		return nil
	}
	t := text(titles[1])
	if t == "" {
		return nil
	}
	outs, err := strconv.Atoi(t[:1])
	if err != nil || outs > 3 {
		return nil
	}
	return &outs
}

// parseBases reads the base diamond. Rects are drawn third, second, first.
func parseBases(n *html.Node) *tracker.Bases {
	rects := findAll(n, byTag("rect"))
	if len(rects) < 3 {
		return nil
	}
	var b tracker.Bases
	for i := range b {
		b[i] = strings.EqualFold(attr(rects[len(rects)-1-i], "fill"), occupiedFill)
	}
	return &b
}

// parseCount reads the "balls - strikes" label.
func parseCount(n *html.Node) *tracker.Count {
	parts := strings.Split(text(findFirst(n, byClassPrefix("div", "StyledCountWrapper"))), " - ")
	if len(parts) != 2 {
		return nil
	}
	balls, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	strikes, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return nil
	}
	return &tracker.Count{Balls: balls, Strikes: strikes}
}

func (c *Card) IsWarmup() bool { return c.inning == "Warmup" }

func (c *Card) IsInProgress() bool {
	return len(c.inning) >= 3 && liveTokens[c.inning[:3]]
}

func (c *Card) IsNotStarted() bool { return startTimePattern.MatchString(c.startLabel) }

func (c *Card) IsConcluded() bool { return strings.HasPrefix(c.stateLabel, "Final") }

func (c *Card) IsPostponed() bool { return strings.HasPrefix(c.stateLabel, "Postponed") }

func (c *Card) IsSuspended() bool { return strings.HasPrefix(c.stateLabel, "Suspended") }

func (c *Card) IsDelayed() bool {
	return strings.Contains(c.stateLabel, "Delayed") || strings.Contains(c.startLabel, "Delayed") ||
		strings.Contains(c.inning, "Delayed")
}

func (c *Card) Teams() (string, string) { return c.away, c.home }

// StartTime parses the posted "7:05 PM ET" label on the scoreboard day.
func (c *Card) StartTime() (time.Time, bool) {
	if !c.IsNotStarted() {
		return time.Time{}, false
	}
	clock, err := time.Parse("3:04 PM", strings.TrimSuffix(c.startLabel, " ET"))
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := c.day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, Eastern), true
}

func (c *Card) Live() tracker.LiveFields {
	return tracker.LiveFields{
		InningLabel: c.inning,
		Score:       c.score,
		Outs:        c.outs,
		Bases:       c.bases,
		Count:       c.count,
		Batter:      c.batter,
		Pitcher:     c.pitcher,
	}
}

func (c *Card) FinalScore() (tracker.Score, bool) {
	if c.score == nil {
		return tracker.Score{}, false
	}
	return *c.score, true
}

func (c *Card) String() string {
	return fmt.Sprintf("%s at %s (%s%s%s)", c.away, c.home, c.inning, c.startLabel, c.stateLabel)
}

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("scoreboard: load %s: %v", name, err))
	}
	return loc
}
