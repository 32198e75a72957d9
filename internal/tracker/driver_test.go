package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sbconlon/mlb-scraper/internal/pkg/models"
)

type driverHarness struct {
	source   *sessionSource
	odds     *fakeOdds
	sink     *fakeSink
	notifier *recordingNotifier
	clock    *fakeClock
	views    []View
	driver   *Driver
}

func newHarness(t *testing.T, batches ...[]Snapshot) *driverHarness {
	t.Helper()
	h := &driverHarness{
		source:   &sessionSource{fakeSource{batches: batches}},
		odds:     &fakeOdds{},
		sink:     &fakeSink{},
		notifier: &recordingNotifier{},
		clock:    &fakeClock{now: day(2024, 7, 4, 20, 0)},
	}
	h.driver = NewDriver(h.source, h.odds, h.sink, h.notifier, Options{
		Clock:   h.clock.Now,
		Publish: func(v View) { h.views = append(h.views, v) },
	})
	return h
}

func (h *driverHarness) cycle(t *testing.T) time.Duration {
	t.Helper()
	wait, err := h.driver.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	return wait
}

func TestDriverPregameToLive(t *testing.T) {
	start := day(2024, 7, 4, 23, 5)
	h := newHarness(t,
		cards(pregame("Boston Red Sox", "New York Yankees", start)),
		cards(liveCard("Boston Red Sox", "New York Yankees", "Top 1", 3)),
	)

	wait := h.cycle(t)
	g, ok := h.driver.Buckets().Get(NotStarted, "NYY202407040")
	if !ok {
		t.Fatal("pregame game not created")
	}
	if want := start.Sub(h.clock.now); wait != want {
		t.Errorf("wait = %v, want %v", wait, want)
	}

	h.clock.now = start.Add(5 * time.Minute)
	if wait := h.cycle(t); wait != time.Minute {
		t.Errorf("live wait = %v, want %v", wait, time.Minute)
	}
	live, ok := h.driver.Buckets().Get(InProgress, "NYY202407040")
	if !ok || live != g {
		t.Fatal("game did not move to in-progress under the same id")
	}
	if h.driver.Buckets().Len(NotStarted) != 0 {
		t.Error("not-started still holds the game")
	}
	if live.Outs != 0 || live.Inning != 1 || !live.Updated.Equal(h.clock.now) {
		t.Errorf("live state not applied: %+v", live)
	}
	if len(h.sink.states) != 1 {
		t.Errorf("state dumps = %d, want 1", len(h.sink.states))
	}
	if h.notifier.count("TRANSITIONING NYY202407040") != 1 {
		t.Errorf("notifications = %q, want one transition notice", h.notifier.msgs)
	}
	if len(h.views) != 2 || len(h.views[1].InProgress) != 1 {
		t.Errorf("published views = %+v", h.views)
	}
}

func TestDriverDoubleheaderPregame(t *testing.T) {
	h := newHarness(t, cards(
		pregame("Toronto Blue Jays", "Boston Red Sox", day(2024, 7, 1, 17, 5)),
		pregame("Toronto Blue Jays", "Boston Red Sox", day(2024, 7, 1, 23, 10)),
	))
	h.clock.now = day(2024, 7, 1, 12, 0)
	h.cycle(t)

	for _, id := range []string{"BOS202407010", "BOS202407011"} {
		if _, ok := h.driver.Buckets().Get(NotStarted, id); !ok {
			t.Errorf("game %s not created", id)
		}
	}
	if h.notifier.count("CREATING NEW not-started GAME") != 2 {
		t.Errorf("notifications = %q", h.notifier.msgs)
	}
}

func TestDriverSkipsWarmupAndUnrecognized(t *testing.T) {
	h := newHarness(t, cards(
		fakeCard{stage: StageWarmup, away: "Boston Red Sox", home: "New York Yankees"},
		fakeCard{stage: StageUnrecognized, away: "Boston Red Sox", home: "Chicago Cubs"},
		liveCard("Boston Red Sox", "Nowhere Nobodies", "Top 1", 0),
	))

	for i, s := range h.source.batches[0] {
		res, err := h.driver.Route(context.Background(), h.clock.now, s, nil)
		if err != nil {
			t.Fatalf("Route card %d: %v", i, err)
		}
		if res.Action != ActionSkipped {
			t.Errorf("card %d action = %s, want skipped", i, res.Action)
		}
		want := []SkipReason{ReasonWarmup, ReasonUnrecognized, ReasonUnknownTeam}[i]
		if res.Reason != want {
			t.Errorf("card %d reason = %q, want %q", i, res.Reason, want)
		}
	}
	if h.notifier.count("could not classify") != 1 {
		t.Errorf("notifications = %q, want one unrecognized warning", h.notifier.msgs)
	}
	for _, b := range allBuckets {
		if n := h.driver.Buckets().Len(b); n != 0 {
			t.Errorf("%s holds %d games after skips", b, n)
		}
	}
}

func TestDriverRejectsSecondUpdateInCycle(t *testing.T) {
	h := newHarness(t, cards(
		liveCard("Boston Red Sox", "New York Yankees", "Top 1", 0),
		liveCard("Boston Red Sox", "New York Yankees", "Top 2", 0),
	))

	_, err := h.driver.RunCycle(context.Background())
	if !errors.Is(err, ErrAmbiguousState) {
		t.Fatalf("RunCycle error = %v, want ErrAmbiguousState", err)
	}
	if !IsFatal(err) {
		t.Error("double update must be fatal")
	}
	if len(h.sink.states) != 1 {
		t.Errorf("state dumps = %d, want only the first update", len(h.sink.states))
	}
}

func TestDriverDoubleheaderPregameBeforeLiveCard(t *testing.T) {
	h := newHarness(t, cards(
		pregame("Boston Red Sox", "New York Yankees", day(2024, 7, 4, 23, 10)),
		liveCard("Boston Red Sox", "New York Yankees", "Top 3", 1),
	))

	for i := 0; i < 2; i++ {
		h.cycle(t)

		if _, ok := h.driver.Buckets().Get(NotStarted, "NYY202407040"); !ok {
			t.Errorf("cycle %d: NYY202407040 not in not-started", i)
		}
		live, ok := h.driver.Buckets().Get(InProgress, "NYY202407041")
		if !ok {
			t.Fatalf("cycle %d: NYY202407041 not in in-progress", i)
		}
		if live.Inning != 3 {
			t.Errorf("cycle %d: live inning = %d, want 3", i, live.Inning)
		}
		if n := h.driver.Buckets().Len(NotStarted) + h.driver.Buckets().Len(InProgress); n != 2 {
			t.Errorf("cycle %d: tracked games = %d, want 2", i, n)
		}
	}
}

func TestDriverMergesLines(t *testing.T) {
	h := newHarness(t, cards(liveCard("Boston Red Sox", "New York Yankees", "Bot 3", 1)))
	h.odds.lines = map[string]models.Lines{
		"NYY20240704": {
			HomeTeam: "New York Yankees",
			AwayTeam: "Boston Red Sox",
			Books: []models.BookLines{{
				Key:       "fanduel",
				Moneyline: &models.Moneyline{HomePrice: decimal.RequireFromString("1.8"), AwayPrice: decimal.RequireFromString("2.1")},
			}},
		},
	}
	h.cycle(t)

	g, _ := h.driver.Buckets().Get(InProgress, "NYY202407040")
	if g == nil || g.Lines == nil {
		t.Fatal("lines not merged onto live game")
	}
	if !g.Lines.Stamp.Equal(h.clock.now) {
		t.Errorf("lines stamp = %v, want %v", g.Lines.Stamp, h.clock.now)
	}
	if len(h.sink.lines) != 1 {
		t.Errorf("lines dumps = %d, want 1", len(h.sink.lines))
	}
}

func TestDriverSinkFailureIsSoft(t *testing.T) {
	h := newHarness(t, cards(liveCard("Boston Red Sox", "New York Yankees", "Top 1", 0)))
	h.sink.err = errBoom
	h.notifier.err = errBoom
	if _, err := h.driver.RunCycle(context.Background()); err != nil {
		t.Errorf("RunCycle error = %v, want sink and notifier failures ignored", err)
	}
}

func TestDriverConcludesLiveGame(t *testing.T) {
	h := newHarness(t,
		cards(liveCard("Boston Red Sox", "New York Yankees", "Bot 9", 2)),
		cards(finalCard("Boston Red Sox", "New York Yankees", Score{Away: 4, Home: 6})),
		cards(finalCard("Boston Red Sox", "New York Yankees", Score{Away: 4, Home: 6})),
	)
	h.cycle(t)
	h.clock.now = h.clock.now.Add(time.Minute)
	h.cycle(t)

	g, ok := h.driver.Buckets().Get(Concluded, "NYY202407040")
	if !ok {
		t.Fatal("game not concluded")
	}
	if g.Score != (Score{Away: 4, Home: 6}) {
		t.Errorf("final score = %+v", g.Score)
	}
	if len(h.sink.states) != 2 {
		t.Errorf("state dumps = %d, want live update plus final", len(h.sink.states))
	}

	h.cycle(t)
	if len(h.sink.states) != 2 || h.driver.Buckets().Len(Concluded) != 1 {
		t.Error("repeat final card changed state")
	}
}

func TestDriverPostponedLiveGame(t *testing.T) {
	postponed := finalCard("Boston Red Sox", "New York Yankees", Score{})
	postponed.final = nil
	postponed.postponed = true
	h := newHarness(t,
		cards(liveCard("Boston Red Sox", "New York Yankees", "Top 2", 0)),
		cards(postponed),
	)
	h.cycle(t)
	h.cycle(t)

	if h.notifier.count("POSTPONED") != 1 {
		t.Errorf("notifications = %q, want a postponed warning", h.notifier.msgs)
	}
	if _, ok := h.driver.Buckets().Get(Concluded, "NYY202407040"); !ok {
		t.Error("postponed game not concluded")
	}
}

func TestDriverFinalWithoutHistory(t *testing.T) {
	h := newHarness(t, cards(finalCard("Boston Red Sox", "New York Yankees", Score{Away: 1, Home: 0})))
	h.cycle(t)
	g, ok := h.driver.Buckets().Get(Concluded, "NYY202407040")
	if !ok {
		t.Fatal("final card did not create a concluded game")
	}
	if g.Score != (Score{Away: 1, Home: 0}) {
		t.Errorf("score = %+v", g.Score)
	}
	if len(h.sink.states) != 0 {
		t.Errorf("state dumps = %d, want none for a game never seen live", len(h.sink.states))
	}
}

func TestDriverForcesStaleConclusion(t *testing.T) {
	h := newHarness(t,
		cards(liveCard("Boston Red Sox", "New York Yankees", "Top 5", 0)),
		nil,
	)
	h.cycle(t)

	h.clock.now = h.clock.now.Add(301 * time.Minute)
	h.cycle(t)
	if _, ok := h.driver.Buckets().Get(Concluded, "NYY202407040"); !ok {
		t.Fatal("stale game not concluded")
	}
	if h.notifier.count("NYY202407040 not updated") != 1 {
		t.Errorf("notifications = %q, want one stale warning naming the game", h.notifier.msgs)
	}

	h.clock.now = h.clock.now.Add(time.Minute)
	h.cycle(t)
	if h.notifier.count("NYY202407040 not updated") != 1 {
		t.Error("stale game reported again after conclusion")
	}
}

func TestDriverFallsBackToCommenceTimes(t *testing.T) {
	h := newHarness(t, nil)
	h.odds.lines = map[string]models.Lines{
		"NYY20240704": {CommenceTime: h.clock.now.Add(4 * time.Hour)},
	}
	if wait := h.cycle(t); wait != 4*time.Hour {
		t.Errorf("wait = %v, want %v", wait, 4*time.Hour)
	}
	if h.notifier.count("No live games") != 1 {
		t.Errorf("notifications = %q, want a sleep notice", h.notifier.msgs)
	}
}

func TestDriverSourceErrorPropagates(t *testing.T) {
	h := newHarness(t)
	h.source.err = errBoom
	if _, err := h.driver.RunCycle(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("RunCycle error = %v, want source error", err)
	}
	h.source.err = nil
	h.odds.err = errBoom
	if _, err := h.driver.RunCycle(context.Background()); !errors.Is(err, errBoom) {
		t.Errorf("RunCycle error = %v, want odds error", err)
	}
}

func TestDriverRunReleasesSessionBeforeLongSleep(t *testing.T) {
	src := &sessionSource{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var waits []time.Duration
	d := NewDriver(src, nil, nil, nil, Options{
		Clock: func() time.Time { return day(2024, 7, 4, 12, 0) },
		Sleep: func(ctx context.Context, dur time.Duration) error {
			waits = append(waits, dur)
			src.events = append(src.events, "sleep")
			if len(waits) == 2 {
				cancel()
				return ctx.Err()
			}
			return nil
		},
	})

	err := d.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	want := []string{"open", "close", "sleep", "open", "close", "sleep"}
	if len(src.events) != len(want) {
		t.Fatalf("events = %v, want %v", src.events, want)
	}
	for i := range want {
		if src.events[i] != want[i] {
			t.Errorf("events = %v, want %v", src.events, want)
			break
		}
	}
	if waits[0] != DefaultSchedule.IdleWait {
		t.Errorf("idle wait = %v, want %v", waits[0], DefaultSchedule.IdleWait)
	}
}

func TestDriverRunKeepsSessionWhileLive(t *testing.T) {
	src := &sessionSource{fakeSource{batches: [][]Snapshot{
		cards(liveCard("Boston Red Sox", "New York Yankees", "Top 1", 0)),
	}}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{now: day(2024, 7, 4, 23, 0)}
	sleeps := 0
	d := NewDriver(src, nil, nil, nil, Options{
		Clock: clock.Now,
		Sleep: func(ctx context.Context, dur time.Duration) error {
			sleeps++
			clock.now = clock.now.Add(dur)
			if sleeps == 3 {
				cancel()
				return ctx.Err()
			}
			return nil
		},
	})
	_ = d.Run(ctx)

	if src.opened != 1 {
		t.Errorf("session opened %d times, want 1", src.opened)
	}
	if src.closed != 1 {
		t.Errorf("session closed %d times, want 1 (on exit)", src.closed)
	}
}
