package tracker

import (
	"context"
	"testing"
	"time"
)

func TestSuperviseRestartsWithFreshBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ids := NewIDGenerator()
	notifier := &recordingNotifier{}
	clock := &fakeClock{now: day(2024, 7, 4, 23, 0)}
	var drivers []*Driver

	newDriver := func() *Driver {
		src := &fakeSource{batches: [][]Snapshot{cards(
			liveCard("Boston Red Sox", "New York Yankees", "Top 1", 0),
			liveCard("Boston Red Sox", "New York Yankees", "Top 1", 0),
		)}}
		if len(drivers) == 1 {
			src.batches = [][]Snapshot{cards(liveCard("Boston Red Sox", "New York Yankees", "Top 1", 0))}
		}
		d := NewDriver(src, nil, nil, notifier, Options{
			IDs:   ids,
			Clock: clock.Now,
			Sleep: func(ctx context.Context, dur time.Duration) error {
				cancel()
				return ctx.Err()
			},
		})
		drivers = append(drivers, d)
		return d
	}

	if err := Supervise(ctx, newDriver, notifier, 0, nil); err != nil {
		t.Fatalf("Supervise: %v", err)
	}
	if len(drivers) != 2 {
		t.Fatalf("drivers built = %d, want 2", len(drivers))
	}
	if notifier.count("restarting scrape process") != 1 {
		t.Errorf("notifications = %q, want one restart notice", notifier.msgs)
	}
	// The first driver allocated NYY202407040 before failing; ids carry over.
	if _, ok := drivers[1].Buckets().Get(InProgress, "NYY202407041"); !ok {
		t.Error("restarted driver did not continue the id sequence")
	}
	if drivers[1].Buckets().Len(InProgress) != 1 {
		t.Errorf("restarted driver holds %d live games, want 1", drivers[1].Buckets().Len(InProgress))
	}
}
