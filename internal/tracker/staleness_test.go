package tracker

import (
	"strings"
	"testing"
	"time"
)

func liveGameUpdatedAt(b *Buckets, id string, updated time.Time) *Game {
	g := &Game{ID: id, Prefix: id[:len(id)-1], Bucket: InProgress, Updated: updated}
	_ = b.insert(g)
	return g
}

func TestCheckStalenessWarnsOnce(t *testing.T) {
	now := day(2024, 7, 4, 23, 0)
	b := NewBuckets()
	liveGameUpdatedAt(b, "NYY202407040", now.Add(-61*time.Minute))

	notices, err := b.CheckStaleness(now, DefaultStalenessPolicy)
	if err != nil {
		t.Fatalf("CheckStaleness: %v", err)
	}
	if len(notices) != 1 {
		t.Fatalf("got %d notices, want 1", len(notices))
	}
	if notices[0].Concluded {
		t.Error("61 minutes must not conclude the game")
	}
	if !strings.Contains(notices[0].String(), "NYY202407040") {
		t.Errorf("notice %q does not name the game", notices[0])
	}
	if b.Len(InProgress) != 1 {
		t.Error("warned game left in-progress")
	}
}

func TestCheckStalenessConcludesOnce(t *testing.T) {
	now := day(2024, 7, 4, 23, 0)
	b := NewBuckets()
	liveGameUpdatedAt(b, "NYY202407040", now.Add(-301*time.Minute))

	notices, err := b.CheckStaleness(now, DefaultStalenessPolicy)
	if err != nil {
		t.Fatalf("CheckStaleness: %v", err)
	}
	if len(notices) != 1 || !notices[0].Concluded {
		t.Fatalf("notices = %+v, want one concluding notice", notices)
	}
	if !strings.Contains(notices[0].String(), "NYY202407040") {
		t.Errorf("notice %q does not name the game", notices[0])
	}
	if _, ok := b.Get(Concluded, "NYY202407040"); !ok {
		t.Error("game not moved to concluded")
	}

	again, err := b.CheckStaleness(now.Add(time.Minute), DefaultStalenessPolicy)
	if err != nil || len(again) != 0 {
		t.Errorf("second check = %+v, %v, want nothing", again, err)
	}
}

func TestCheckStalenessQuiet(t *testing.T) {
	now := day(2024, 7, 4, 23, 0)
	b := NewBuckets()
	liveGameUpdatedAt(b, "NYY202407040", now.Add(-30*time.Minute))
	liveGameUpdatedAt(b, "BOS202407040", time.Time{})
	_ = b.insert(&Game{ID: "SEA202407040", Bucket: NotStarted, Updated: now.Add(-10 * time.Hour)})

	notices, err := b.CheckStaleness(now, DefaultStalenessPolicy)
	if err != nil || len(notices) != 0 {
		t.Errorf("CheckStaleness = %+v, %v, want nothing", notices, err)
	}
}
