package tracker

import (
	"testing"
	"time"
)

func TestNextWake(t *testing.T) {
	now := day(2024, 7, 4, 18, 0)
	tests := []struct {
		name   string
		live   bool
		starts []time.Time
		want   time.Duration
	}{
		{"live game polls", true, []time.Time{now.Add(3 * time.Hour)}, time.Minute},
		{"until next start", false, []time.Time{now.Add(3 * time.Hour), now.Add(90 * time.Minute)}, 90 * time.Minute},
		{"start just passed", false, []time.Time{now.Add(-10 * time.Minute)}, 30 * time.Second},
		{"start imminent", false, []time.Time{now.Add(5 * time.Second)}, 30 * time.Second},
		{"start long past ignored", false, []time.Time{now.Add(-2 * time.Hour), now.Add(time.Hour)}, time.Hour},
		{"nothing scheduled", false, nil, 2 * time.Hour},
		{"only stale starts", false, []time.Time{now.Add(-31 * time.Minute)}, 2 * time.Hour},
		{"unknown starts ignored", false, []time.Time{{}, now.Add(time.Hour)}, time.Hour},
	}

	for _, tt := range tests {
		if got := NextWake(now, tt.live, tt.starts, DefaultSchedule); got != tt.want {
			t.Errorf("NextWake(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
