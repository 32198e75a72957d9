package tracker

import (
	"context"
	"time"

	"github.com/sbconlon/mlb-scraper/internal/pkg/models"
)

// Snapshot is one scoreboard card as sampled at poll time. Extractors fail
// soft: a field that cannot be read comes back empty or with ok == false.
type Snapshot interface {
	IsWarmup() bool
	IsNotStarted() bool
	IsInProgress() bool
	IsConcluded() bool
	IsDelayed() bool
	IsPostponed() bool
	IsSuspended() bool

	Teams() (away, home string)
	StartTime() (time.Time, bool)
	Live() LiveFields
	FinalScore() (Score, bool)
}

// SnapshotSource yields the cards currently on the scoreboard.
type SnapshotSource interface {
	Snapshots(ctx context.Context) ([]Snapshot, error)
}

// Session is implemented by sources holding a long-lived resource, such as a
// browser, that should be released across long sleeps.
type Session interface {
	Open(ctx context.Context) error
	Close() error
}

// OddsSource yields the current lines keyed by prefix.
type OddsSource interface {
	Get(ctx context.Context) (map[string]models.Lines, error)
	Usage() (remaining, used int)
}

// Sink persists game state. Implementations fail soft; a returned error is
// only logged by the driver.
type Sink interface {
	DumpState(ctx context.Context, g *Game) error
	DumpLines(ctx context.Context, g *Game) error
}

// Notifier delivers operator alerts on a best-effort basis.
type Notifier interface {
	Notify(ctx context.Context, msg string) error
}

// Stage is the life-stage classification of a snapshot.
type Stage int

const (
	StageUnrecognized Stage = iota
	StageWarmup
	StageNotStarted
	StageInProgress
	StageConcluded
)

func (s Stage) String() string {
	switch s {
	case StageWarmup:
		return "warmup"
	case StageNotStarted:
		return "not-started"
	case StageInProgress:
		return "in-progress"
	case StageConcluded:
		return "concluded"
	default:
		return "unrecognized"
	}
}

// Classify applies the predicates in a fixed order. Postponed and suspended
// cards count as concluded.
func Classify(s Snapshot) Stage {
	switch {
	case s.IsWarmup():
		return StageWarmup
	case s.IsInProgress():
		return StageInProgress
	case s.IsNotStarted():
		return StageNotStarted
	case s.IsConcluded(), s.IsPostponed(), s.IsSuspended():
		return StageConcluded
	default:
		return StageUnrecognized
	}
}
