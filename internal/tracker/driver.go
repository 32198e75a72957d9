package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sbconlon/mlb-scraper/internal/pkg/metrics"
	"github.com/sbconlon/mlb-scraper/internal/pkg/models"
)

// Action is what routing did with a snapshot.
type Action int

const (
	ActionSkipped Action = iota
	ActionUpdated        // live game updated and dumped
	ActionScheduled      // pregame game found or created
	ActionConcluded      // game found or moved into concluded
)

func (a Action) String() string {
	switch a {
	case ActionUpdated:
		return "updated"
	case ActionScheduled:
		return "scheduled"
	case ActionConcluded:
		return "concluded"
	default:
		return "skipped"
	}
}

// SkipReason says why a snapshot was not applied. Skips are never errors.
type SkipReason string

const (
	ReasonWarmup       SkipReason = "warmup"
	ReasonUnrecognized SkipReason = "unrecognized"
	ReasonUnknownTeam  SkipReason = "unknown-team"
	ReasonNoStartTime  SkipReason = "no-start-time"
)

// RouteResult is the outcome of routing one snapshot.
type RouteResult struct {
	Stage   Stage
	Action  Action
	Reason  SkipReason
	Prefix  string
	GameID  string
	Created bool
}

func skipped(stage Stage, reason SkipReason) RouteResult {
	return RouteResult{Stage: stage, Action: ActionSkipped, Reason: reason}
}

// Options configures a Driver. Zero values fall back to defaults.
type Options struct {
	Teams     *TeamTable
	IDs       *IDGenerator   // share one across restarts
	Location  *time.Location // calendar day used for prefixes
	Schedule  Schedule
	Staleness StalenessPolicy
	Metrics   *metrics.Metrics
	Clock     func() time.Time
	Sleep     func(ctx context.Context, d time.Duration) error
	Publish   func(View) // called after every successful cycle
}

// Driver runs poll cycles: read odds and cards, route every card, check
// staleness and decide how long to sleep. It is single threaded; all bucket
// state is owned by the goroutine calling Run or RunCycle.
type Driver struct {
	source   SnapshotSource
	odds     OddsSource
	sink     Sink
	notifier Notifier

	teams     *TeamTable
	loc       *time.Location
	schedule  Schedule
	staleness StalenessPolicy
	metrics   *metrics.Metrics
	clock     func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	publish   func(View)

	buckets  *Buckets
	resolver *Resolver
	open     bool
}

// NewDriver builds a driver with empty buckets. odds, sink and notifier may be nil.
func NewDriver(source SnapshotSource, odds OddsSource, sink Sink, notifier Notifier, opts Options) *Driver {
	if opts.Teams == nil {
		opts.Teams = DefaultTeamTable()
	}
	if opts.IDs == nil {
		opts.IDs = NewIDGenerator()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Schedule == (Schedule{}) {
		opts.Schedule = DefaultSchedule
	}
	if opts.Staleness == (StalenessPolicy{}) {
		opts.Staleness = DefaultStalenessPolicy
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = SleepContext
	}
	buckets := NewBuckets()
	return &Driver{
		source:    source,
		odds:      odds,
		sink:      sink,
		notifier:  notifier,
		teams:     opts.Teams,
		loc:       opts.Location,
		schedule:  opts.Schedule,
		staleness: opts.Staleness,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		sleep:     opts.Sleep,
		publish:   opts.Publish,
		buckets:   buckets,
		resolver:  NewResolver(buckets, opts.IDs),
	}
}

// Buckets exposes the driver's bucket store.
func (d *Driver) Buckets() *Buckets { return d.buckets }

// Run loops over cycles until ctx is done or a cycle fails. A source that
// is a Session is opened before a cycle and closed before any sleep longer
// than the poll interval.
func (d *Driver) Run(ctx context.Context) error {
	defer d.release()
	for {
		if err := d.acquire(ctx); err != nil {
			return err
		}
		wait, err := d.RunCycle(ctx)
		if err != nil {
			return err
		}
		if wait > d.schedule.PollInterval {
			d.release()
		}
		if err := d.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// RunCycle runs one pass and returns how long to wait before the next.
func (d *Driver) RunCycle(ctx context.Context) (time.Duration, error) {
	started := d.clock()
	wait, err := d.runCycle(ctx, started.In(d.loc))
	d.metrics.RecordCycle(d.clock().Sub(started), err)
	return wait, err
}

func (d *Driver) runCycle(ctx context.Context, now time.Time) (time.Duration, error) {
	d.resolver.BeginCycle()

	var lines map[string]models.Lines
	if d.odds != nil {
		var err error
		if lines, err = d.odds.Get(ctx); err != nil {
			return 0, fmt.Errorf("failed to fetch odds: %w", err)
		}
	}
	snapshots, err := d.source.Snapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read scoreboard: %w", err)
	}
	slog.Info("Cycle started", "time", now.Format(time.DateTime), "cards", len(snapshots), "odds_games", len(lines))

	for _, s := range snapshots {
		res, err := d.Route(ctx, now, s, lines)
		if err != nil {
			return 0, err
		}
		d.metrics.RecordSnapshot(res.Stage.String(), res.Action.String())
	}

	if d.odds != nil {
		remaining, used := d.odds.Usage()
		slog.Info("Odds API usage", "remaining", remaining, "used", used)
		d.metrics.SetOddsQuota(remaining, used)
	}

	notices, err := d.buckets.CheckStaleness(now, d.staleness)
	for _, n := range notices {
		d.metrics.RecordStale(n.Concluded)
		if n.Concluded {
			d.metrics.RecordTransition(InProgress.String(), Concluded.String())
		}
		d.notify(ctx, slog.LevelWarn, n.String())
	}
	if err != nil {
		return 0, err
	}

	live := d.buckets.Len(InProgress) > 0
	wait := NextWake(now, live, d.upcomingStarts(lines), d.schedule)
	if wait > d.schedule.PollInterval {
		d.notify(ctx, slog.LevelInfo, fmt.Sprintf("No live games, sleeping %s. Wakeup at %s",
			wait.Round(time.Second), now.Add(wait).Format("2006-01-02 15:04:05 MST")))
	}
	for _, b := range allBuckets {
		d.metrics.SetBucketSize(b.String(), d.buckets.Len(b))
	}
	if d.publish != nil {
		d.publish(d.buckets.View(now, now.Add(wait)))
	}
	return wait, nil
}

// Route classifies one snapshot and applies it. Soft conditions come back
// as skipped results; a non-nil error is fatal to the cycle.
func (d *Driver) Route(ctx context.Context, ts time.Time, s Snapshot, lines map[string]models.Lines) (RouteResult, error) {
	stage := Classify(s)
	away, home := s.Teams()
	switch stage {
	case StageWarmup:
		return skipped(stage, ReasonWarmup), nil
	case StageUnrecognized:
		d.notify(ctx, slog.LevelWarn, fmt.Sprintf("WARNING: could not classify the %s at %s card, skipping it.", away, home))
		return skipped(stage, ReasonUnrecognized), nil
	}

	prefix, err := d.teams.Prefix(home, ts)
	if err != nil {
		slog.Warn("Skipping card", "away", away, "home", home, "error", err)
		return skipped(stage, ReasonUnknownTeam), nil
	}

	res := RouteResult{Stage: stage, Prefix: prefix}
	switch stage {
	case StageInProgress:
		err = d.routeInProgress(ctx, ts, s, lines, &res)
	case StageNotStarted:
		err = d.routeNotStarted(ctx, s, &res)
	default:
		err = d.routeConcluded(ctx, ts, s, &res)
	}
	return res, err
}

func (d *Driver) routeInProgress(ctx context.Context, ts time.Time, s Snapshot, lines map[string]models.Lines, res *RouteResult) error {
	g, created, err := d.resolver.ResolveInProgress(res.Prefix)
	if err != nil {
		return err
	}
	res.GameID, res.Created = g.ID, created
	if created {
		d.created(ctx, g)
	}
	if d.resolver.Touched(g.ID) {
		return &AmbiguousStateError{Prefix: res.Prefix, Bucket: g.Bucket, Reason: "game " + g.ID + " already updated this cycle"}
	}
	if g.Bucket == NotStarted {
		if err := d.move(ctx, g, InProgress); err != nil {
			return err
		}
	}

	var gameLines *models.Lines
	if l, ok := lines[res.Prefix]; ok {
		gameLines = &l
	}
	if err := g.Apply(ts, s.Live(), gameLines); err != nil {
		if !errors.Is(err, ErrUnrecognizedPeriodLabel) {
			return err
		}
		slog.Warn("Keeping previous inning", "game_id", g.ID, "error", err)
	}
	d.resolver.Touch(g.ID)
	d.dump(ctx, g)
	slog.Debug("Live game updated\n"+g.String(), "game_id", g.ID)
	res.Action = ActionUpdated
	return nil
}

func (d *Driver) routeNotStarted(ctx context.Context, s Snapshot, res *RouteResult) error {
	start, ok := s.StartTime()
	if !ok {
		away, home := s.Teams()
		slog.Warn("Pregame card without a start time", "away", away, "home", home)
		res.Action, res.Reason = ActionSkipped, ReasonNoStartTime
		return nil
	}
	g, created, err := d.resolver.ResolveNotStarted(res.Prefix, start, s.IsDelayed())
	if err != nil {
		return err
	}
	res.GameID, res.Created = g.ID, created
	if created {
		d.created(ctx, g)
	}
	d.resolver.Touch(g.ID)
	res.Action = ActionScheduled
	return nil
}

func (d *Driver) routeConcluded(ctx context.Context, ts time.Time, s Snapshot, res *RouteResult) error {
	g, created, err := d.resolver.ResolveConcluded(res.Prefix)
	if err != nil {
		return err
	}
	res.GameID, res.Created = g.ID, created
	if created {
		d.created(ctx, g)
	}
	if g.Bucket == InProgress {
		switch {
		case s.IsPostponed():
			d.notify(ctx, slog.LevelWarn, fmt.Sprintf("WARNING: live game %s was POSTPONED.", g.ID))
		case s.IsSuspended():
			d.notify(ctx, slog.LevelWarn, fmt.Sprintf("WARNING: live game %s was SUSPENDED.", g.ID))
		}
	}
	if created || g.Bucket != Concluded {
		if score, ok := s.FinalScore(); ok {
			g.Score = score
		}
	}
	if g.Bucket != Concluded {
		if err := d.move(ctx, g, Concluded); err != nil {
			return err
		}
		g.Updated = ts
		d.dumpState(ctx, g)
	}
	d.resolver.Touch(g.ID)
	res.Action = ActionConcluded
	return nil
}

func (d *Driver) move(ctx context.Context, g *Game, to Bucket) error {
	from := g.Bucket
	if err := d.buckets.Transition(g.ID, from, to); err != nil {
		return err
	}
	d.metrics.RecordTransition(from.String(), to.String())
	d.notify(ctx, slog.LevelInfo, fmt.Sprintf("TRANSITIONING %s from %s to %s", g.ID, from, to))
	return nil
}

func (d *Driver) created(ctx context.Context, g *Game) {
	d.metrics.RecordCreated(g.Bucket.String())
	d.notify(ctx, slog.LevelInfo, fmt.Sprintf("CREATING NEW %s GAME %s", g.Bucket, g.ID))
}

func (d *Driver) dump(ctx context.Context, g *Game) {
	d.dumpState(ctx, g)
	if d.sink == nil || g.Lines == nil {
		return
	}
	if err := d.sink.DumpLines(ctx, g); err != nil {
		slog.Warn("Failed to dump lines", "game_id", g.ID, "error", err)
	}
}

func (d *Driver) dumpState(ctx context.Context, g *Game) {
	if d.sink == nil {
		return
	}
	if err := d.sink.DumpState(ctx, g); err != nil {
		slog.Warn("Failed to dump state", "game_id", g.ID, "error", err)
	}
}

func (d *Driver) notify(ctx context.Context, level slog.Level, msg string) {
	slog.Log(ctx, level, msg)
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(ctx, msg); err != nil {
		slog.Warn("Failed to send notification", "error", err)
	}
}

// upcomingStarts lists known pregame start times, or the odds commence
// times when no pregame game is known yet.
func (d *Driver) upcomingStarts(lines map[string]models.Lines) []time.Time {
	var starts []time.Time
	for _, g := range d.buckets.All(NotStarted) {
		if g.HasStartTime() {
			starts = append(starts, g.StartTime)
		}
	}
	if len(starts) > 0 {
		return starts
	}
	for _, l := range lines {
		starts = append(starts, l.CommenceTime)
	}
	return starts
}

func (d *Driver) acquire(ctx context.Context) error {
	s, ok := d.source.(Session)
	if !ok || d.open {
		return nil
	}
	if err := s.Open(ctx); err != nil {
		return fmt.Errorf("failed to open scoreboard session: %w", err)
	}
	d.open = true
	return nil
}

func (d *Driver) release() {
	s, ok := d.source.(Session)
	if !ok || !d.open {
		return
	}
	d.open = false
	if err := s.Close(); err != nil {
		slog.Warn("Failed to close scoreboard session", "error", err)
	}
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
