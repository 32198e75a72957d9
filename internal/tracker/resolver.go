package tracker

import (
	"time"
)

// Resolver attributes snapshots to games. It owns the per-cycle touched set.
type Resolver struct {
	buckets *Buckets
	ids     *IDGenerator
	touched map[string]struct{}
	seq     uint64
}

func NewResolver(buckets *Buckets, ids *IDGenerator) *Resolver {
	return &Resolver{
		buckets: buckets,
		ids:     ids,
		touched: make(map[string]struct{}),
	}
}

// BeginCycle forgets which games were updated in the previous cycle.
func (r *Resolver) BeginCycle() {
	clear(r.touched)
}

// Touch marks id as updated in the current cycle.
func (r *Resolver) Touch(id string) { r.touched[id] = struct{}{} }

// Touched reports whether id was updated in the current cycle.
func (r *Resolver) Touched(id string) bool {
	_, ok := r.touched[id]
	return ok
}

// ResolveInProgress finds the game a live snapshot belongs to: the live game
// for prefix, else the earliest not-started one not yet seen this cycle, else
// a new live game. A pregame card seen this cycle belongs to another game of
// a doubleheader. The returned game may still sit in NotStarted; moving it is
// up to the caller.
func (r *Resolver) ResolveInProgress(prefix string) (*Game, bool, error) {
	live := r.buckets.Match(InProgress, prefix)
	switch {
	case len(live) > 1:
		return nil, false, &AmbiguousStateError{Prefix: prefix, Bucket: InProgress, Reason: "more than one live game"}
	case len(live) == 1:
		if r.Touched(live[0].ID) {
			return nil, false, &AmbiguousStateError{Prefix: prefix, Bucket: InProgress, Reason: "live game " + live[0].ID + " already updated this cycle"}
		}
		return live[0], false, nil
	}
	if g := earliestStart(r.untouched(r.buckets.Match(NotStarted, prefix))); g != nil {
		return g, false, nil
	}
	g, err := r.create(prefix, InProgress, time.Time{})
	return g, err == nil, err
}

// ResolveNotStarted finds the pregame game with exactly this start time. If
// that game was already seen this cycle, the card is another game and a new
// one is created. A delayed card whose posted time moved is matched to the
// untouched pregame game with the closest start time, which takes the new
// time. Otherwise a new game is created.
//
// A second game of a doubleheader created this cycle can still steal the
// delayed slot of the first; that gap is kept as is.
func (r *Resolver) ResolveNotStarted(prefix string, start time.Time, delayed bool) (*Game, bool, error) {
	var untouched []*Game
	exactSeen := false
	for _, g := range r.buckets.Match(NotStarted, prefix) {
		touched := r.Touched(g.ID)
		if g.StartTime.Equal(start) {
			if !touched {
				return g, false, nil
			}
			exactSeen = true
			continue
		}
		if !touched {
			untouched = append(untouched, g)
		}
	}
	if delayed && !exactSeen {
		if g := closestStart(untouched, start); g != nil {
			g.StartTime = start
			return g, false, nil
		}
	}
	g, err := r.create(prefix, NotStarted, start)
	return g, err == nil, err
}

// ResolveConcluded finds the game a final card belongs to, looking through
// the buckets from concluded back to not-started, else creates it concluded.
// The returned game may sit in any bucket.
func (r *Resolver) ResolveConcluded(prefix string) (*Game, bool, error) {
	if done := r.buckets.Match(Concluded, prefix); len(done) > 0 {
		for _, g := range done {
			if !r.Touched(g.ID) {
				return g, false, nil
			}
		}
		return done[0], false, nil
	}
	live := r.buckets.Match(InProgress, prefix)
	switch {
	case len(live) > 1:
		return nil, false, &AmbiguousStateError{Prefix: prefix, Bucket: InProgress, Reason: "more than one live game"}
	case len(live) == 1:
		return live[0], false, nil
	}
	if g := earliestStart(r.buckets.Match(NotStarted, prefix)); g != nil {
		return g, false, nil
	}
	g, err := r.create(prefix, Concluded, time.Time{})
	return g, err == nil, err
}

func (r *Resolver) untouched(games []*Game) []*Game {
	var out []*Game
	for _, g := range games {
		if !r.Touched(g.ID) {
			out = append(out, g)
		}
	}
	return out
}

func (r *Resolver) create(prefix string, bucket Bucket, start time.Time) (*Game, error) {
	r.seq++
	g := &Game{
		ID:        r.ids.NewID(prefix),
		Prefix:    prefix,
		Seq:       r.seq,
		StartTime: start,
		Bucket:    bucket,
	}
	if err := r.buckets.insert(g); err != nil {
		return nil, err
	}
	return g, nil
}

func closestStart(games []*Game, start time.Time) *Game {
	var best *Game
	var bestDiff time.Duration
	for _, g := range games {
		if !g.HasStartTime() {
			continue
		}
		diff := g.StartTime.Sub(start).Abs()
		if best == nil || diff < bestDiff {
			best, bestDiff = g, diff
		}
	}
	return best
}
