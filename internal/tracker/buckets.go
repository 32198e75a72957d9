package tracker

import (
	"sort"
)

var allBuckets = [...]Bucket{NotStarted, InProgress, Concluded}

// Buckets partitions every known game by life stage. An id lives in exactly
// one bucket. Not safe for concurrent use; the driver owns it.
type Buckets struct {
	games [len(allBuckets)]map[string]*Game
}

func NewBuckets() *Buckets {
	b := &Buckets{}
	for i := range b.games {
		b.games[i] = make(map[string]*Game)
	}
	return b
}

// Get returns the game with id from bucket.
func (b *Buckets) Get(bucket Bucket, id string) (*Game, bool) {
	g, ok := b.games[bucket][id]
	return g, ok
}

// Locate returns the bucket currently holding id.
func (b *Buckets) Locate(id string) (Bucket, bool) {
	for _, bucket := range allBuckets {
		if _, ok := b.games[bucket][id]; ok {
			return bucket, true
		}
	}
	return 0, false
}

// Match returns the games in bucket sharing prefix, in creation order.
func (b *Buckets) Match(bucket Bucket, prefix string) []*Game {
	var out []*Game
	for _, g := range b.games[bucket] {
		if g.Prefix == prefix {
			out = append(out, g)
		}
	}
	sortBySeq(out)
	return out
}

// All returns every game in bucket, in creation order.
func (b *Buckets) All(bucket Bucket) []*Game {
	out := make([]*Game, 0, len(b.games[bucket]))
	for _, g := range b.games[bucket] {
		out = append(out, g)
	}
	sortBySeq(out)
	return out
}

// Len returns the number of games in bucket.
func (b *Buckets) Len(bucket Bucket) int { return len(b.games[bucket]) }

func (b *Buckets) insert(g *Game) error {
	if where, ok := b.Locate(g.ID); ok {
		return &DuplicateIdentityError{ID: g.ID, Bucket: where}
	}
	b.games[g.Bucket][g.ID] = g
	return nil
}

func sortBySeq(games []*Game) {
	sort.Slice(games, func(i, j int) bool { return games[i].Seq < games[j].Seq })
}

// earliestStart orders games by posted start time. Unknown start times sort
// last and ties fall back to creation order.
func earliestStart(games []*Game) *Game {
	if len(games) == 0 {
		return nil
	}
	sorted := append([]*Game(nil), games...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, c := sorted[i], sorted[j]
		if a.HasStartTime() != c.HasStartTime() {
			return a.HasStartTime()
		}
		if !a.StartTime.Equal(c.StartTime) {
			return a.StartTime.Before(c.StartTime)
		}
		return a.Seq < c.Seq
	})
	return sorted[0]
}
