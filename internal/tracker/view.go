package tracker

import "time"

// View is a read-only copy of the buckets taken at the end of a cycle.
// It is safe to hand to other goroutines.
type View struct {
	At         time.Time `json:"at"`
	NextWake   time.Time `json:"next_wake"`
	NotStarted []Game    `json:"not_started"`
	InProgress []Game    `json:"in_progress"`
	Concluded  []Game    `json:"concluded"`
}

// View copies the current bucket contents.
func (b *Buckets) View(at, nextWake time.Time) View {
	return View{
		At:         at,
		NextWake:   nextWake,
		NotStarted: copyGames(b.All(NotStarted)),
		InProgress: copyGames(b.All(InProgress)),
		Concluded:  copyGames(b.All(Concluded)),
	}
}

func copyGames(games []*Game) []Game {
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = *g
	}
	return out
}
