package tracker

import (
	"fmt"
	"time"
)

// StalenessPolicy bounds how long a live game may go without an update.
type StalenessPolicy struct {
	WarnAfter     time.Duration
	ConcludeAfter time.Duration
}

// DefaultStalenessPolicy warns after an hour and gives up after five.
var DefaultStalenessPolicy = StalenessPolicy{
	WarnAfter:     time.Hour,
	ConcludeAfter: 5 * time.Hour,
}

// StaleNotice is one finding of CheckStaleness.
type StaleNotice struct {
	ID        string
	Age       time.Duration
	Concluded bool // forced into Concluded by this check
}

func (n StaleNotice) String() string {
	if n.Concluded {
		return fmt.Sprintf("WARNING: %s not updated in %s, assuming it ended and moving it to concluded.", n.ID, n.Age.Round(time.Minute))
	}
	return fmt.Sprintf("WARNING: %s not updated in %s.", n.ID, n.Age.Round(time.Minute))
}

// CheckStaleness inspects every live game at now. Games idle past
// ConcludeAfter are moved to Concluded; games idle past WarnAfter only
// produce a notice. Games never updated are ignored.
func (b *Buckets) CheckStaleness(now time.Time, p StalenessPolicy) ([]StaleNotice, error) {
	var notices []StaleNotice
	for _, g := range b.All(InProgress) {
		if g.Updated.IsZero() {
			continue
		}
		age := now.Sub(g.Updated)
		switch {
		case age > p.ConcludeAfter:
			if err := b.Transition(g.ID, InProgress, Concluded); err != nil {
				return notices, err
			}
			notices = append(notices, StaleNotice{ID: g.ID, Age: age, Concluded: true})
		case age > p.WarnAfter:
			notices = append(notices, StaleNotice{ID: g.ID, Age: age})
		}
	}
	return notices, nil
}
