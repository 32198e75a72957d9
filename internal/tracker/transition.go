package tracker

type edge struct{ from, to Bucket }

// allowedTransitions is the whole lifecycle graph. Nothing moves backward.
var allowedTransitions = map[edge]bool{
	{NotStarted, InProgress}: true,
	{InProgress, Concluded}:  true,
	{NotStarted, Concluded}:  true,
}

// CanTransition reports whether from -> to is part of the lifecycle.
func CanTransition(from, to Bucket) bool {
	return allowedTransitions[edge{from, to}]
}

// Transition moves the game id from one bucket to another, keeping its contents.
// Either the whole move happens or the buckets are left as they were.
func (b *Buckets) Transition(id string, from, to Bucket) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{ID: id, From: from, To: to}
	}
	if _, ok := b.games[to][id]; ok {
		return &DuplicateIdentityError{ID: id, Bucket: to}
	}
	g, ok := b.games[from][id]
	if !ok {
		return &InvalidTransitionError{ID: id, From: from, To: to, Reason: "game not in source bucket"}
	}
	delete(b.games[from], id)
	g.Bucket = to
	b.games[to][id] = g
	return nil
}
