package tracker

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrUnknownTeam             = errors.New("unknown team")
	ErrAmbiguousState          = errors.New("ambiguous state")
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrDuplicateIdentity       = errors.New("duplicate identity")
	ErrUnrecognizedPeriodLabel = errors.New("unrecognized period label")
)

// UnknownTeamError reports a team name that matches no entry of the team table.
type UnknownTeamError struct {
	Name string
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("unknown team %q", e.Name)
}

func (e *UnknownTeamError) Is(target error) bool { return target == ErrUnknownTeam }

// AmbiguousStateError means the buckets hold more candidates for a prefix
// than the lifecycle allows, or a candidate was already updated this cycle.
type AmbiguousStateError struct {
	Prefix string
	Bucket Bucket
	Reason string
}

func (e *AmbiguousStateError) Error() string {
	return fmt.Sprintf("ambiguous state for prefix %s in %s: %s", e.Prefix, e.Bucket, e.Reason)
}

func (e *AmbiguousStateError) Is(target error) bool { return target == ErrAmbiguousState }

// InvalidTransitionError is returned for a bucket move outside the allowed graph,
// or when the game is not where the caller says it is.
type InvalidTransitionError struct {
	ID     string
	From   Bucket
	To     Bucket
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition %s -> %s for %s", e.From, e.To, e.ID)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// DuplicateIdentityError is returned when an id would end up in two places.
type DuplicateIdentityError struct {
	ID     string
	Bucket Bucket
}

func (e *DuplicateIdentityError) Error() string {
	return fmt.Sprintf("game %s already present in %s", e.ID, e.Bucket)
}

func (e *DuplicateIdentityError) Is(target error) bool { return target == ErrDuplicateIdentity }

// UnrecognizedPeriodLabelError is soft: the inning fields are left untouched
// and the rest of the snapshot is still applied.
type UnrecognizedPeriodLabelError struct {
	Label string
}

func (e *UnrecognizedPeriodLabelError) Error() string {
	return fmt.Sprintf("unrecognized inning label %q", e.Label)
}

func (e *UnrecognizedPeriodLabelError) Is(target error) bool {
	return target == ErrUnrecognizedPeriodLabel
}

// IsFatal reports whether err belongs to the fatal channel: corrupted bucket
// state or a broken lifecycle. Such errors abort the cycle and go to the supervisor.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAmbiguousState) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateIdentity)
}
