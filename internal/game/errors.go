package game

import (
	"errors"
	"fmt"
)

var (
	ErrGameNotFound           = errors.New("game not found")
	ErrGameAlreadyEnded       = errors.New("game already ended")
	ErrUnsupportedPlayerCount = errors.New("unsupported player count")
	ErrPlayerMismatch         = errors.New("player ids and nicknames differ in length")
	ErrInvalidPhaseTransition = errors.New("invalid phase transition")
	ErrWrongPhase             = errors.New("wrong phase for action")
	ErrInvalidActor           = errors.New("invalid actor")
	ErrInvalidTarget          = errors.New("invalid target")
	ErrAlreadyVoted           = errors.New("already voted")
	ErrSelfVote               = errors.New("cannot vote for yourself")
)

// PhaseError reports an illegal transition or action, naming the phase the
// room is in and the phase the operation requires.
type PhaseError struct {
	Op       string
	Current  Phase
	Required Phase
	wrapped  error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %s (current phase %q, requires %q)", e.Op, e.wrapped, e.Current, e.Required)
}

func (e *PhaseError) Unwrap() error {
	return e.wrapped
}

func transitionError(op string, current, required Phase) error {
	return &PhaseError{Op: op, Current: current, Required: required, wrapped: ErrInvalidPhaseTransition}
}

func wrongPhaseError(op string, current, required Phase) error {
	return &PhaseError{Op: op, Current: current, Required: required, wrapped: ErrWrongPhase}
}

// VoteConflictError is returned when a player votes twice in one day; it
// carries the target of their original vote.
type VoteConflictError struct {
	VoterID        string
	PreviousTarget string
}

func (e *VoteConflictError) Error() string {
	return fmt.Sprintf("already voted: %s previously voted for %s", e.VoterID, e.PreviousTarget)
}

func (e *VoteConflictError) Unwrap() error {
	return ErrAlreadyVoted
}
