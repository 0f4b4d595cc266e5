package game

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Votes collects the per-player day votes for the current day. One vote per
// voter; a recorded vote is immutable until the day result consumes it.
type Votes struct {
	store *StateStore
	log   zerolog.Logger
}

func NewVotes(store *StateStore, log zerolog.Logger) *Votes {
	return &Votes{store: store, log: log}
}

// VoteStatus is the tally projection: counts per target and the leaders.
type VoteStatus struct {
	Counts     map[string]int `json:"counts"`
	MaxTargets []string       `json:"maxTargets"`
	Tied       bool           `json:"tied"`
}

// VoteCompletion compares who has voted against who is still alive.
type VoteCompletion struct {
	AliveCount int      `json:"aliveCount"`
	VotedCount int      `json:"votedCount"`
	NotVoted   []string `json:"notVoted"`
	Complete   bool     `json:"complete"`
}

// Submit records one player's vote and returns whether every living player
// has now voted.
func (v *Votes) Submit(ctx context.Context, roomID, voterID, targetID string) (bool, error) {
	state, err := v.store.Load(ctx, roomID)
	if err != nil {
		return false, err
	}
	if state.Phase.Terminal() {
		return false, fmt.Errorf("submit vote: %w (room %s)", ErrGameAlreadyEnded, roomID)
	}
	if state.Phase != PhaseVote {
		return false, wrongPhaseError("submit vote", state.Phase, PhaseVote)
	}

	voter := state.player(voterID)
	if voter == nil || !voter.IsAlive {
		return false, fmt.Errorf("%w: %s cannot vote", ErrInvalidActor, voterID)
	}
	previous, err := v.store.Vote(ctx, roomID, state.DayNumber, voterID)
	if err != nil {
		return false, err
	}
	if previous != "" {
		return false, &VoteConflictError{VoterID: voterID, PreviousTarget: previous}
	}
	if voterID == targetID {
		return false, fmt.Errorf("%w: %s", ErrSelfVote, voterID)
	}
	target := state.player(targetID)
	if target == nil || !target.IsAlive {
		return false, fmt.Errorf("%w: %s", ErrInvalidTarget, targetID)
	}

	if err := v.store.SetVote(ctx, roomID, state.DayNumber, voterID, targetID); err != nil {
		return false, err
	}
	v.log.Debug().Str("room", roomID).Int("day", state.DayNumber).Str("voter", voterID).Msg("vote submitted")

	completion, err := v.completion(ctx, state)
	if err != nil {
		return false, err
	}
	return completion.Complete, nil
}

// Status tallies the current day's votes and identifies the leading targets.
func (v *Votes) Status(ctx context.Context, roomID string) (*VoteStatus, error) {
	state, err := v.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	votes, err := v.store.AllVotes(ctx, roomID, state.DayNumber)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(votes))
	for _, targetID := range votes {
		counts[targetID]++
	}
	maxVotes := 0
	for _, count := range counts {
		if count > maxVotes {
			maxVotes = count
		}
	}
	var leaders []string
	for targetID, count := range counts {
		if count == maxVotes && maxVotes > 0 {
			leaders = append(leaders, targetID)
		}
	}
	sort.Strings(leaders)

	return &VoteStatus{
		Counts:     counts,
		MaxTargets: leaders,
		Tied:       len(leaders) > 1,
	}, nil
}

// Completion reports who still has to vote this day.
func (v *Votes) Completion(ctx context.Context, roomID string) (*VoteCompletion, error) {
	state, err := v.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return v.completion(ctx, state)
}

func (v *Votes) completion(ctx context.Context, state *State) (*VoteCompletion, error) {
	votes, err := v.store.AllVotes(ctx, state.RoomID, state.DayNumber)
	if err != nil {
		return nil, err
	}
	alive := state.alivePlayers()
	var notVoted []string
	for _, p := range alive {
		if _, ok := votes[p.UserID]; !ok {
			notVoted = append(notVoted, p.UserID)
		}
	}
	return &VoteCompletion{
		AliveCount: len(alive),
		VotedCount: len(votes),
		NotVoted:   notVoted,
		Complete:   len(notVoted) == 0,
	}, nil
}
