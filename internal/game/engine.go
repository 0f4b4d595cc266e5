package game

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// resultPhaseDuration is how long the night/day result phases are shown.
const resultPhaseDuration = 15

// Engine owns the phase state machine for every room. It is the sole writer
// of players, eliminations, winner and phase; the night/vote coordinators
// only feed it aggregated per-day records.
//
// Phase transitions are single read-modify-write round trips against the
// state store. Two concurrent transition calls for the same room race
// last-write-wins; callers are expected to drive each room's transitions
// from a single timer.
type Engine struct {
	store *StateStore
	log   zerolog.Logger
	now   func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand injects the randomness source used for role shuffling and vote
// tie-breaking, so tests can fix the seed.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithClock injects the time source for phase deadlines.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store *StateStore, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		log:   log,
		now:   time.Now,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) intn(n int) int {
	e.rngMu.Lock()
	defer e.rngMu.Unlock()
	return e.rng.Intn(n)
}

// InitializeGame assigns roles and creates the initial game state for a room.
// Calling it twice for the same room overwrites; the room collaborator must
// guarantee a single invocation.
func (e *Engine) InitializeGame(ctx context.Context, roomID string, playerIDs, nicknames []string, settings Settings) (*State, error) {
	e.rngMu.Lock()
	players, err := AssignRoles(e.rng, playerIDs, nicknames)
	e.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	now := e.now()
	state := &State{
		RoomID:                roomID,
		Phase:                 PhaseStarting,
		DayNumber:             0,
		Players:               players,
		EliminatedPlayers:     []string{},
		CurrentPhaseStartTime: now,
		PhaseEndTime:          now.Add(30 * time.Second),
		PhaseDuration:         30,
		Settings:              settings,
	}
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}

	e.log.Info().Str("room", roomID).Int("players", len(players)).Msg("game initialized")
	for _, p := range players {
		e.log.Debug().Str("room", roomID).Str("nickname", p.Nickname).Str("role", p.Role.String()).Msg("role assigned")
	}
	return state, nil
}

// GameState returns the full (role-revealing) state for a room.
func (e *Engine) GameState(ctx context.Context, roomID string) (*State, error) {
	return e.store.Load(ctx, roomID)
}

// PublicGameState returns the role-masked projection: only the requesting
// player's own role is visible.
func (e *Engine) PublicGameState(ctx context.Context, roomID, requestingUserID string) (*PublicState, error) {
	state, err := e.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	public := &PublicState{
		RoomID:            state.RoomID,
		Phase:             state.Phase,
		DayNumber:         state.DayNumber,
		PhaseEndTime:      state.PhaseEndTime,
		Winner:            state.Winner,
		Players:           make([]PublicPlayer, len(state.Players)),
		EliminatedPlayers: state.EliminatedPlayers,
	}
	for i, p := range state.Players {
		pp := PublicPlayer{UserID: p.UserID, Nickname: p.Nickname, IsAlive: p.IsAlive}
		if p.UserID == requestingUserID {
			pp.Role = p.Role
		}
		public.Players[i] = pp
	}
	return public, nil
}

// loadForTransition loads the room's state and enforces the single legal
// source phase for op.
func (e *Engine) loadForTransition(ctx context.Context, op, roomID string, required Phase) (*State, error) {
	state, err := e.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if state.Phase.Terminal() {
		return nil, fmt.Errorf("%s: %w (room %s)", op, ErrGameAlreadyEnded, roomID)
	}
	if state.Phase != required {
		return nil, transitionError(op, state.Phase, required)
	}
	return state, nil
}

// enterPhase stamps the new phase and its timing window onto the state.
func (e *Engine) enterPhase(state *State, phase Phase, seconds int) {
	now := e.now()
	state.Phase = phase
	state.CurrentPhaseStartTime = now
	state.PhaseEndTime = now.Add(time.Duration(seconds) * time.Second)
	state.PhaseDuration = seconds
}

// StartFirstNight moves a freshly initialized room into night 1.
func (e *Engine) StartFirstNight(ctx context.Context, roomID string) (*State, error) {
	state, err := e.loadForTransition(ctx, "start first night", roomID, PhaseStarting)
	if err != nil {
		return nil, err
	}
	return e.beginNight(ctx, state, true)
}

// TransitionToNight enters the next night. From STARTING it behaves exactly
// like StartFirstNight; otherwise the room must be in DAY_RESULT.
func (e *Engine) TransitionToNight(ctx context.Context, roomID string) (*State, error) {
	state, err := e.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if state.Phase.Terminal() {
		return nil, fmt.Errorf("transition to night: %w (room %s)", ErrGameAlreadyEnded, roomID)
	}
	switch state.Phase {
	case PhaseStarting:
		return e.beginNight(ctx, state, true)
	case PhaseDayResult:
		return e.beginNight(ctx, state, false)
	default:
		return nil, transitionError("transition to night", state.Phase, PhaseDayResult)
	}
}

func (e *Engine) beginNight(ctx context.Context, state *State, first bool) (*State, error) {
	if first {
		state.DayNumber = 1
	}
	e.enterPhase(state, PhaseNight, state.Settings.NightPhaseDuration)
	if err := e.store.ClearNightActions(ctx, state.RoomID, state.DayNumber); err != nil {
		return nil, err
	}
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}
	e.log.Info().Str("room", state.RoomID).Int("day", state.DayNumber).Msg("night started")
	return state, nil
}

// TransitionToNightResult resolves the night: doctor protection first, then
// the mafia kill, then the police investigation. The protection check happens
// before any alive-state mutation.
func (e *Engine) TransitionToNightResult(ctx context.Context, roomID string) (*State, error) {
	state, err := e.loadForTransition(ctx, "transition to night result", roomID, PhaseNight)
	if err != nil {
		return nil, err
	}

	actions, err := e.store.AllNightActions(ctx, roomID, state.DayNumber)
	if err != nil {
		return nil, err
	}

	protectedID := actions[string(RoleDoctor)+targetSuffix]
	if protectedID != "" {
		if p := state.player(protectedID); p != nil {
			p.IsProtected = true
		}
	}

	if targetID := actions[string(RoleMafia)+targetSuffix]; targetID != "" {
		target := state.player(targetID)
		switch {
		case target == nil || !target.IsAlive:
			// stale target, nothing to resolve
		case targetID == protectedID:
			e.log.Info().Str("room", roomID).Int("day", state.DayNumber).Str("target", targetID).Msg("doctor protection saved the mafia target")
		default:
			state.eliminate(target)
			target.LastAction = "killed"
			e.log.Info().Str("room", roomID).Int("day", state.DayNumber).Str("target", targetID).Msg("mafia kill resolved")
		}
	}

	if targetID := actions[string(RolePolice)+targetSuffix]; targetID != "" {
		if target := state.player(targetID); target != nil {
			if err := e.store.SaveInvestigation(ctx, roomID, state.DayNumber, targetID, target.Role); err != nil {
				return nil, err
			}
		}
	}

	e.enterPhase(state, PhaseNightResult, resultPhaseDuration)
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}
	if _, err := e.evaluateWin(ctx, state); err != nil {
		return nil, err
	}
	if err := e.store.ClearNightActions(ctx, roomID, state.DayNumber); err != nil {
		return nil, err
	}
	return state, nil
}

// TransitionToDay moves from the night result into the next day's discussion.
func (e *Engine) TransitionToDay(ctx context.Context, roomID string) (*State, error) {
	state, err := e.loadForTransition(ctx, "transition to day", roomID, PhaseNightResult)
	if err != nil {
		return nil, err
	}
	state.DayNumber++
	e.enterPhase(state, PhaseDay, state.Settings.DayPhaseDuration)
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}
	e.log.Info().Str("room", roomID).Int("day", state.DayNumber).Msg("day started")
	return state, nil
}

// TransitionToVote opens the day's vote, discarding any stale vote record.
func (e *Engine) TransitionToVote(ctx context.Context, roomID string) (*State, error) {
	state, err := e.loadForTransition(ctx, "transition to vote", roomID, PhaseDay)
	if err != nil {
		return nil, err
	}
	e.enterPhase(state, PhaseVote, state.Settings.VotePhaseDuration)
	if err := e.store.ClearVotes(ctx, roomID, state.DayNumber); err != nil {
		return nil, err
	}
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// TransitionToDayResult tallies the day's votes and eliminates the top
// target, breaking ties uniformly at random. Eliminating the villain ends
// the game immediately in the village's favor, bypassing the normal win
// evaluation.
func (e *Engine) TransitionToDayResult(ctx context.Context, roomID string) (*State, error) {
	state, err := e.loadForTransition(ctx, "transition to day result", roomID, PhaseVote)
	if err != nil {
		return nil, err
	}

	votes, err := e.store.AllVotes(ctx, roomID, state.DayNumber)
	if err != nil {
		return nil, err
	}

	if len(votes) > 0 {
		counts := make(map[string]int)
		for voterID, targetID := range votes {
			counts[targetID]++
			if voter := state.player(voterID); voter != nil {
				voter.VoteTarget = targetID
			}
		}

		maxVotes := 0
		for _, count := range counts {
			if count > maxVotes {
				maxVotes = count
			}
		}
		tied := make([]string, 0, len(counts))
		for targetID, count := range counts {
			if count == maxVotes {
				tied = append(tied, targetID)
			}
		}
		sort.Strings(tied)
		chosenID := tied[0]
		if len(tied) > 1 {
			chosenID = tied[e.intn(len(tied))]
		}

		if chosen := state.player(chosenID); chosen != nil && chosen.IsAlive {
			state.eliminate(chosen)
			chosen.LastAction = "voted out"
			e.log.Info().Str("room", roomID).Int("day", state.DayNumber).Str("eliminated", chosenID).Int("votes", maxVotes).Msg("vote resolved")

			if chosen.Role == RoleVillain {
				state.Winner = WinnerVillain
				state.Phase = PhaseVillageWins
				if err := e.store.Save(ctx, state); err != nil {
					return nil, err
				}
				e.log.Info().Str("room", roomID).Str("winner", string(WinnerVillain)).Msg("villain eliminated by vote, game over")
				return state, nil
			}
		}
	}

	e.enterPhase(state, PhaseDayResult, resultPhaseDuration)
	if err := e.store.Save(ctx, state); err != nil {
		return nil, err
	}
	if _, err := e.evaluateWin(ctx, state); err != nil {
		return nil, err
	}
	if err := e.store.ClearVotes(ctx, roomID, state.DayNumber); err != nil {
		return nil, err
	}
	return state, nil
}

// CheckWinConditions evaluates the win rule against the current roster and,
// on a win, persists the terminal state. For an already-ended game it simply
// reports the recorded winner.
func (e *Engine) CheckWinConditions(ctx context.Context, roomID string) (WinCheck, error) {
	state, err := e.store.Load(ctx, roomID)
	if err != nil {
		return WinCheck{}, err
	}
	if state.Phase.Terminal() {
		return WinCheck{GameEnded: true, Winner: state.Winner}, nil
	}
	return e.evaluateWin(ctx, state)
}

// evaluateWin applies the win rule in its fixed order: mafia parity-or-better
// first (which also covers zero citizens left), then mafia extinction.
func (e *Engine) evaluateWin(ctx context.Context, state *State) (WinCheck, error) {
	mafiaCount := 0
	citizenCount := 0
	for _, p := range state.alivePlayers() {
		if p.Role == RoleMafia {
			mafiaCount++
		} else {
			citizenCount++
		}
	}

	switch {
	case mafiaCount >= citizenCount:
		state.Winner = WinnerMafia
		state.Phase = PhaseMafiaWins
	case mafiaCount == 0:
		state.Winner = WinnerCitizen
		state.Phase = PhaseCitizenWins
	default:
		return WinCheck{GameEnded: false}, nil
	}

	if err := e.store.Save(ctx, state); err != nil {
		return WinCheck{}, err
	}
	e.log.Info().Str("room", state.RoomID).Str("winner", string(state.Winner)).Int("mafia", mafiaCount).Int("citizens", citizenCount).Msg("game over")
	return WinCheck{GameEnded: true, Winner: state.Winner}, nil
}
