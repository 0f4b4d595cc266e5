package game

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// NightActions collects the per-role night submissions for the current day
// and detects when every role that still matters has acted. Each submission
// is a per-field hash write, so concurrent submissions by different roles
// never clobber each other. A role re-submitting overwrites its earlier pick.
type NightActions struct {
	store *StateStore
	log   zerolog.Logger
}

func NewNightActions(store *StateStore, log zerolog.Logger) *NightActions {
	return &NightActions{store: store, log: log}
}

// NightStatus reports which roles have locked in their night action.
type NightStatus struct {
	MafiaSelected  bool `json:"mafiaSelected"`
	DoctorSelected bool `json:"doctorSelected"`
	PoliceSelected bool `json:"policeSelected"`
	AllComplete    bool `json:"allComplete"`
}

// Submit records a night action for the claimed role and returns whether the
// night is now complete.
func (n *NightActions) Submit(ctx context.Context, roomID, userID string, role Role, targetID string) (bool, error) {
	state, err := n.store.Load(ctx, roomID)
	if err != nil {
		return false, err
	}
	if state.Phase.Terminal() {
		return false, fmt.Errorf("submit night action: %w (room %s)", ErrGameAlreadyEnded, roomID)
	}
	if state.Phase != PhaseNight {
		return false, wrongPhaseError("submit night action", state.Phase, PhaseNight)
	}

	actor := state.player(userID)
	if actor == nil || !actor.IsAlive || actor.Role != role {
		return false, fmt.Errorf("%w: %s cannot act as %s", ErrInvalidActor, userID, role)
	}
	target := state.player(targetID)
	if target == nil || !target.IsAlive {
		return false, fmt.Errorf("%w: %s", ErrInvalidTarget, targetID)
	}

	if err := n.store.SetNightAction(ctx, roomID, state.DayNumber, role, targetID); err != nil {
		return false, err
	}
	n.log.Debug().Str("room", roomID).Int("day", state.DayNumber).Str("role", role.String()).Msg("night action submitted")

	return n.complete(ctx, state)
}

// Retract withdraws the claimed role's submission for the current night so a
// new target can be picked, or none at all. Same guards as Submit.
func (n *NightActions) Retract(ctx context.Context, roomID, userID string, role Role) error {
	state, err := n.store.Load(ctx, roomID)
	if err != nil {
		return err
	}
	if state.Phase.Terminal() {
		return fmt.Errorf("retract night action: %w (room %s)", ErrGameAlreadyEnded, roomID)
	}
	if state.Phase != PhaseNight {
		return wrongPhaseError("retract night action", state.Phase, PhaseNight)
	}
	actor := state.player(userID)
	if actor == nil || !actor.IsAlive || actor.Role != role {
		return fmt.Errorf("%w: %s cannot act as %s", ErrInvalidActor, userID, role)
	}
	if err := n.store.ClearNightAction(ctx, roomID, state.DayNumber, role); err != nil {
		return err
	}
	n.log.Debug().Str("room", roomID).Int("day", state.DayNumber).Str("role", role.String()).Msg("night action retracted")
	return nil
}

// CheckCompletion reports whether every required role still held by a living
// player has submitted for the current day.
func (n *NightActions) CheckCompletion(ctx context.Context, roomID string) (bool, error) {
	state, err := n.store.Load(ctx, roomID)
	if err != nil {
		return false, err
	}
	return n.complete(ctx, state)
}

// complete checks the current day's record against the night roles that are
// still held by a living player; eliminated roles are excluded.
func (n *NightActions) complete(ctx context.Context, state *State) (bool, error) {
	actions, err := n.store.AllNightActions(ctx, state.RoomID, state.DayNumber)
	if err != nil {
		return false, err
	}
	for _, role := range nightRoles {
		if !state.aliveWithRole(role) {
			continue
		}
		if actions[string(role)+selectedSuffix] != "true" {
			return false, nil
		}
	}
	return true, nil
}

// Status is a read-only projection of the current day's record.
func (n *NightActions) Status(ctx context.Context, roomID string) (*NightStatus, error) {
	state, err := n.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	actions, err := n.store.AllNightActions(ctx, state.RoomID, state.DayNumber)
	if err != nil {
		return nil, err
	}
	allComplete, err := n.complete(ctx, state)
	if err != nil {
		return nil, err
	}
	return &NightStatus{
		MafiaSelected:  actions[string(RoleMafia)+selectedSuffix] == "true",
		DoctorSelected: actions[string(RoleDoctor)+selectedSuffix] == "true",
		PoliceSelected: actions[string(RolePolice)+selectedSuffix] == "true",
		AllComplete:    allComplete,
	}, nil
}

// All returns the raw role -> target record for the current day.
func (n *NightActions) All(ctx context.Context, roomID string) (map[string]string, error) {
	state, err := n.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return n.store.AllNightActions(ctx, state.RoomID, state.DayNumber)
}

// Investigations returns every target -> role result recorded for the day,
// regardless of requester. Callers gate access; the HTTP layer mounts this
// behind admin auth. day <= 0 means the current day.
func (n *NightActions) Investigations(ctx context.Context, roomID string, day int) (map[string]string, error) {
	state, err := n.store.Load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if day <= 0 {
		day = state.DayNumber
	}
	return n.store.AllInvestigations(ctx, roomID, day)
}

// InvestigationResult reveals the investigated role of targetID for the given
// day to the living police player only. day <= 0 means the current day.
func (n *NightActions) InvestigationResult(ctx context.Context, roomID string, day int, userID, targetID string) (Role, error) {
	state, err := n.store.Load(ctx, roomID)
	if err != nil {
		return "", err
	}
	requester := state.player(userID)
	if requester == nil || !requester.IsAlive || requester.Role != RolePolice {
		return "", fmt.Errorf("%w: %s is not the living police", ErrInvalidActor, userID)
	}
	if day <= 0 {
		day = state.DayNumber
	}
	role, err := n.store.Investigation(ctx, roomID, day, targetID)
	if err != nil {
		return "", err
	}
	return Role(role), nil
}
