package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mafianight/server/internal/kv"
)

// StateTTL is the best-effort lifetime of game state and per-day records.
const StateTTL = time.Hour

const (
	targetSuffix   = "_target"
	selectedSuffix = "_selected"
)

// StateStore persists game state and the transient per-day records in the
// key-value cache. Night actions and votes are written one hash field per
// submission so concurrent submissions never clobber each other.
type StateStore struct {
	kv  kv.Store
	ttl time.Duration
}

func NewStateStore(store kv.Store) *StateStore {
	return &StateStore{kv: store, ttl: StateTTL}
}

func stateKey(roomID string) string {
	return fmt.Sprintf("game:%s:state", roomID)
}

func nightKey(roomID string, day int) string {
	return fmt.Sprintf("game:%s:night-actions:%d", roomID, day)
}

func voteKey(roomID string, day int) string {
	return fmt.Sprintf("game:%s:votes:%d", roomID, day)
}

func investigationKey(roomID string, day int, targetID string) string {
	return fmt.Sprintf("game:%s:investigation:%d:%s", roomID, day, targetID)
}

// Load reads the full game state for a room. ErrGameNotFound when the room
// has no game (never initialized, deleted, or past TTL).
func (s *StateStore) Load(ctx context.Context, roomID string) (*State, error) {
	raw, err := s.kv.Get(ctx, stateKey(roomID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: room %s", ErrGameNotFound, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode game state: %w", err)
	}
	return &state, nil
}

// Save writes the full game state, refreshing its TTL.
func (s *StateStore) Save(ctx context.Context, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode game state: %w", err)
	}
	if err := s.kv.Set(ctx, stateKey(state.RoomID), string(raw), s.ttl); err != nil {
		return fmt.Errorf("save game state: %w", err)
	}
	return nil
}

// Delete removes a room's game state.
func (s *StateStore) Delete(ctx context.Context, roomID string) error {
	return s.kv.Delete(ctx, stateKey(roomID))
}

// SetNightAction records a role's target for the given day. Two hash-field
// writes: the target and the "selected" marker. Last write per role wins.
func (s *StateStore) SetNightAction(ctx context.Context, roomID string, day int, role Role, targetID string) error {
	key := nightKey(roomID, day)
	if err := s.kv.HSet(ctx, key, string(role)+targetSuffix, targetID); err != nil {
		return fmt.Errorf("record night action: %w", err)
	}
	if err := s.kv.HSet(ctx, key, string(role)+selectedSuffix, "true"); err != nil {
		return fmt.Errorf("record night action: %w", err)
	}
	return s.kv.Expire(ctx, key, s.ttl)
}

// NightAction returns the target a role selected this day, "" if none yet.
func (s *StateStore) NightAction(ctx context.Context, roomID string, day int, role Role) (string, error) {
	target, err := s.kv.HGet(ctx, nightKey(roomID, day), string(role)+targetSuffix)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	return target, err
}

// AllNightActions returns the raw per-day record (role_target/role_selected
// fields).
func (s *StateStore) AllNightActions(ctx context.Context, roomID string, day int) (map[string]string, error) {
	return s.kv.HGetAll(ctx, nightKey(roomID, day))
}

// ClearNightAction removes a single role's submission for the day, leaving
// the other roles' fields untouched.
func (s *StateStore) ClearNightAction(ctx context.Context, roomID string, day int, role Role) error {
	key := nightKey(roomID, day)
	if err := s.kv.HDel(ctx, key, string(role)+targetSuffix); err != nil {
		return fmt.Errorf("retract night action: %w", err)
	}
	if err := s.kv.HDel(ctx, key, string(role)+selectedSuffix); err != nil {
		return fmt.Errorf("retract night action: %w", err)
	}
	return nil
}

// ClearNightActions discards the day's record after the night resolves.
func (s *StateStore) ClearNightActions(ctx context.Context, roomID string, day int) error {
	return s.kv.Delete(ctx, nightKey(roomID, day))
}

// SetVote records one voter's choice, a single hash-field write.
func (s *StateStore) SetVote(ctx context.Context, roomID string, day int, voterID, targetID string) error {
	key := voteKey(roomID, day)
	if err := s.kv.HSet(ctx, key, voterID, targetID); err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	return s.kv.Expire(ctx, key, s.ttl)
}

// Vote returns who voterID voted for this day, "" if they have not voted.
func (s *StateStore) Vote(ctx context.Context, roomID string, day int, voterID string) (string, error) {
	target, err := s.kv.HGet(ctx, voteKey(roomID, day), voterID)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	return target, err
}

// AllVotes returns the voter -> target record for the day.
func (s *StateStore) AllVotes(ctx context.Context, roomID string, day int) (map[string]string, error) {
	return s.kv.HGetAll(ctx, voteKey(roomID, day))
}

// ClearVotes discards the day's vote record after the day result consumes it.
func (s *StateStore) ClearVotes(ctx context.Context, roomID string, day int) error {
	return s.kv.Delete(ctx, voteKey(roomID, day))
}

// SaveInvestigation persists the true role of a police-investigated target.
func (s *StateStore) SaveInvestigation(ctx context.Context, roomID string, day int, targetID string, role Role) error {
	return s.kv.Set(ctx, investigationKey(roomID, day, targetID), string(role), s.ttl)
}

// Investigation returns the investigated role of targetID for the day,
// "" when that target was not investigated.
func (s *StateStore) Investigation(ctx context.Context, roomID string, day int, targetID string) (string, error) {
	role, err := s.kv.Get(ctx, investigationKey(roomID, day, targetID))
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	return role, err
}

// AllInvestigations returns every target -> role result recorded for the day.
func (s *StateStore) AllInvestigations(ctx context.Context, roomID string, day int) (map[string]string, error) {
	pattern := investigationKey(roomID, day, "*")
	keys, err := s.kv.Keys(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("list investigations: %w", err)
	}
	results := make(map[string]string, len(keys))
	for _, key := range keys {
		targetID := key[strings.LastIndex(key, ":")+1:]
		role, err := s.kv.Get(ctx, key)
		if errors.Is(err, kv.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results[targetID] = role
	}
	return results, nil
}
