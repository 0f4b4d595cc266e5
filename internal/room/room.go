// Package room is the room-lifecycle collaborator: it seats players and
// hands a full roster over to the game engine. The engine itself never
// touches room membership.
package room

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mafianight/server/internal/directory"
	"github.com/mafianight/server/internal/game"
	"github.com/mafianight/server/internal/kv"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomNotWaiting = errors.New("room is not accepting players")
	ErrRoomFull       = errors.New("room is full")
	ErrAlreadySeated  = errors.New("player already seated in this room")
	ErrBadPlayerCount = errors.New("required player count not supported")
)

const (
	StatusWaiting = "waiting"
	StatusPlaying = "playing"

	roomTTL = time.Hour
)

// Room is the public shape of a room's metadata.
type Room struct {
	RoomID          string `json:"roomId"`
	Title           string `json:"title"`
	HostUserID      string `json:"hostUserId"`
	Status          string `json:"status"`
	RequiredPlayers int    `json:"requiredPlayers"`
	SeatedPlayers   int    `json:"seatedPlayers"`
}

// Service keeps room metadata and the participant set in the kv cache and
// auto-starts the game once the required number of players are seated.
type Service struct {
	kv       kv.Store
	dir      directory.Directory
	engine   *game.Engine
	settings game.Settings
	log      zerolog.Logger
}

func NewService(store kv.Store, dir directory.Directory, engine *game.Engine, settings game.Settings, log zerolog.Logger) *Service {
	return &Service{kv: store, dir: dir, engine: engine, settings: settings, log: log}
}

func metaKey(roomID string) string {
	return fmt.Sprintf("room:%s:meta", roomID)
}

func participantsKey(roomID string) string {
	return fmt.Sprintf("room:%s:participants", roomID)
}

// Create opens a new waiting room hosted by hostUserID. The host is not
// seated automatically; they join like everyone else. requiredPlayers must be
// a count the role table supports, or the room could fill but never start.
func (s *Service) Create(ctx context.Context, hostUserID, title string, requiredPlayers int) (*Room, error) {
	if !game.SupportedPlayerCount(requiredPlayers) {
		return nil, fmt.Errorf("%w: %d", ErrBadPlayerCount, requiredPlayers)
	}
	if _, err := s.dir.Resolve(ctx, hostUserID); err != nil {
		return nil, err
	}
	roomID := uuid.NewString()
	key := metaKey(roomID)
	fields := map[string]string{
		"title":           title,
		"hostUserId":      hostUserID,
		"status":          StatusWaiting,
		"requiredPlayers": strconv.Itoa(requiredPlayers),
	}
	for field, value := range fields {
		if err := s.kv.HSet(ctx, key, field, value); err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
	}
	if err := s.kv.Expire(ctx, key, roomTTL); err != nil {
		return nil, err
	}
	s.log.Info().Str("room", roomID).Str("host", hostUserID).Int("required", requiredPlayers).Msg("room created")
	return s.Get(ctx, roomID)
}

// Get returns a room's metadata and current seat count.
func (s *Service) Get(ctx context.Context, roomID string) (*Room, error) {
	found, err := s.kv.Exists(ctx, metaKey(roomID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	meta, err := s.kv.HGetAll(ctx, metaKey(roomID))
	if err != nil {
		return nil, err
	}
	seated, err := s.kv.SCard(ctx, participantsKey(roomID))
	if err != nil {
		return nil, err
	}
	required, _ := strconv.Atoi(meta["requiredPlayers"])
	return &Room{
		RoomID:          roomID,
		Title:           meta["title"],
		HostUserID:      meta["hostUserId"],
		Status:          meta["status"],
		RequiredPlayers: required,
		SeatedPlayers:   int(seated),
	}, nil
}

// Join seats a player. When the seat count reaches the required player count
// the roster is resolved through the directory and handed to the engine;
// Join then reports started=true. Phase advancement from STARTING is left to
// the external timer collaborator.
func (s *Service) Join(ctx context.Context, roomID, userID string) (started bool, err error) {
	rm, err := s.Get(ctx, roomID)
	if err != nil {
		return false, err
	}
	if rm.Status != StatusWaiting {
		return false, fmt.Errorf("%w: %s", ErrRoomNotWaiting, roomID)
	}
	if rm.SeatedPlayers >= rm.RequiredPlayers {
		return false, fmt.Errorf("%w: %s", ErrRoomFull, roomID)
	}
	if _, err := s.dir.Resolve(ctx, userID); err != nil {
		return false, err
	}
	members, err := s.kv.SMembers(ctx, participantsKey(roomID))
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m == userID {
			return false, fmt.Errorf("%w: %s", ErrAlreadySeated, userID)
		}
	}

	if err := s.kv.SAdd(ctx, participantsKey(roomID), userID); err != nil {
		return false, err
	}
	if err := s.kv.Expire(ctx, participantsKey(roomID), roomTTL); err != nil {
		return false, err
	}
	s.log.Info().Str("room", roomID).Str("user", userID).Msg("player joined")

	seated, err := s.kv.SCard(ctx, participantsKey(roomID))
	if err != nil {
		return false, err
	}
	if int(seated) < rm.RequiredPlayers {
		return false, nil
	}
	if err := s.start(ctx, roomID); err != nil {
		// unseat the last joiner so the room is not stuck full and waiting
		if rmErr := s.kv.SRem(ctx, participantsKey(roomID), userID); rmErr != nil {
			s.log.Error().Err(rmErr).Str("room", roomID).Str("user", userID).Msg("failed to unseat after aborted start")
		}
		return false, err
	}
	return true, nil
}

// Leave unseats a player from a waiting room. Seats are fixed once the game
// starts.
func (s *Service) Leave(ctx context.Context, roomID, userID string) error {
	rm, err := s.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if rm.Status != StatusWaiting {
		return fmt.Errorf("%w: %s", ErrRoomNotWaiting, roomID)
	}
	return s.kv.SRem(ctx, participantsKey(roomID), userID)
}

// Participants returns the seated player ids in stable order.
func (s *Service) Participants(ctx context.Context, roomID string) ([]string, error) {
	if _, err := s.Get(ctx, roomID); err != nil {
		return nil, err
	}
	members, err := s.kv.SMembers(ctx, participantsKey(roomID))
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	return members, nil
}

// start resolves the roster's nicknames and initializes the game exactly
// once, then flips the room to playing.
func (s *Service) start(ctx context.Context, roomID string) error {
	ids, err := s.Participants(ctx, roomID)
	if err != nil {
		return err
	}
	nicknames := make([]string, len(ids))
	for i, id := range ids {
		member, err := s.dir.Resolve(ctx, id)
		if err != nil {
			return err
		}
		nicknames[i] = member.Nickname
	}
	if _, err := s.engine.InitializeGame(ctx, roomID, ids, nicknames, s.settings); err != nil {
		return err
	}
	if err := s.kv.HSet(ctx, metaKey(roomID), "status", StatusPlaying); err != nil {
		return err
	}
	s.log.Info().Str("room", roomID).Int("players", len(ids)).Msg("room auto-started")
	return nil
}
