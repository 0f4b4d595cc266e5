// Package directory resolves player ids to display names. Account management
// lives elsewhere; the game only ever needs this narrow lookup.
package directory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var ErrUnknownPlayer = errors.New("unknown player")

// Member is the resolved identity of one player.
type Member struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// Directory resolves a player id to their display identity.
type Directory interface {
	Resolve(ctx context.Context, userID string) (Member, error)
}

// Registry is an in-process Directory that also mints player ids. It stands
// in for the external account service.
type Registry struct {
	mu      sync.RWMutex
	members map[string]Member
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[string]Member)}
}

// Register creates a member with a fresh id and returns it.
func (r *Registry) Register(nickname string) Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := Member{UserID: uuid.NewString(), Nickname: nickname}
	r.members[m.UserID] = m
	return m
}

// Add inserts a member with a caller-chosen id, used by tests.
func (r *Registry) Add(userID, nickname string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[userID] = Member{UserID: userID, Nickname: nickname}
}

func (r *Registry) Resolve(_ context.Context, userID string) (Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.members[userID]
	if !ok {
		return Member{}, ErrUnknownPlayer
	}
	return m, nil
}
