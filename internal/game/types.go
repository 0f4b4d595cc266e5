package game

import (
	"time"
)

// Winner identifies the winning side once a game has ended.
type Winner string

const (
	WinnerMafia   Winner = "mafia"
	WinnerCitizen Winner = "citizen"
	WinnerVillain Winner = "villain"
)

// Player is one seat in a game. Role and seat membership are fixed at game
// start; IsAlive flips to false at most once. VoteTarget, IsProtected and
// LastAction are transient read-side fields for display only.
type Player struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	Role     Role   `json:"role"`
	IsAlive  bool   `json:"isAlive"`

	VoteTarget  string `json:"voteTarget,omitempty"`
	IsProtected bool   `json:"isProtected,omitempty"`
	LastAction  string `json:"lastAction,omitempty"`
}

// Settings are the per-room phase durations, fixed at game creation.
type Settings struct {
	DayPhaseDuration   int `json:"dayPhaseDuration"`   // seconds
	NightPhaseDuration int `json:"nightPhaseDuration"` // seconds
	VotePhaseDuration  int `json:"votePhaseDuration"`  // seconds
}

// DefaultSettings mirrors the durations used for quick party rounds.
func DefaultSettings() Settings {
	return Settings{
		DayPhaseDuration:   180,
		NightPhaseDuration: 60,
		VotePhaseDuration:  60,
	}
}

// State is the full game state for one room. The engine is its sole writer.
type State struct {
	RoomID    string `json:"roomId"`
	Phase     Phase  `json:"phase"`
	DayNumber int    `json:"dayNumber"`

	Players           []Player `json:"players"`
	EliminatedPlayers []string `json:"eliminatedPlayers"`
	Winner            Winner   `json:"winner,omitempty"`

	CurrentPhaseStartTime time.Time `json:"currentPhaseStartTime"`
	PhaseEndTime          time.Time `json:"phaseEndTime"`
	PhaseDuration         int       `json:"phaseDuration"` // seconds

	Settings Settings `json:"settings"`
}

// player returns the seat for userID, nil if there is no such seat.
func (s *State) player(userID string) *Player {
	for i := range s.Players {
		if s.Players[i].UserID == userID {
			return &s.Players[i]
		}
	}
	return nil
}

// alivePlayers returns the seats still in the game.
func (s *State) alivePlayers() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for i := range s.Players {
		if s.Players[i].IsAlive {
			out = append(out, &s.Players[i])
		}
	}
	return out
}

// aliveWithRole reports whether any living player holds role.
func (s *State) aliveWithRole(role Role) bool {
	for i := range s.Players {
		if s.Players[i].IsAlive && s.Players[i].Role == role {
			return true
		}
	}
	return false
}

// eliminate marks the seat dead and appends it to the elimination log.
// It is a no-op for already-dead seats so the log never holds duplicates.
func (s *State) eliminate(p *Player) {
	if !p.IsAlive {
		return
	}
	p.IsAlive = false
	s.EliminatedPlayers = append(s.EliminatedPlayers, p.UserID)
}

// PublicPlayer is the role-masked projection of a seat.
type PublicPlayer struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
	IsAlive  bool   `json:"isAlive"`
	Role     Role   `json:"role,omitempty"`
}

// PublicState hides every role except the requesting player's own.
type PublicState struct {
	RoomID            string         `json:"roomId"`
	Phase             Phase          `json:"phase"`
	DayNumber         int            `json:"dayNumber"`
	PhaseEndTime      time.Time      `json:"phaseEndTime"`
	Winner            Winner         `json:"winner,omitempty"`
	Players           []PublicPlayer `json:"players"`
	EliminatedPlayers []string       `json:"eliminatedPlayers"`
}

// WinCheck is the result of a win-condition evaluation.
type WinCheck struct {
	GameEnded bool   `json:"gameEnded"`
	Winner    Winner `json:"winner,omitempty"`
}
