package game

import (
	"fmt"
	"math/rand"
)

// Role is a player's secret role, assigned once at game start.
type Role string

const (
	RoleMafia   Role = "mafia"
	RolePolice  Role = "police"
	RoleDoctor  Role = "doctor"
	RoleCitizen Role = "citizen"
	RoleVillain Role = "villain"
)

func (r Role) String() string {
	return string(r)
}

// nightRoles are the roles with a night action, in resolution order.
var nightRoles = []Role{RoleMafia, RoleDoctor, RolePolice}

// distribution is the fixed role table keyed by player count. Villain, police
// and doctor are always exactly one; mafia scales with the table size.
type distribution struct {
	mafia   int
	police  int
	doctor  int
	citizen int
	villain int
}

var distributions = map[int]distribution{
	8:  {mafia: 2, police: 1, doctor: 1, citizen: 3, villain: 1},
	9:  {mafia: 2, police: 1, doctor: 1, citizen: 4, villain: 1},
	10: {mafia: 3, police: 1, doctor: 1, citizen: 4, villain: 1},
	11: {mafia: 3, police: 1, doctor: 1, citizen: 5, villain: 1},
	12: {mafia: 4, police: 1, doctor: 1, citizen: 6, villain: 1},
}

// SupportedPlayerCount reports whether the role table has a distribution for
// n players. Room creation rejects counts outside this table up front.
func SupportedPlayerCount(n int) bool {
	_, ok := distributions[n]
	return ok
}

// AssignRoles builds the shuffled role assignment for a fresh game. The two
// slices must be index-aligned. rng is injected so callers can fix the seed.
func AssignRoles(rng *rand.Rand, playerIDs, nicknames []string) ([]Player, error) {
	if len(playerIDs) != len(nicknames) {
		return nil, fmt.Errorf("%w: %d ids, %d nicknames", ErrPlayerMismatch, len(playerIDs), len(nicknames))
	}
	dist, ok := distributions[len(playerIDs)]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPlayerCount, len(playerIDs))
	}

	roles := make([]Role, 0, len(playerIDs))
	for _, rc := range []struct {
		role  Role
		count int
	}{
		{RoleMafia, dist.mafia},
		{RolePolice, dist.police},
		{RoleDoctor, dist.doctor},
		{RoleCitizen, dist.citizen},
		{RoleVillain, dist.villain},
	} {
		for i := 0; i < rc.count; i++ {
			roles = append(roles, rc.role)
		}
	}

	shuffle(rng, roles)

	players := make([]Player, len(playerIDs))
	for i := range playerIDs {
		players[i] = Player{
			UserID:   playerIDs[i],
			Nickname: nicknames[i],
			Role:     roles[i],
			IsAlive:  true,
		}
	}
	return players, nil
}

// shuffle is a Fisher-Yates permutation.
func shuffle(rng *rand.Rand, roles []Role) {
	for i := len(roles) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		roles[i], roles[j] = roles[j], roles[i]
	}
}
