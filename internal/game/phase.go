package game

// Phase is the current stage of a room's day/night cycle.
type Phase string

const (
	PhaseStarting    Phase = "starting"
	PhaseNight       Phase = "night"
	PhaseNightResult Phase = "night_result"
	PhaseDay         Phase = "day"
	PhaseVote        Phase = "vote"
	PhaseDayResult   Phase = "day_result"
	PhaseMafiaWins   Phase = "mafia_wins"
	PhaseCitizenWins Phase = "citizens_wins"
	PhaseVillageWins Phase = "village_wins"
)

func (p Phase) String() string {
	return string(p)
}

// Terminal reports whether the game has ended and no further transition is
// accepted.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseMafiaWins, PhaseCitizenWins, PhaseVillageWins:
		return true
	}
	return false
}

var phaseOrder = map[Phase][]Phase{
	PhaseStarting:    {PhaseNight},
	PhaseNight:       {PhaseNightResult},
	PhaseNightResult: {PhaseDay},
	PhaseDay:         {PhaseVote},
	PhaseVote:        {PhaseDayResult, PhaseVillageWins},
	PhaseDayResult:   {PhaseNight},
}

// CanTransitionTo checks whether target is a legal next phase. Win phases are
// entered by the engine itself, never by an external transition call, so they
// are not listed as targets except the vote-phase villain shortcut.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range phaseOrder[p] {
		if next == target {
			return true
		}
	}
	return false
}
