// game/player.go
package game

// Player is a seat's participant in a running game. The room binds it to
// a connection; the engine only tracks turn-order identity and the flags
// that feed into scoring.
type Player struct {
	Team        Team
	DisplayName string
	CanTimeout  bool

	SoftTimeout bool
	HardTimeout bool
	Violated    bool
	Left        bool
}

func NewPlayer(team Team, displayName string, canTimeout bool) *Player {
	return &Player{
		Team:        team,
		DisplayName: displayName,
		CanTimeout:  canTimeout,
	}
}

// HasViolated reports whether this player invalidated the match.
func (p *Player) HasViolated() bool {
	return p.Violated || p.HardTimeout
}

// InGame reports whether the player still counts for the win condition.
func (p *Player) InGame() bool {
	return !p.HasViolated() && !p.Left
}

func (p *Player) String() string {
	return p.DisplayName + " (" + p.Team.String() + ")"
}
