// game/types.go
package game

import "fmt"

// Team identifies a seat in turn order. Teams are assigned by slot index
// when a room starts.
type Team int

const (
	TeamOne Team = iota
	TeamTwo
)

var teamNames = []string{"ONE", "TWO", "THREE", "FOUR"}

func (t Team) String() string {
	if int(t) < len(teamNames) {
		return teamNames[t]
	}
	return fmt.Sprintf("TEAM_%d", int(t)+1)
}

// ScoreCause categorizes why a player ended up with their final score.
type ScoreCause string

const (
	CauseRegular     ScoreCause = "REGULAR"
	CauseLeft        ScoreCause = "LEFT"
	CauseViolation   ScoreCause = "VIOLATION"
	CauseSoftTimeout ScoreCause = "SOFT_TIMEOUT"
	CauseHardTimeout ScoreCause = "HARD_TIMEOUT"
)

// PlayerScore is the immutable per-player outcome. Parts carries the
// game-specific numeric score; it is all zeros for non-regular causes.
type PlayerScore struct {
	Cause  ScoreCause `json:"cause"`
	Reason string     `json:"reason,omitempty"`
	Parts  []int      `json:"parts"`
}

// PlayerResult pairs a player's identity with their score.
type PlayerResult struct {
	DisplayName string      `json:"display_name"`
	Team        Team        `json:"team"`
	Score       PlayerScore `json:"score"`
}

// GameResult is produced exactly once when a game reaches its end.
type GameResult struct {
	Winner    *Team          `json:"winner"`
	IsRegular bool           `json:"is_regular"`
	Scores    []PlayerResult `json:"scores"`
}

// WinCondition is returned by the rules collaborator once the game is
// decided. A nil Winner means a draw.
type WinCondition struct {
	Winner *Team
	Reason string
}
