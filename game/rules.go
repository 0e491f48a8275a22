// game/rules.go
package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotYourTurn = errors.New("not your turn")
	ErrInvalidMove = errors.New("invalid move")
	ErrGameOver    = errors.New("game is over")
)

// State is the opaque game state the engine threads through the turn
// loop. Snapshot must return a JSON-marshalable representation for
// memento broadcasts.
type State interface {
	Turn() int
	CurrentTeam() Team
	Snapshot() interface{}
}

// Rules is the game-specific collaborator. The engine treats the game as
// a black box: apply a move, ask whether it is over, score the players.
// Moves cross the interface as raw payload bytes so the engine stays
// serializer-agnostic.
type Rules interface {
	InitialState(playerCount int) State
	ApplyMove(state State, team Team, move json.RawMessage) (State, error)
	CheckWinCondition(state State) *WinCondition
	ScoreFor(state State, team Team) []int
	PossibleMoves(state State) []json.RawMessage
}

// GameType describes a registered game: how many seats a default room
// gets and how to construct its rules.
type GameType struct {
	Name        string
	PlayerCount int
	Factory     func() Rules
}

var (
	registryMutex sync.RWMutex
	registry      = make(map[string]GameType)
)

// Register makes a game type joinable. Called from main for each
// compiled-in plugin.
func Register(gt GameType) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	registry[gt.Name] = gt
}

func LookupType(name string) (GameType, error) {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	gt, ok := registry[name]
	if !ok {
		return GameType{}, fmt.Errorf("unknown game type %q", name)
	}
	return gt, nil
}
