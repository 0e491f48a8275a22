// plugins/tictactoe/tictactoe.go
package tictactoe

import (
	"encoding/json"
	"fmt"

	"github.com/wfunc/matchserver/game"
)

const Name = "tictactoe"

// Register makes tic-tac-toe joinable. Called from main.
func Register() {
	game.Register(game.GameType{
		Name:        Name,
		PlayerCount: 2,
		Factory:     func() game.Rules { return &Rules{} },
	})
}

type Move struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// state cells: -1 empty, otherwise the owning team index.
type state struct {
	turn  int
	board [3][3]int
}

func newState() *state {
	s := &state{}
	for x := range s.board {
		for y := range s.board[x] {
			s.board[x][y] = -1
		}
	}
	return s
}

func (s *state) Turn() int { return s.turn }

func (s *state) CurrentTeam() game.Team { return game.Team(s.turn % 2) }

func (s *state) Snapshot() interface{} {
	return map[string]interface{}{
		"turn":  s.turn,
		"board": s.board,
	}
}

// Rules implements the engine's game-specific collaborator for
// tic-tac-toe.
type Rules struct{}

func (r *Rules) InitialState(playerCount int) game.State {
	return newState()
}

func (r *Rules) ApplyMove(gs game.State, team game.Team, raw json.RawMessage) (game.State, error) {
	s := gs.(*state)

	var move Move
	if err := json.Unmarshal(raw, &move); err != nil {
		return nil, fmt.Errorf("malformed move: %w", err)
	}
	if move.X < 0 || move.X > 2 || move.Y < 0 || move.Y > 2 {
		return nil, fmt.Errorf("move (%d,%d) is off the board", move.X, move.Y)
	}
	if s.board[move.X][move.Y] != -1 {
		return nil, fmt.Errorf("cell (%d,%d) is already taken", move.X, move.Y)
	}

	next := *s
	next.board[move.X][move.Y] = int(team)
	next.turn++
	return &next, nil
}

var lines = [8][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 0}, {2, 0}},
	{{0, 1}, {1, 1}, {2, 1}},
	{{0, 2}, {1, 2}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{0, 2}, {1, 1}, {2, 0}},
}

func (r *Rules) CheckWinCondition(gs game.State) *game.WinCondition {
	s := gs.(*state)

	for _, line := range lines {
		owner := s.board[line[0][0]][line[0][1]]
		if owner == -1 {
			continue
		}
		if s.board[line[1][0]][line[1][1]] == owner && s.board[line[2][0]][line[2][1]] == owner {
			team := game.Team(owner)
			return &game.WinCondition{Winner: &team, Reason: "three in a row"}
		}
	}
	if s.turn >= 9 {
		return &game.WinCondition{Reason: "board is full"}
	}
	return nil
}

func (r *Rules) ScoreFor(gs game.State, team game.Team) []int {
	wc := r.CheckWinCondition(gs)
	switch {
	case wc != nil && wc.Winner != nil && *wc.Winner == team:
		return []int{2}
	case wc != nil && wc.Winner == nil:
		return []int{1}
	default:
		return []int{0}
	}
}

func (r *Rules) PossibleMoves(gs game.State) []json.RawMessage {
	s := gs.(*state)

	var moves []json.RawMessage
	for x := 0; x < 3; x++ {
		for y := 0; y < 3; y++ {
			if s.board[x][y] != -1 {
				continue
			}
			data, _ := json.Marshal(Move{X: x, Y: y})
			moves = append(moves, data)
		}
	}
	return moves
}
