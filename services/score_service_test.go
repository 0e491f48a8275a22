package services

import (
	"errors"
	"testing"

	"github.com/wfunc/matchserver/game"
	"github.com/wfunc/matchserver/persistence"
)

func resultWithWinner(winner game.Team) game.GameResult {
	return game.GameResult{
		Winner:    &winner,
		IsRegular: true,
		Scores: []game.PlayerResult{
			{DisplayName: "alice", Team: game.TeamOne, Score: game.PlayerScore{Cause: game.CauseRegular, Parts: []int{2}}},
			{DisplayName: "bob", Team: game.TeamTwo, Score: game.PlayerScore{Cause: game.CauseRegular, Parts: []int{0}}},
		},
	}
}

func TestRecordResult_WinAndLoss(t *testing.T) {
	db := persistence.NewMemory()
	svc := NewScoreService(db)

	svc.RecordResult("r1", "tictactoe", resultWithWinner(game.TeamOne))

	alice, err := svc.PlayerScore("alice")
	if err != nil {
		t.Fatalf("PlayerScore failed: %v", err)
	}
	if alice.Wins != 1 || alice.Losses != 0 || alice.Points != 2 {
		t.Errorf("Unexpected aggregate for alice: %+v", alice)
	}

	bob, err := svc.PlayerScore("bob")
	if err != nil {
		t.Fatalf("PlayerScore failed: %v", err)
	}
	if bob.Losses != 1 || bob.Wins != 0 || bob.GamesPlayed != 1 {
		t.Errorf("Unexpected aggregate for bob: %+v", bob)
	}
}

func TestRecordResult_Draw(t *testing.T) {
	db := persistence.NewMemory()
	svc := NewScoreService(db)

	svc.RecordResult("r1", "tictactoe", game.GameResult{
		IsRegular: true,
		Scores: []game.PlayerResult{
			{DisplayName: "alice", Team: game.TeamOne, Score: game.PlayerScore{Cause: game.CauseRegular, Parts: []int{1}}},
			{DisplayName: "bob", Team: game.TeamTwo, Score: game.PlayerScore{Cause: game.CauseRegular, Parts: []int{1}}},
		},
	})

	for _, name := range []string{"alice", "bob"} {
		score, err := svc.PlayerScore(name)
		if err != nil {
			t.Fatalf("PlayerScore(%s) failed: %v", name, err)
		}
		if score.Draws != 1 || score.Wins != 0 || score.Losses != 0 {
			t.Errorf("Unexpected aggregate for %s: %+v", name, score)
		}
	}
}

func TestRecordResult_IrregularCountsViolation(t *testing.T) {
	db := persistence.NewMemory()
	svc := NewScoreService(db)

	winner := game.TeamOne
	svc.RecordResult("r1", "tictactoe", game.GameResult{
		Winner: &winner,
		Scores: []game.PlayerResult{
			{DisplayName: "alice", Team: game.TeamOne, Score: game.PlayerScore{Cause: game.CauseRegular, Parts: []int{2}}},
			{DisplayName: "bob", Team: game.TeamTwo, Score: game.PlayerScore{Cause: game.CauseHardTimeout}},
		},
	})

	bob, err := svc.PlayerScore("bob")
	if err != nil {
		t.Fatalf("PlayerScore failed: %v", err)
	}
	if bob.Violations != 1 || bob.Losses != 1 {
		t.Errorf("A hard timeout should count as violation and loss, got %+v", bob)
	}

	alice, _ := svc.PlayerScore("alice")
	if alice.Violations != 0 || alice.Wins != 1 {
		t.Errorf("Unexpected aggregate for alice: %+v", alice)
	}
}

func TestTopScores(t *testing.T) {
	db := persistence.NewMemory()
	svc := NewScoreService(db)

	svc.RecordResult("r1", "tictactoe", resultWithWinner(game.TeamOne))
	svc.RecordResult("r2", "tictactoe", resultWithWinner(game.TeamOne))

	top, err := svc.TopScores(1)
	if err != nil {
		t.Fatalf("TopScores failed: %v", err)
	}
	if len(top) != 1 || top[0].DisplayName != "alice" || top[0].Points != 4 {
		t.Errorf("Unexpected leaderboard: %+v", top)
	}
}

func TestPlayerScore_Unknown(t *testing.T) {
	svc := NewScoreService(persistence.NewMemory())

	if _, err := svc.PlayerScore("nobody"); !errors.Is(err, persistence.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
