// services/score_service.go
package services

import (
	"github.com/wfunc/matchserver/game"
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/models"
	"github.com/wfunc/matchserver/persistence"
)

// ScoreService folds game results into the aggregate score store and
// answers score lookups. It implements room.ScoreRecorder.
type ScoreService struct {
	db persistence.Database
}

func NewScoreService(db persistence.Database) *ScoreService {
	return &ScoreService{db: db}
}

// RecordResult runs on the finishing room's goroutine; persistence
// failures are logged, never propagated into room teardown.
func (s *ScoreService) RecordResult(roomID, gameType string, result game.GameResult) {
	outcomes := make([]models.ResultOutcome, 0, len(result.Scores))
	for _, score := range result.Scores {
		outcome := models.ResultOutcome{
			DisplayName: score.DisplayName,
			Won:         result.Winner != nil && *result.Winner == score.Team,
			Draw:        result.Winner == nil && result.IsRegular,
			Irregular:   score.Score.Cause != game.CauseRegular,
		}
		for _, part := range score.Score.Parts {
			outcome.Points += part
		}
		outcomes = append(outcomes, outcome)
	}

	if err := s.db.ApplyOutcomes(outcomes); err != nil {
		logger.Log.Errorf("Failed to record result of room %s (%s): %v", roomID, gameType, err)
	}
}

func (s *ScoreService) PlayerScore(displayName string) (models.AggregateScore, error) {
	return s.db.GetScore(displayName)
}

func (s *ScoreService) TopScores(limit int) ([]models.AggregateScore, error) {
	return s.db.TopScores(limit)
}
