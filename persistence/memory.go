// persistence/memory.go
package persistence

import (
	"sort"
	"sync"
	"time"

	"github.com/wfunc/matchserver/models"
)

// Memory keeps scores in process memory. Used when no database is
// configured and in tests.
type Memory struct {
	scores map[string]models.AggregateScore
	mutex  sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{
		scores: make(map[string]models.AggregateScore),
	}
}

func (m *Memory) ApplyOutcomes(outcomes []models.ResultOutcome) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, outcome := range outcomes {
		score := m.scores[outcome.DisplayName]
		score.DisplayName = outcome.DisplayName
		score.GamesPlayed++
		score.Points += outcome.Points
		switch {
		case outcome.Draw:
			score.Draws++
		case outcome.Won:
			score.Wins++
		default:
			score.Losses++
		}
		if outcome.Irregular {
			score.Violations++
		}
		score.UpdatedAt = time.Now()
		m.scores[outcome.DisplayName] = score
	}
	return nil
}

func (m *Memory) GetScore(displayName string) (models.AggregateScore, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	score, exists := m.scores[displayName]
	if !exists {
		return models.AggregateScore{}, ErrRecordNotFound
	}
	return score, nil
}

func (m *Memory) TopScores(limit int) ([]models.AggregateScore, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	scores := make([]models.AggregateScore, 0, len(m.scores))
	for _, score := range m.scores {
		scores = append(scores, score)
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Points > scores[j].Points })
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

func (m *Memory) Close() error {
	return nil
}
