// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/wfunc/matchserver/models"
)

// GormPostgreSQL 基于GORM的战绩存储实现
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormScore{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// ApplyOutcomes folds one game's outcomes into the aggregate table in a
// single transaction.
func (p *GormPostgreSQL) ApplyOutcomes(outcomes []models.ResultOutcome) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		for _, outcome := range outcomes {
			var score models.GormScore
			result := tx.Where("display_name = ?", outcome.DisplayName).First(&score)
			if result.Error == gorm.ErrRecordNotFound {
				score = models.GormScore{DisplayName: outcome.DisplayName}
			} else if result.Error != nil {
				return result.Error
			}

			applyOutcome(&score, outcome)
			if err := tx.Save(&score).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func applyOutcome(score *models.GormScore, outcome models.ResultOutcome) {
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
}

func (p *GormPostgreSQL) GetScore(displayName string) (models.AggregateScore, error) {
	var score models.GormScore
	if err := p.db.Where("display_name = ?", displayName).First(&score).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return models.AggregateScore{}, ErrRecordNotFound
		}
		return models.AggregateScore{}, err
	}
	return score.ToAggregate(), nil
}

func (p *GormPostgreSQL) TopScores(limit int) ([]models.AggregateScore, error) {
	var scores []models.GormScore
	if err := p.db.Order("points desc").Limit(limit).Find(&scores).Error; err != nil {
		return nil, err
	}

	result := make([]models.AggregateScore, 0, len(scores))
	for i := range scores {
		result = append(result, scores[i].ToAggregate())
	}
	return result, nil
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
