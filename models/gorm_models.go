// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormScore 玩家累计战绩表
type GormScore struct {
	gorm.Model
	DisplayName string `gorm:"uniqueIndex;not null"`
	GamesPlayed int    `gorm:"default:0"`
	Wins        int    `gorm:"default:0"`
	Losses      int    `gorm:"default:0"`
	Draws       int    `gorm:"default:0"`
	Violations  int    `gorm:"default:0"`
	Points      int    `gorm:"default:0"`
}

func (s *GormScore) ToAggregate() AggregateScore {
	return AggregateScore{
		DisplayName: s.DisplayName,
		GamesPlayed: s.GamesPlayed,
		Wins:        s.Wins,
		Losses:      s.Losses,
		Draws:       s.Draws,
		Violations:  s.Violations,
		Points:      s.Points,
		UpdatedAt:   s.UpdatedAt,
	}
}
