// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/matchserver/models"
)

// Database 数据库接口：只保存玩家累计战绩
type Database interface {
	ApplyOutcomes(outcomes []models.ResultOutcome) error
	GetScore(displayName string) (models.AggregateScore, error)
	TopScores(limit int) ([]models.AggregateScore, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
