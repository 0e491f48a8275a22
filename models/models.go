// models/models.go
package models

import (
	"time"
)

// AggregateScore 玩家累计战绩（不保存单局历史）
type AggregateScore struct {
	DisplayName string    `json:"display_name"`
	GamesPlayed int       `json:"games_played"`
	Wins        int       `json:"wins"`
	Losses      int       `json:"losses"`
	Draws       int       `json:"draws"`
	Violations  int       `json:"violations"`
	Points      int       `json:"points"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ResultOutcome 单个玩家一局的结算输入
type ResultOutcome struct {
	DisplayName string `json:"display_name"`
	Won         bool   `json:"won"`
	Draw        bool   `json:"draw"`
	Irregular   bool   `json:"irregular"`
	Points      int    `json:"points"`
}
