// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/matchserver/models"
)

// PostgreSQL 基于database/sql的战绩存储实现，供不便引入GORM的部署使用
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scores (
			display_name TEXT PRIMARY KEY,
			games_played INT NOT NULL DEFAULT 0,
			wins         INT NOT NULL DEFAULT 0,
			losses       INT NOT NULL DEFAULT 0,
			draws        INT NOT NULL DEFAULT 0,
			violations   INT NOT NULL DEFAULT 0,
			points       INT NOT NULL DEFAULT 0,
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	return err
}

func (p *PostgreSQL) ApplyOutcomes(outcomes []models.ResultOutcome) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, outcome := range outcomes {
		wins, losses, draws, violations := 0, 0, 0, 0
		switch {
		case outcome.Draw:
			draws = 1
		case outcome.Won:
			wins = 1
		default:
			losses = 1
		}
		if outcome.Irregular {
			violations = 1
		}

		_, err := tx.Exec(`
			INSERT INTO scores (display_name, games_played, wins, losses, draws, violations, points)
			VALUES ($1, 1, $2, $3, $4, $5, $6)
			ON CONFLICT (display_name) DO UPDATE SET
				games_played = scores.games_played + 1,
				wins         = scores.wins + EXCLUDED.wins,
				losses       = scores.losses + EXCLUDED.losses,
				draws        = scores.draws + EXCLUDED.draws,
				violations   = scores.violations + EXCLUDED.violations,
				points       = scores.points + EXCLUDED.points,
				updated_at   = now()`,
			outcome.DisplayName, wins, losses, draws, violations, outcome.Points)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *PostgreSQL) GetScore(displayName string) (models.AggregateScore, error) {
	var score models.AggregateScore
	err := p.db.QueryRow(`
		SELECT display_name, games_played, wins, losses, draws, violations, points, updated_at
		FROM scores WHERE display_name = $1`, displayName).
		Scan(&score.DisplayName, &score.GamesPlayed, &score.Wins, &score.Losses,
			&score.Draws, &score.Violations, &score.Points, &score.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.AggregateScore{}, ErrRecordNotFound
	}
	return score, err
}

func (p *PostgreSQL) TopScores(limit int) ([]models.AggregateScore, error) {
	rows, err := p.db.Query(`
		SELECT display_name, games_played, wins, losses, draws, violations, points, updated_at
		FROM scores ORDER BY points DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []models.AggregateScore
	for rows.Next() {
		var score models.AggregateScore
		if err := rows.Scan(&score.DisplayName, &score.GamesPlayed, &score.Wins, &score.Losses,
			&score.Draws, &score.Violations, &score.Points, &score.UpdatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
