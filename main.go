package main

import (
	"github.com/wfunc/matchserver/config"
	"github.com/wfunc/matchserver/game"
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/monitor"
	"github.com/wfunc/matchserver/persistence"
	"github.com/wfunc/matchserver/plugins/tictactoe"
	"github.com/wfunc/matchserver/room"
	"github.com/wfunc/matchserver/server"
	"github.com/wfunc/matchserver/services"
	"github.com/wfunc/matchserver/timer"
)

// meteredRecorder counts finished games and fatal timeouts on top of
// score recording.
type meteredRecorder struct {
	scores *services.ScoreService
	mon    *monitor.Monitor
}

func (r *meteredRecorder) RecordResult(roomID, gameType string, result game.GameResult) {
	r.scores.RecordResult(roomID, gameType, result)
	r.mon.IncGamesFinished(result.IsRegular)
	for _, score := range result.Scores {
		switch score.Score.Cause {
		case game.CauseSoftTimeout:
			r.mon.IncTimeout("soft")
		case game.CauseHardTimeout:
			r.mon.IncTimeout("hard")
		}
	}
}

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Compiled-in game plugins
	tictactoe.Register()

	// Score store: Postgres when configured, in-memory otherwise
	var db persistence.Database
	if cfg.Database.Enabled {
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to database: %v", err)
		}
		logger.Log.Info("Database connection successful.")
	} else {
		db = persistence.NewMemory()
		logger.Log.Info("Database disabled, keeping scores in memory.")
	}
	defer db.Close()

	scoreService := services.NewScoreService(db)

	// Shared timer facility for move deadlines
	timers := timer.NewTimerManager()
	defer timers.Stop()

	gameCfg := game.Config{
		SoftTimeout: cfg.Game.SoftTimeout,
		HardTimeout: cfg.Game.HardTimeout,
		RoundLimit:  cfg.Game.RoundLimit,
	}
	mon := monitor.NewMonitor("matchserver")
	mon.StartServer(cfg.Server.MetricsAddress)

	roomManager := room.NewManager(timers, gameCfg)
	roomManager.SetRecorder(&meteredRecorder{scores: scoreService, mon: mon})

	lobby := server.NewLobby(cfg.Server, roomManager, scoreService, mon)

	logger.Log.Infof("Starting match server on %s", cfg.Server.HTTPAddress)
	if err := lobby.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
