// game/game.go
package game

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/timer"
)

// Host is the engine's view of the room: it welcomes players and
// delivers move requests to their connections. Defined here to keep the
// room package on the depending side.
type Host interface {
	Welcome(p *Player)
	RequestMove(p *Player)
}

// Listener receives state and result notifications. Implementations must
// not assume delivery order across rooms; within a room, notifications
// are serialized.
type Listener interface {
	OnStateChanged(state State, observersOnly bool)
	OnGameOver(result GameResult)
}

// Config carries the per-move budgets and the generic round limit.
type Config struct {
	SoftTimeout time.Duration
	HardTimeout time.Duration
	RoundLimit  int
}

// Game drives the generic turn loop: request a move, race it against the
// ActionTimeout, validate turn ownership, delegate to the rules, check
// the win condition, broadcast, repeat.
//
// Game is not safe for concurrent use. Every entry point must run on the
// owning room's serialized executor; timer callbacks re-enter through
// exec.
type Game struct {
	rules     Rules
	state     State
	players   []*Player
	listeners []Listener
	host      Host
	timers    *timer.TimerManager
	exec      func(func())
	cfg       Config

	paused      bool
	over        bool
	moveTimeout *timer.ActionTimeout
	result      *GameResult

	// set when the game ends while a move is outstanding, so scoring can
	// attribute a fatal soft timeout to the stalled player
	pendingAtStop *Player
}

// New creates a game over the given players in slot order. exec submits
// a task to the room's serialized queue.
func New(rules Rules, players []*Player, host Host, timers *timer.TimerManager, exec func(func()), cfg Config) *Game {
	return &Game{
		rules:   rules,
		state:   rules.InitialState(len(players)),
		players: players,
		host:    host,
		timers:  timers,
		exec:    exec,
		cfg:     cfg,
	}
}

func (g *Game) Players() []*Player { return g.players }

func (g *Game) State() State { return g.state }

func (g *Game) IsPaused() bool { return g.paused }

func (g *Game) IsOver() bool { return g.over }

func (g *Game) Result() *GameResult { return g.result }

func (g *Game) MovePending() bool { return g.moveTimeout != nil }

// ActivePlayer is the single player a move is currently accepted from.
func (g *Game) ActivePlayer() *Player {
	return g.players[int(g.state.CurrentTeam())%len(g.players)]
}

func (g *Game) AddListener(l Listener) {
	g.listeners = append(g.listeners, l)
}

func (g *Game) RemoveListener(l Listener) {
	for i, existing := range g.listeners {
		if existing == l {
			g.listeners = append(g.listeners[:i], g.listeners[i+1:]...)
			return
		}
	}
}

// Start welcomes every player and requests the first move, unless the
// game begins paused.
func (g *Game) Start(paused bool) {
	g.paused = paused
	for _, p := range g.players {
		g.host.Welcome(p)
	}
	g.next()
}

// SetPaused suspends automatic advancement after the current turn.
// Unpausing with no move in flight immediately requests the next move.
func (g *Game) SetPaused(flag bool) {
	if g.over {
		return
	}
	resume := !flag && g.moveTimeout == nil && g.paused
	g.paused = flag
	if resume {
		g.Step()
	}
}

// Step advances a paused game by exactly one turn: the move request goes
// out and, once answered, next() re-enters the pause.
func (g *Game) Step() {
	if g.over {
		return
	}
	if g.moveTimeout != nil {
		logger.Log.Warnf("Step ignored, a move is already in flight")
		return
	}
	g.notifyOnNewState(false)
	g.requestActivePlayer()
}

// OnAction is called with a move received from a player's connection.
// Anything but a move from exactly the requested player invalidates the
// match.
func (g *Game) OnAction(p *Player, move json.RawMessage) error {
	if g.over {
		return ErrGameOver
	}
	if g.moveTimeout == nil {
		g.endIrregular(p, "no move was requested")
		return fmt.Errorf("%w: no move was requested from %s", ErrNotYourTurn, p)
	}
	if active := g.ActivePlayer(); p != active {
		g.endIrregular(p, "not your turn")
		return fmt.Errorf("%w: waiting for a move from %s", ErrNotYourTurn, active)
	}

	t := g.moveTimeout
	g.moveTimeout = nil
	t.Stop()
	logger.Log.Infof("Time needed for move: %v", t.TimeDiff())
	if t.DidSoftTimeout() {
		logger.Log.Warnf("Player %s hit the soft timeout, move still accepted", p)
		p.SoftTimeout = true
	}

	next, err := g.rules.ApplyMove(g.state, p.Team, move)
	if err != nil {
		g.endIrregular(p, err.Error())
		return fmt.Errorf("%w: %v", ErrInvalidMove, err)
	}
	g.state = next
	g.next()
	return nil
}

// PlayerLeft handles a disconnect. A pending move request is cancelled
// and the game ends; remaining players are scored regularly.
func (g *Game) PlayerLeft(p *Player) {
	if g.over {
		return
	}
	logger.Log.Infof("Player %s left the game", p)
	p.Left = true
	g.Stop()
}

// Stop terminates the game from whatever state it is in and emits the
// result. All game-ending paths converge here.
func (g *Game) Stop() {
	if g.over {
		return
	}
	if t := g.moveTimeout; t != nil {
		g.pendingAtStop = g.ActivePlayer()
		g.moveTimeout = nil
		t.Stop()
	}
	g.over = true
	g.result = g.buildResult()
	g.notifyOnGameOver(*g.result)
}

// next advances the loop after a successful turn: broadcast, win check,
// then either a new move request or idling when paused.
func (g *Game) next() {
	g.notifyOnNewState(g.paused)

	if wc := g.winCondition(); wc != nil {
		logger.Log.Infof("Game over: %s", wc.Reason)
		g.Stop()
	} else if !g.paused {
		g.requestActivePlayer()
	}
}

func (g *Game) requestActivePlayer() {
	p := g.ActivePlayer()
	t := timer.NewActionTimeout(g.timers, p.CanTimeout, g.cfg.SoftTimeout, g.cfg.HardTimeout)
	g.moveTimeout = t

	t.Start(
		func() { g.exec(func() { g.onSoftTimeout(t, p) }) },
		func() { g.exec(func() { g.onHardTimeout(t, p) }) },
	)

	logger.Log.Infof("Sending move request to player %s", p)
	g.host.RequestMove(p)
}

// onSoftTimeout only flags the player; the hard deadline stays live and
// a late move is still accepted.
func (g *Game) onSoftTimeout(t *timer.ActionTimeout, p *Player) {
	if g.over || g.moveTimeout != t {
		return
	}
	logger.Log.Warnf("Player %s exceeded the soft timeout of %v", p, g.cfg.SoftTimeout)
	p.SoftTimeout = true
}

// onHardTimeout is always fatal. If a move won the race for the room's
// executor first, moveTimeout no longer points at t and this is a no-op.
func (g *Game) onHardTimeout(t *timer.ActionTimeout, p *Player) {
	if g.over || g.moveTimeout != t {
		return
	}
	logger.Log.Warnf("Player %s reached the hard timeout of %v", p, g.cfg.HardTimeout)
	g.moveTimeout = nil
	p.HardTimeout = true
	g.pendingAtStop = p
	g.Stop()
}

// endIrregular marks p as the violator and stops the game.
func (g *Game) endIrregular(p *Player, reason string) {
	logger.Log.Warnf("Player %s invalidated the match: %s", p, reason)
	p.Violated = true
	g.Stop()
}

// winCondition evaluates the generic rules before delegating to the
// game-specific collaborator:
//   - a single player left in good standing wins outright
//   - the round limit ends the game
func (g *Game) winCondition() *WinCondition {
	if p := g.soleSurvivor(); p != nil {
		team := p.Team
		return &WinCondition{Winner: &team, Reason: "only remaining player"}
	}
	if wc := g.rules.CheckWinCondition(g.state); wc != nil {
		return wc
	}
	if g.state.Turn() >= g.cfg.RoundLimit {
		wc := &WinCondition{Reason: "round limit reached"}
		return wc
	}
	return nil
}

func (g *Game) soleSurvivor() *Player {
	var survivor *Player
	for _, p := range g.players {
		if p.InGame() {
			if survivor != nil {
				return nil
			}
			survivor = p
		}
	}
	return survivor
}

func (g *Game) winnerTeam() *Team {
	if p := g.soleSurvivor(); p != nil {
		team := p.Team
		return &team
	}
	if wc := g.rules.CheckWinCondition(g.state); wc != nil {
		return wc.Winner
	}
	return nil
}

func (g *Game) buildResult() *GameResult {
	result := &GameResult{
		Winner:    g.winnerTeam(),
		IsRegular: true,
		Scores:    make([]PlayerResult, 0, len(g.players)),
	}
	for _, p := range g.players {
		score := g.scoreFor(p)
		if score.Cause != CauseRegular {
			result.IsRegular = false
		}
		result.Scores = append(result.Scores, PlayerResult{
			DisplayName: p.DisplayName,
			Team:        p.Team,
			Score:       score,
		})
	}
	return result
}

// scoreFor selects the cause by priority and fills the numeric parts
// from the rules for regular outcomes only.
func (g *Game) scoreFor(p *Player) PlayerScore {
	switch {
	case p.HardTimeout:
		return PlayerScore{Cause: CauseHardTimeout, Reason: "exceeded the hard move timeout"}
	case p.SoftTimeout && p == g.pendingAtStop:
		return PlayerScore{Cause: CauseSoftTimeout, Reason: "game ended during an overdue move"}
	case p.Violated:
		return PlayerScore{Cause: CauseViolation, Reason: "violated the rules"}
	case p.Left:
		return PlayerScore{Cause: CauseLeft, Reason: "left the game"}
	default:
		return PlayerScore{Cause: CauseRegular, Parts: g.rules.ScoreFor(g.state, p.Team)}
	}
}

func (g *Game) notifyOnNewState(observersOnly bool) {
	for _, l := range g.listeners {
		g.notify(func() { l.OnStateChanged(g.state, observersOnly) })
	}
}

func (g *Game) notifyOnGameOver(result GameResult) {
	for _, l := range g.listeners {
		g.notify(func() { l.OnGameOver(result) })
	}
}

// notify isolates a failing listener so delivery to the rest proceeds.
func (g *Game) notify(f func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("Listener notification panicked: %v", r)
		}
	}()
	f()
}
