// room/room.go
package room

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wfunc/matchserver/broadcast"
	"github.com/wfunc/matchserver/game"
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/session"
	"github.com/wfunc/matchserver/timer"
)

// GameStatus 表示房间的业务状态
type GameStatus int

const (
	StatusOpen GameStatus = iota
	StatusActive
	StatusOver
)

func (s GameStatus) String() string {
	switch s {
	case StatusOpen:
		return "OPEN"
	case StatusActive:
		return "ACTIVE"
	case StatusOver:
		return "OVER"
	}
	return "UNKNOWN"
}

var (
	ErrRoomOver     = errors.New("room is over")
	ErrRoomFull     = errors.New("room is full")
	ErrNoActiveGame = errors.New("room has no active game")
)

// GameRoom owns one running game, its slots and its observers. All
// mutation of room state is serialized through a single task queue
// consumed by one goroutine; concurrent packets and timer fires are
// applied one at a time, in arrival order.
type GameRoom struct {
	ID       string
	GameType string
	Name     string

	CreatedAt time.Time

	slots     []*Slot
	observers []*session.Session
	rules     game.Rules
	gameCfg   game.Config
	timers    *timer.TimerManager
	g         *game.Game

	status         GameStatus
	pauseRequested bool
	statusMutex    sync.RWMutex

	// onOver is the manager hook: score recording and deregistration.
	onOver func(r *GameRoom, result game.GameResult)

	tasks     chan func()
	closeOnce sync.Once
	closeChan chan struct{}
}

func NewGameRoom(id, gameType string, descriptors []SlotDescriptor, rules game.Rules, timers *timer.TimerManager, gameCfg game.Config, startPaused bool) *GameRoom {
	r := &GameRoom{
		ID:             id,
		GameType:       gameType,
		CreatedAt:      time.Now(),
		rules:          rules,
		gameCfg:        gameCfg,
		timers:         timers,
		status:         StatusOpen,
		pauseRequested: startPaused,
		tasks:          make(chan func(), 64),
		closeChan:      make(chan struct{}),
	}
	for i, d := range descriptors {
		r.slots = append(r.slots, newSlot(i, d))
	}
	go r.loop()
	return r
}

// loop 是房间的执行上下文，顺序消费所有任务
func (r *GameRoom) loop() {
	for {
		select {
		case f := <-r.tasks:
			f()
		case <-r.closeChan:
			return
		}
	}
}

// post submits a task without waiting. Used by timer callbacks.
func (r *GameRoom) post(f func()) {
	select {
	case r.tasks <- f:
	case <-r.closeChan:
	}
}

// do submits a task and waits for it. Must not be called from within the
// room's own loop.
func (r *GameRoom) do(f func()) {
	done := make(chan struct{})
	select {
	case r.tasks <- func() {
		defer close(done)
		f()
	}:
	case <-r.closeChan:
		return
	}
	select {
	case <-done:
	case <-r.closeChan:
	}
}

func (r *GameRoom) close() {
	r.closeOnce.Do(func() {
		close(r.closeChan)
	})
}

// Status is safe to read from any goroutine.
func (r *GameRoom) Status() GameStatus {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.status
}

// setStatus enforces the monotonic OPEN -> ACTIVE -> OVER progression.
func (r *GameRoom) setStatus(status GameStatus) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	if status < r.status {
		logger.Log.Errorf("Refusing status transition %v -> %v in room %s", r.status, status, r.ID)
		return
	}
	r.status = status
}

func (r *GameRoom) IsPauseRequested() bool {
	r.statusMutex.RLock()
	defer r.statusMutex.RUnlock()
	return r.pauseRequested
}

func (r *GameRoom) setPauseRequested(flag bool) {
	r.statusMutex.Lock()
	defer r.statusMutex.Unlock()
	r.pauseRequested = flag
}

// Slots returns the room's seats. The slice is fixed at creation; slot
// contents must only be inspected for testing and admin display.
func (r *GameRoom) Slots() []*Slot {
	return r.slots
}

// Game returns the running game, nil while the room is OPEN.
func (r *GameRoom) Game() *game.Game {
	var g *game.Game
	r.do(func() { g = r.g })
	return g
}

// BoundSessions collects every distinct player session currently bound.
func (r *GameRoom) BoundSessions() []*session.Session {
	var sessions []*session.Session
	r.do(func() { sessions = r.boundSessions() })
	return sessions
}

func (r *GameRoom) boundSessions() []*session.Session {
	sessions := make([]*session.Session, 0, len(r.slots))
	for _, slot := range r.slots {
		if slot.Session != nil {
			sessions = append(sessions, slot.Session)
		}
	}
	return sessions
}

// Join binds the connection to the first free slot and starts the room
// once every seat is filled.
func (r *GameRoom) Join(sess *session.Session) error {
	var err error
	r.do(func() { err = r.join(sess) })
	return err
}

func (r *GameRoom) join(sess *session.Session) error {
	if r.status != StatusOpen {
		return ErrRoomOver
	}
	for _, slot := range r.slots {
		if slot.IsFree() {
			r.bindSlot(slot, sess)
			return nil
		}
	}
	return ErrRoomFull
}

// BindReservedSlot is called by the ReservationManager after a code was
// consumed.
func (r *GameRoom) BindReservedSlot(sess *session.Session, slotIndex int) error {
	var err error
	r.do(func() {
		if r.status != StatusOpen {
			err = ErrRoomOver
			return
		}
		slot := r.slots[slotIndex]
		if !slot.IsEmpty() {
			err = ErrInvalidReservation
			return
		}
		r.bindSlot(slot, sess)
	})
	return err
}

// ReleaseSlot reopens a reserved seat for plain joins (admin cancel of a
// reservation).
func (r *GameRoom) ReleaseSlot(slotIndex int) {
	r.do(func() {
		slot := r.slots[slotIndex]
		slot.Descriptor.Reserved = false
	})
}

func (r *GameRoom) bindSlot(slot *Slot, sess *session.Session) {
	slot.bind(sess)
	sess.EnterRoom(r.ID)
	logger.Log.Infof("Session %s took slot %d of room %s", sess.GetID(), slot.Index, r.ID)

	for _, s := range r.slots {
		if s.IsEmpty() {
			return
		}
	}
	r.startGame()
}

// startGame moves the room to ACTIVE and spins up the turn loop. A room
// prepared with pause starts ACTIVE but idle.
func (r *GameRoom) startGame() {
	r.setStatus(StatusActive)

	players := make([]*game.Player, len(r.slots))
	for i, slot := range r.slots {
		players[i] = slot.Player
	}
	r.g = game.New(r.rules, players, r, r.timers, r.post, r.gameCfg)
	r.g.AddListener(r)

	logger.Log.Infof("Room %s started (paused=%v)", r.ID, r.pauseRequested)
	r.g.Start(r.pauseRequested)
}

// OnEvent dispatches a room-scoped payload, i.e. a move, into the game.
// The returned error is reported to the sender; a turn-order violation
// has already ended the room by the time it surfaces here.
func (r *GameRoom) OnEvent(sess *session.Session, data json.RawMessage) error {
	var err error
	r.do(func() { err = r.onEvent(sess, data) })
	return err
}

func (r *GameRoom) onEvent(sess *session.Session, data json.RawMessage) error {
	if r.status == StatusOver {
		return ErrRoomOver
	}
	if r.g == nil {
		return ErrNoActiveGame
	}
	player := r.playerFor(sess)
	if player == nil {
		return fmt.Errorf("session %s holds no slot in room %s", sess.GetID(), r.ID)
	}
	return r.g.OnAction(player, data)
}

func (r *GameRoom) playerFor(sess *session.Session) *game.Player {
	for _, slot := range r.slots {
		if slot.Session == sess {
			return slot.Player
		}
	}
	return nil
}

// Pause suspends automatic advancement after the current turn finishes.
// Calling it twice with the same flag is a no-op.
func (r *GameRoom) Pause(flag bool) {
	r.do(func() {
		if r.status == StatusOver {
			return
		}
		if r.IsPauseRequested() == flag {
			return
		}
		r.setPauseRequested(flag)
		if r.g != nil {
			r.g.SetPaused(flag)
		}
		r.broadcastAll(network.MsgTypeGamePaused, &network.GamePausedMessage{RoomID: r.ID, Paused: flag})
	})
}

// Step advances a paused game by one turn. With forced set on a room
// that has no active game, the room is closed immediately and every
// absent player is scored as left.
func (r *GameRoom) Step(forced bool) error {
	var err error
	r.do(func() {
		if r.status == StatusOver {
			err = ErrRoomOver
			return
		}
		if r.g == nil {
			if !forced {
				err = ErrNoActiveGame
				return
			}
			r.finishWithoutGame()
			return
		}
		if !r.g.IsPaused() {
			logger.Log.Warnf("Cannot step room %s while unpaused", r.ID)
			return
		}
		r.g.Step()
	})
	return err
}

// Cancel forces game-over regardless of state.
func (r *GameRoom) Cancel() {
	r.do(func() {
		if r.status == StatusOver {
			return
		}
		logger.Log.Infof("Cancelling room %s", r.ID)
		if r.g != nil {
			r.g.Stop()
			return
		}
		r.finishWithoutGame()
	})
}

// finishWithoutGame produces the result of a room that never played:
// unbound seats are scored as left, a sole bound player wins outright.
func (r *GameRoom) finishWithoutGame() {
	result := game.GameResult{IsRegular: false}
	var survivor *Slot
	for _, slot := range r.slots {
		score := game.PlayerScore{Cause: game.CauseLeft, Reason: "never joined"}
		if !slot.IsEmpty() {
			score = game.PlayerScore{Cause: game.CauseRegular}
			if survivor == nil {
				survivor = slot
			} else {
				survivor = nil
			}
		}
		result.Scores = append(result.Scores, game.PlayerResult{
			DisplayName: slot.Player.DisplayName,
			Team:        slot.Player.Team,
			Score:       score,
		})
	}
	if survivor != nil {
		team := survivor.Player.Team
		result.Winner = &team
	}
	r.OnGameOver(result)
}

// AddObserver subscribes a connection to room broadcasts without
// occupying a slot.
func (r *GameRoom) AddObserver(sess *session.Session) {
	r.do(func() {
		r.observers = append(r.observers, sess)
		sess.EnterRoom(r.ID)
		logger.Log.Infof("Session %s observes room %s", sess.GetID(), r.ID)
	})
}

// ControlTimeout toggles the timeout policy of a slot and its player.
func (r *GameRoom) ControlTimeout(slotIndex int, activate bool) error {
	var err error
	r.do(func() {
		if slotIndex < 0 || slotIndex >= len(r.slots) {
			err = fmt.Errorf("room %s has no slot %d", r.ID, slotIndex)
			return
		}
		slot := r.slots[slotIndex]
		slot.Descriptor.CanTimeout = activate
		slot.Player.CanTimeout = activate
	})
	return err
}

// OnDisconnect propagates a closed connection into the room. A player
// vanishing mid-game ends it; an observer is just dropped.
func (r *GameRoom) OnDisconnect(sess *session.Session) {
	r.post(func() {
		for i, obs := range r.observers {
			if obs == sess {
				r.observers = append(r.observers[:i], r.observers[i+1:]...)
				break
			}
		}
		for _, slot := range r.slots {
			if slot.Session != sess {
				continue
			}
			slot.Session = nil
			sess.LeaveRoom(r.ID)
			if r.g != nil && r.status == StatusActive {
				r.g.PlayerLeft(slot.Player)
			}
			return
		}
	})
}

// --- game.Host ---

// Welcome and RequestMove run inside the room's loop, called back from
// the game engine.

func (r *GameRoom) Welcome(p *game.Player) {
	if sess := r.sessionFor(p); sess != nil {
		sess.SendPacket(network.MsgTypeWelcome, &network.WelcomeMessage{RoomID: r.ID, Team: p.Team.String()})
	}
}

func (r *GameRoom) RequestMove(p *game.Player) {
	if sess := r.sessionFor(p); sess != nil {
		sess.SendPacket(network.MsgTypeMoveRequest, &network.MoveRequestMessage{RoomID: r.ID})
	}
}

func (r *GameRoom) sessionFor(p *game.Player) *session.Session {
	for _, slot := range r.slots {
		if slot.Player == p {
			return slot.Session
		}
	}
	return nil
}

// --- game.Listener ---

func (r *GameRoom) OnStateChanged(state game.State, observersOnly bool) {
	memento := &network.MementoMessage{
		RoomID: r.ID,
		Turn:   state.Turn(),
		State:  state.Snapshot(),
	}
	broadcast.ToSessions(r.observers, network.MsgTypeMemento, memento)
	if !observersOnly {
		broadcast.ToSessions(r.boundSessions(), network.MsgTypeMemento, memento)
	}
}

func (r *GameRoom) OnGameOver(result game.GameResult) {
	r.setStatus(StatusOver)

	msg := &network.GameResultMessage{
		RoomID:    r.ID,
		IsRegular: result.IsRegular,
	}
	if result.Winner != nil {
		winner := result.Winner.String()
		msg.Winner = &winner
	}
	for _, score := range result.Scores {
		msg.Scores = append(msg.Scores, network.PlayerScoreInfo{
			DisplayName: score.DisplayName,
			Team:        score.Team.String(),
			Cause:       string(score.Score.Cause),
			Reason:      score.Score.Reason,
			Parts:       score.Score.Parts,
		})
	}
	r.broadcastAll(network.MsgTypeGameResult, msg)
	r.broadcastAll(network.MsgTypeRemovedFromGame, &network.RemovedFromGameMessage{RoomID: r.ID})

	for _, sess := range append(r.boundSessions(), r.observers...) {
		sess.LeaveRoom(r.ID)
	}

	logger.Log.Infof("Room %s is over, winner: %v", r.ID, msg.Winner)
	if r.onOver != nil {
		r.onOver(r, result)
	}
	r.close()
}

func (r *GameRoom) broadcastAll(msgID uint16, v interface{}) {
	broadcast.ToSessions(r.boundSessions(), msgID, v)
	broadcast.ToSessions(r.observers, msgID, v)
}
