// room/manager.go
package room

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/wfunc/matchserver/game"
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/session"
	"github.com/wfunc/matchserver/timer"
)

var ErrRoomNotFound = errors.New("room not found")

// ScoreRecorder receives every final result for aggregation. Optional.
type ScoreRecorder interface {
	RecordResult(roomID, gameType string, result game.GameResult)
}

// Manager matches incoming join requests to open rooms or creates new
// ones, and tracks every room until it reaches OVER.
type Manager struct {
	rooms        map[string]*GameRoom
	mutex        sync.RWMutex
	reservations *ReservationManager
	timers       *timer.TimerManager
	gameCfg      game.Config
	recorder     ScoreRecorder
}

func NewManager(timers *timer.TimerManager, gameCfg game.Config) *Manager {
	return &Manager{
		rooms:        make(map[string]*GameRoom),
		reservations: NewReservationManager(),
		timers:       timers,
		gameCfg:      gameCfg,
	}
}

func (m *Manager) SetRecorder(recorder ScoreRecorder) {
	m.recorder = recorder
}

func (m *Manager) Reservations() *ReservationManager {
	return m.reservations
}

func (m *Manager) FindRoom(id string) (*GameRoom, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// JoinOrCreateGame places the connection into an open room of the
// requested type, creating one with default slots if none has a free,
// unreserved seat. The returned notice is broadcast to administrators.
func (m *Manager) JoinOrCreateGame(sess *session.Session, gameType string) (*network.RoomJoinedNotice, error) {
	if room := m.findOpenRoom(gameType); room != nil {
		if err := room.Join(sess); err == nil {
			return &network.RoomJoinedNotice{RoomID: room.ID, GameType: gameType, Created: false}, nil
		}
		// Lost the race for the last slot, fall through and open a new room.
	}

	gt, err := game.LookupType(gameType)
	if err != nil {
		return nil, err
	}
	room := m.createRoom(gameType, DefaultDescriptors(gt.PlayerCount), gt.Factory(), false)
	if err := room.Join(sess); err != nil {
		return nil, err
	}
	return &network.RoomJoinedNotice{RoomID: room.ID, GameType: gameType, Created: true}, nil
}

func (m *Manager) findOpenRoom(gameType string) *GameRoom {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, room := range m.rooms {
		if room.GameType != gameType || room.Status() != StatusOpen {
			continue
		}
		for _, slot := range room.Slots() {
			if slot.IsFree() {
				return room
			}
		}
	}
	return nil
}

// PrepareGame creates a room from explicit slot descriptors and issues
// one reservation per reserved seat. The room does not start until every
// reserved slot is redeemed and every open slot is filled.
func (m *Manager) PrepareGame(req *network.PrepareGameRequest) (*network.GamePreparedResponse, error) {
	gt, err := game.LookupType(req.GameType)
	if err != nil {
		return nil, err
	}

	descriptors := make([]SlotDescriptor, 0, gt.PlayerCount)
	for _, d := range req.SlotDescriptors {
		descriptors = append(descriptors, SlotDescriptor{
			DisplayName: d.DisplayName,
			CanTimeout:  d.CanTimeout,
			Reserved:    d.Reserved,
		})
	}
	if len(descriptors) == 0 {
		descriptors = DefaultDescriptors(gt.PlayerCount)
	}

	room := m.createRoom(req.GameType, descriptors, gt.Factory(), req.Pause)

	response := &network.GamePreparedResponse{RoomID: room.ID, Reservations: []string{}}
	for _, slot := range room.Slots() {
		if slot.IsReserved() {
			response.Reservations = append(response.Reservations, m.reservations.PrepareReservation(room, slot.Index))
		}
	}
	logger.Log.Infof("Prepared room %s (%s) with %d slots, %d reserved",
		room.ID, req.GameType, len(descriptors), len(response.Reservations))
	return response, nil
}

func (m *Manager) createRoom(gameType string, descriptors []SlotDescriptor, rules game.Rules, startPaused bool) *GameRoom {
	room := NewGameRoom(uuid.New().String(), gameType, descriptors, rules, m.timers, m.gameCfg, startPaused)
	room.onOver = m.roomOver

	m.mutex.Lock()
	m.rooms[room.ID] = room
	m.mutex.Unlock()
	return room
}

// roomOver runs on the room's loop as its final act: record scores, drop
// outstanding reservations, deregister.
func (m *Manager) roomOver(room *GameRoom, result game.GameResult) {
	if m.recorder != nil {
		m.recorder.RecordResult(room.ID, room.GameType, result)
	}
	m.reservations.releaseRoom(room)

	m.mutex.Lock()
	delete(m.rooms, room.ID)
	m.mutex.Unlock()
}
