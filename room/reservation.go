// room/reservation.go
package room

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/session"
)

var ErrInvalidReservation = errors.New("invalid reservation code")

type reservation struct {
	room      *GameRoom
	slotIndex int
}

// ReservationManager issues single-use codes that pre-bind a future
// connection to a specific room slot.
type ReservationManager struct {
	mutex        sync.Mutex
	reservations map[string]*reservation
}

func NewReservationManager() *ReservationManager {
	return &ReservationManager{
		reservations: make(map[string]*reservation),
	}
}

// PrepareReservation records a (code -> slot) binding and returns the
// code. Codes come from crypto/rand, 16 bytes hex.
func (m *ReservationManager) PrepareReservation(room *GameRoom, slotIndex int) string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic("reservation code generation failed: " + err.Error())
	}
	code := hex.EncodeToString(buf)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reservations[code] = &reservation{room: room, slotIndex: slotIndex}
	return code
}

// RedeemReservationCode consumes a code exactly once and binds the
// connection to the reserved slot. A consumed or unknown code fails with
// ErrInvalidReservation.
func (m *ReservationManager) RedeemReservationCode(sess *session.Session, code string) (*GameRoom, error) {
	m.mutex.Lock()
	res, exists := m.reservations[code]
	if exists {
		delete(m.reservations, code)
	}
	m.mutex.Unlock()

	if !exists {
		return nil, ErrInvalidReservation
	}
	if err := res.room.BindReservedSlot(sess, res.slotIndex); err != nil {
		return nil, err
	}
	logger.Log.Infof("Reservation redeemed for room %s slot %d", res.room.ID, res.slotIndex)
	return res.room, nil
}

// FreeReservation releases a code without binding, opening the slot for
// plain joins.
func (m *ReservationManager) FreeReservation(code string) error {
	m.mutex.Lock()
	res, exists := m.reservations[code]
	if exists {
		delete(m.reservations, code)
	}
	m.mutex.Unlock()

	if !exists {
		return ErrInvalidReservation
	}
	res.room.ReleaseSlot(res.slotIndex)
	return nil
}

// releaseRoom drops every outstanding reservation of a closed room.
func (m *ReservationManager) releaseRoom(room *GameRoom) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for code, res := range m.reservations {
		if res.room == room {
			delete(m.reservations, code)
		}
	}
}
