// room/slot.go
package room

import (
	"fmt"

	"github.com/wfunc/matchserver/game"
	"github.com/wfunc/matchserver/session"
)

// SlotDescriptor is the immutable template for a seat, supplied at
// room-preparation time.
type SlotDescriptor struct {
	DisplayName string
	CanTimeout  bool
	Reserved    bool
}

// DefaultDescriptors builds the symmetric seats used by joinOrCreateGame.
func DefaultDescriptors(count int) []SlotDescriptor {
	descriptors := make([]SlotDescriptor, count)
	for i := range descriptors {
		descriptors[i] = SlotDescriptor{
			DisplayName: fmt.Sprintf("Player %d", i+1),
			CanTimeout:  true,
		}
	}
	return descriptors
}

// Slot is a seat in a room. The Player exists from room creation on;
// the Session is bound when a connection joins or redeems a reservation.
type Slot struct {
	Index      int
	Descriptor SlotDescriptor
	Player     *game.Player
	Session    *session.Session
}

func newSlot(index int, descriptor SlotDescriptor) *Slot {
	return &Slot{
		Index:      index,
		Descriptor: descriptor,
		Player:     game.NewPlayer(game.Team(index), descriptor.DisplayName, descriptor.CanTimeout),
	}
}

// IsEmpty reports whether no connection is bound yet.
func (s *Slot) IsEmpty() bool {
	return s.Session == nil
}

// IsFree reports whether the slot can be taken by a plain join request.
// Reserved seats are only fillable through their reservation code.
func (s *Slot) IsFree() bool {
	return s.IsEmpty() && !s.Descriptor.Reserved
}

func (s *Slot) IsReserved() bool {
	return s.Descriptor.Reserved
}

func (s *Slot) bind(sess *session.Session) {
	s.Session = sess
}
