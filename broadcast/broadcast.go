// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/session"
)

// ToSessions fans a packet out to every recipient. Delivery is
// fire-and-forget per listener: a failing recipient is logged and must
// never abort delivery to the rest.
func ToSessions(sessions []*session.Session, msgID uint16, v interface{}) {
	for _, s := range sessions {
		if err := s.SendPacket(msgID, v); err != nil {
			logger.Log.Warnf("Broadcast to session %s failed: %v", s.GetID(), err)
			continue
		}
	}
}

// AdminBroadcaster delivers lobby-level notices to every authenticated
// administrator session.
type AdminBroadcaster struct {
	sessions *session.Manager
}

func NewAdminBroadcaster(sessions *session.Manager) *AdminBroadcaster {
	return &AdminBroadcaster{sessions: sessions}
}

func (b *AdminBroadcaster) BroadcastToAdmins(msgID uint16, v interface{}) {
	ToSessions(b.sessions.Administrators(), msgID, v)
}
