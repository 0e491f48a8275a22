package server

import (
	"encoding/json"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/matchserver/config"
	"github.com/wfunc/matchserver/game"
	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/persistence"
	"github.com/wfunc/matchserver/plugins/tictactoe"
	"github.com/wfunc/matchserver/room"
	"github.com/wfunc/matchserver/services"
	"github.com/wfunc/matchserver/session"
	"github.com/wfunc/matchserver/timer"
)

type mockConnection struct {
	mu      sync.Mutex
	packets []network.Packet
}

func (c *mockConnection) Send(msgID uint16, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, network.Packet{MsgID: msgID, Data: data, Length: uint16(len(data))})
	return nil
}

func (c *mockConnection) SendPacket(msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Send(msgID, data)
}

func (c *mockConnection) Close() error { return nil }

func (c *mockConnection) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)}
}

func (c *mockConnection) SetHeartbeat(interval time.Duration) {}

func (c *mockConnection) ReadPacket() (*network.Packet, error) { return nil, io.EOF }

func (c *mockConnection) count(msgID uint16) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, p := range c.packets {
		if p.MsgID == msgID {
			n++
		}
	}
	return n
}

func (c *mockConnection) last(t *testing.T, msgID uint16, v interface{}) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.packets) - 1; i >= 0; i-- {
		if c.packets[i].MsgID == msgID {
			if err := json.Unmarshal(c.packets[i].Data, v); err != nil {
				t.Fatalf("Failed to unmarshal packet %d: %v", msgID, err)
			}
			return
		}
	}
	t.Fatalf("No packet with ID %d was sent", msgID)
}

func newTestLobby(t *testing.T) *Lobby {
	t.Helper()
	tictactoe.Register()

	timers := timer.NewTimerManagerWithTick(time.Millisecond)
	t.Cleanup(timers.Stop)

	gameCfg := game.Config{SoftTimeout: time.Hour, HardTimeout: 2 * time.Hour, RoundLimit: 100}
	roomManager := room.NewManager(timers, gameCfg)
	scoreService := services.NewScoreService(persistence.NewMemory())
	roomManager.SetRecorder(scoreService)

	l := NewLobby(config.ServerConfig{
		RPCAddress:    "127.0.0.1:0",
		AdminPassword: "secret",
	}, roomManager, scoreService, nil)
	t.Cleanup(l.Shutdown)
	return l
}

func packetFor(t *testing.T, msgID uint16, v interface{}) *network.Packet {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	return &network.Packet{MsgID: msgID, Data: data, Length: uint16(len(data))}
}

func newLobbySession(l *Lobby, id string) (*session.Session, *mockConnection) {
	conn := &mockConnection{}
	sess := session.NewSession(id, conn)
	l.Sessions().Add(sess)
	return sess, conn
}

func TestLobby_AdminGateRejectsUnauthenticated(t *testing.T) {
	l := newTestLobby(t)
	sess, conn := newLobbySession(l, "s1")

	l.HandlePacket(sess, packetFor(t, network.MsgTypePrepareGame, &network.PrepareGameRequest{GameType: tictactoe.Name}))

	if conn.count(network.MsgTypeError) != 1 {
		t.Fatal("An unauthenticated admin request must be answered with an error")
	}
	if conn.count(network.MsgTypeGamePrepared) != 0 {
		t.Error("The request must not be executed")
	}
	if l.roomManager.Count() != 0 {
		t.Errorf("No room should exist, got %d", l.roomManager.Count())
	}
}

func TestLobby_AuthenticateThenPrepare(t *testing.T) {
	l := newTestLobby(t)
	sess, conn := newLobbySession(l, "s1")

	l.HandlePacket(sess, packetFor(t, network.MsgTypeAuthenticate, &network.AuthenticateRequest{Password: "wrong"}))
	if conn.count(network.MsgTypeError) != 1 {
		t.Fatal("A wrong password must be answered with an error")
	}

	l.HandlePacket(sess, packetFor(t, network.MsgTypeAuthenticate, &network.AuthenticateRequest{Password: "secret"}))
	if !sess.IsAdministrator() {
		t.Fatal("The session should be an administrator")
	}

	l.HandlePacket(sess, packetFor(t, network.MsgTypePrepareGame, &network.PrepareGameRequest{
		GameType: tictactoe.Name,
		SlotDescriptors: []network.SlotDescriptor{
			{DisplayName: "host", Reserved: true},
			{DisplayName: "guest"},
		},
	}))

	var prepared network.GamePreparedResponse
	conn.last(t, network.MsgTypeGamePrepared, &prepared)
	if len(prepared.Reservations) != 1 {
		t.Errorf("Expected one reservation code, got %d", len(prepared.Reservations))
	}
	if _, err := l.roomManager.FindRoom(prepared.RoomID); err != nil {
		t.Errorf("The prepared room should exist: %v", err)
	}
}

func TestLobby_JoinRoomNotifiesAdministrators(t *testing.T) {
	l := newTestLobby(t)
	admin, adminConn := newLobbySession(l, "admin")
	l.HandlePacket(admin, packetFor(t, network.MsgTypeAuthenticate, &network.AuthenticateRequest{Password: "secret"}))

	player, playerConn := newLobbySession(l, "player")
	l.HandlePacket(player, packetFor(t, network.MsgTypeJoinRoom, &network.JoinRoomRequest{GameType: tictactoe.Name}))

	if playerConn.count(network.MsgTypeError) != 0 {
		t.Fatal("The join must succeed")
	}
	if l.roomManager.Count() != 1 {
		t.Fatalf("Expected one room, got %d", l.roomManager.Count())
	}

	var notice network.RoomJoinedNotice
	adminConn.last(t, network.MsgTypeRoomJoined, &notice)
	if !notice.Created || notice.GameType != tictactoe.Name {
		t.Errorf("Unexpected admin notice: %+v", notice)
	}
}

func TestLobby_UnknownGameTypeReportsError(t *testing.T) {
	l := newTestLobby(t)
	sess, conn := newLobbySession(l, "s1")

	l.HandlePacket(sess, packetFor(t, network.MsgTypeJoinRoom, &network.JoinRoomRequest{GameType: "no-such-game"}))

	var errPacket network.ErrorPacket
	conn.last(t, network.MsgTypeError, &errPacket)
	if errPacket.Message == "" {
		t.Error("The error packet should carry a message")
	}
}

func TestLobby_MalformedPayloadReportsError(t *testing.T) {
	l := newTestLobby(t)
	sess, conn := newLobbySession(l, "s1")

	l.HandlePacket(sess, &network.Packet{MsgID: network.MsgTypeJoinRoom, Data: []byte("not json")})

	if conn.count(network.MsgTypeError) != 1 {
		t.Fatal("A malformed payload must be answered with an error, not a dropped connection")
	}

	// the session is still usable afterwards
	l.HandlePacket(sess, packetFor(t, network.MsgTypeJoinRoom, &network.JoinRoomRequest{GameType: tictactoe.Name}))
	if l.roomManager.Count() != 1 {
		t.Errorf("Expected the follow-up join to succeed, rooms: %d", l.roomManager.Count())
	}
}

func TestLobby_PlayerScoreRoundTrip(t *testing.T) {
	l := newTestLobby(t)
	winner := game.TeamOne
	l.scoreService.RecordResult("r1", tictactoe.Name, game.GameResult{
		Winner:    &winner,
		IsRegular: true,
		Scores: []game.PlayerResult{
			{DisplayName: "alice", Team: game.TeamOne, Score: game.PlayerScore{Cause: game.CauseRegular, Parts: []int{2}}},
		},
	})

	sess, conn := newLobbySession(l, "admin")
	l.HandlePacket(sess, packetFor(t, network.MsgTypeAuthenticate, &network.AuthenticateRequest{Password: "secret"}))
	l.HandlePacket(sess, packetFor(t, network.MsgTypePlayerScore, &network.PlayerScoreRequest{DisplayName: "alice"}))

	if conn.count(network.MsgTypeScoreResponse) != 1 {
		t.Fatal("Expected a score response")
	}
}
