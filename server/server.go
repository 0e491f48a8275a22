// server/server.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/matchserver/broadcast"
	"github.com/wfunc/matchserver/config"
	"github.com/wfunc/matchserver/logger"
	"github.com/wfunc/matchserver/monitor"
	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/room"
	matchserver_rpc "github.com/wfunc/matchserver/rpc"
	"github.com/wfunc/matchserver/services"
	"github.com/wfunc/matchserver/session"
)

var errUnauthenticated = errors.New("administrative request requires authentication")

// Lobby accepts connections and routes every inbound packet to the room
// manager, a specific room, or the reservation manager.
type Lobby struct {
	cfg            config.ServerConfig
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	scoreService   *services.ScoreService
	admins         *broadcast.AdminBroadcaster
	monitor        *monitor.Monitor
	rpcServer      *matchserver_rpc.Server
	shutdownChan   chan struct{}
}

func NewLobby(cfg config.ServerConfig, roomManager *room.Manager, scoreService *services.ScoreService, mon *monitor.Monitor) *Lobby {
	l := &Lobby{
		cfg:            cfg,
		roomManager:    roomManager,
		sessionManager: session.NewManager(),
		scoreService:   scoreService,
		monitor:        mon,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}
	l.admins = broadcast.NewAdminBroadcaster(l.sessionManager)

	rpcServer, err := matchserver_rpc.NewServer(cfg.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	l.rpcServer = rpcServer
	rpc.Register(matchserver_rpc.NewScoreQuery(scoreService))

	return l
}

func (l *Lobby) Sessions() *session.Manager {
	return l.sessionManager
}

func (l *Lobby) Start() error {
	go l.rpcServer.Start()

	http.HandleFunc("/ws", l.handleWebSocket)
	logger.Log.Infof("Lobby listening on %s", l.cfg.HTTPAddress)
	return http.ListenAndServe(l.cfg.HTTPAddress, nil)
}

func (l *Lobby) Shutdown() {
	close(l.shutdownChan)
	l.rpcServer.Stop()
}

func (l *Lobby) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	l.handleConnection(network.NewWSConnection(conn))
}

func (l *Lobby) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	l.sessionManager.Add(sess)
	if l.monitor != nil {
		l.monitor.IncConnectedClients()
	}

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		l.sessionManager.Remove(sess.GetID())
		if l.monitor != nil {
			l.monitor.DecConnectedClients()
		}
		l.propagateDisconnect(sess)
		conn.Close()
	}()

	for {
		select {
		case <-l.shutdownChan:
			return
		default:
			packet, err := conn.ReadPacket()
			if err != nil {
				return
			}
			l.HandlePacket(sess, packet)
		}
	}
}

// propagateDisconnect makes sure every room the session belongs to sees
// the peer leave.
func (l *Lobby) propagateDisconnect(sess *session.Session) {
	for _, roomID := range sess.Rooms() {
		if r, err := l.roomManager.FindRoom(roomID); err == nil {
			r.OnDisconnect(sess)
		}
	}
	l.updateRoomGauge()
}

// HandlePacket routes one inbound packet. Malformed payloads and client
// errors are reported back with an ErrorPacket; the connection survives.
func (l *Lobby) HandlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	if err := l.route(sess, packet); err != nil {
		logger.Log.Warnf("Request %d from session %s failed: %v", packet.MsgID, sess.GetID(), err)
		sess.SendPacket(network.MsgTypeError, &network.ErrorPacket{
			OriginalPacket: packet.Data,
			Message:        err.Error(),
		})
	}
	if l.monitor != nil {
		l.monitor.ObserveMoveLatency(time.Since(start))
	}
}

func (l *Lobby) route(sess *session.Session, packet *network.Packet) error {
	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
		return nil

	case network.MsgTypeAuthenticate:
		var req network.AuthenticateRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		if !sess.Authenticate(req.Password, l.cfg.AdminPassword) {
			return errors.New("authentication failed")
		}
		logger.Log.Infof("Session %s authenticated as administrator", sess.GetID())
		return nil

	case network.MsgTypeJoinRoom:
		var req network.JoinRoomRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		notice, err := l.roomManager.JoinOrCreateGame(sess, req.GameType)
		if err != nil {
			return err
		}
		l.admins.BroadcastToAdmins(network.MsgTypeRoomJoined, notice)
		l.updateRoomGauge()
		return nil

	case network.MsgTypeJoinPreparedRoom:
		var req network.JoinPreparedRoomRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		_, err := l.roomManager.Reservations().RedeemReservationCode(sess, req.ReservationCode)
		return err

	case network.MsgTypeRoomEvent:
		var req network.RoomPacket
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		r, err := l.roomManager.FindRoom(req.RoomID)
		if err != nil {
			return err
		}
		if l.monitor != nil {
			l.monitor.IncMovesProcessed()
		}
		err = r.OnEvent(sess, req.Data)
		l.updateRoomGauge()
		return err

	case network.MsgTypePrepareGame, network.MsgTypeFreeReservation, network.MsgTypeControlTimeout,
		network.MsgTypeObserve, network.MsgTypePauseGame, network.MsgTypeStep,
		network.MsgTypeCancel, network.MsgTypePlayerScore:
		if !sess.IsAdministrator() {
			return errUnauthenticated
		}
		return l.routeAdmin(sess, packet)

	default:
		return errors.New("unhandled packet type")
	}
}

func (l *Lobby) routeAdmin(sess *session.Session, packet *network.Packet) error {
	switch packet.MsgID {
	case network.MsgTypePrepareGame:
		var req network.PrepareGameRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		response, err := l.roomManager.PrepareGame(&req)
		if err != nil {
			return err
		}
		l.updateRoomGauge()
		return sess.SendPacket(network.MsgTypeGamePrepared, response)

	case network.MsgTypeFreeReservation:
		var req network.FreeReservationRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		return l.roomManager.Reservations().FreeReservation(req.Reservation)

	case network.MsgTypeControlTimeout:
		var req network.ControlTimeoutRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		r, err := l.roomManager.FindRoom(req.RoomID)
		if err != nil {
			return err
		}
		return r.ControlTimeout(req.Slot, req.Activate)

	case network.MsgTypeObserve:
		var req network.ObservationRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		r, err := l.roomManager.FindRoom(req.RoomID)
		if err != nil {
			return err
		}
		r.AddObserver(sess)
		return sess.SendPacket(network.MsgTypeObservation, &network.ObservationResponse{RoomID: req.RoomID})

	case network.MsgTypePauseGame:
		var req network.PauseGameRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		r, err := l.roomManager.FindRoom(req.RoomID)
		if err != nil {
			return err
		}
		r.Pause(req.Pause)
		return nil

	case network.MsgTypeStep:
		var req network.StepRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		r, err := l.roomManager.FindRoom(req.RoomID)
		if err != nil {
			return err
		}
		err = r.Step(req.Forced)
		l.updateRoomGauge()
		return err

	case network.MsgTypeCancel:
		var req network.CancelRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		r, err := l.roomManager.FindRoom(req.RoomID)
		if err != nil {
			return err
		}
		r.Cancel()
		l.updateRoomGauge()
		return nil

	case network.MsgTypePlayerScore:
		var req network.PlayerScoreRequest
		if err := json.Unmarshal(packet.Data, &req); err != nil {
			return err
		}
		score, err := l.scoreService.PlayerScore(req.DisplayName)
		if err != nil {
			return err
		}
		return sess.SendPacket(network.MsgTypeScoreResponse, score)
	}
	return errors.New("unhandled admin packet type")
}

func (l *Lobby) updateRoomGauge() {
	if l.monitor != nil {
		l.monitor.SetActiveRooms(l.roomManager.Count())
	}
}
