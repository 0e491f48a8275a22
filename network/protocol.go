// network/protocol.go
package network

import "encoding/json"

const (
	MsgTypeHeartbeat    = 1
	MsgTypeAuthenticate = 2
	MsgTypeError        = 3

	MsgTypeJoinRoom         = 101
	MsgTypeJoinPreparedRoom = 102
	MsgTypePrepareGame      = 103
	MsgTypeGamePrepared     = 104
	MsgTypeFreeReservation  = 105
	MsgTypeRoomJoined       = 106

	MsgTypeRoomEvent   = 201
	MsgTypeMoveRequest = 202
	MsgTypeWelcome     = 203

	MsgTypeMemento         = 301
	MsgTypeGamePaused      = 302
	MsgTypeGameResult      = 303
	MsgTypeRemovedFromGame = 304

	MsgTypePauseGame      = 401
	MsgTypeStep           = 402
	MsgTypeCancel         = 403
	MsgTypeControlTimeout = 404
	MsgTypeObserve        = 405
	MsgTypeObservation    = 406
	MsgTypePlayerScore    = 407
	MsgTypeScoreResponse  = 408
)

// --- client requests ---

type AuthenticateRequest struct {
	Password string `json:"password"`
}

type JoinRoomRequest struct {
	GameType string `json:"game_type"`
}

type JoinPreparedRoomRequest struct {
	ReservationCode string `json:"reservation_code"`
}

// SlotDescriptor is the seat template supplied with PrepareGameRequest.
type SlotDescriptor struct {
	DisplayName string `json:"display_name"`
	CanTimeout  bool   `json:"can_timeout"`
	Reserved    bool   `json:"reserved"`
}

type PrepareGameRequest struct {
	GameType        string           `json:"game_type"`
	SlotDescriptors []SlotDescriptor `json:"slot_descriptors,omitempty"`
	Pause           bool             `json:"pause"`
}

type FreeReservationRequest struct {
	Reservation string `json:"reservation"`
}

// RoomPacket carries a room-scoped payload, e.g. a move.
type RoomPacket struct {
	RoomID string          `json:"room_id"`
	Data   json.RawMessage `json:"data"`
}

type PauseGameRequest struct {
	RoomID string `json:"room_id"`
	Pause  bool   `json:"pause"`
}

type StepRequest struct {
	RoomID string `json:"room_id"`
	Forced bool   `json:"forced"`
}

type CancelRequest struct {
	RoomID string `json:"room_id"`
}

type ControlTimeoutRequest struct {
	RoomID   string `json:"room_id"`
	Slot     int    `json:"slot"`
	Activate bool   `json:"activate"`
}

type ObservationRequest struct {
	RoomID string `json:"room_id"`
}

type PlayerScoreRequest struct {
	DisplayName string `json:"display_name"`
}

// --- server responses and broadcasts ---

type ErrorPacket struct {
	OriginalPacket json.RawMessage `json:"original_packet,omitempty"`
	Message        string          `json:"message"`
}

type GamePreparedResponse struct {
	RoomID       string   `json:"room_id"`
	Reservations []string `json:"reservations"`
}

// RoomJoinedNotice is broadcast to administrators when a player joins.
type RoomJoinedNotice struct {
	RoomID   string `json:"room_id"`
	GameType string `json:"game_type"`
	Created  bool   `json:"created"`
}

type ObservationResponse struct {
	RoomID string `json:"room_id"`
}

type MoveRequestMessage struct {
	RoomID string `json:"room_id"`
}

type WelcomeMessage struct {
	RoomID string `json:"room_id"`
	Team   string `json:"team"`
}

// MementoMessage carries a snapshot of the current game state.
type MementoMessage struct {
	RoomID string      `json:"room_id"`
	Turn   int         `json:"turn"`
	State  interface{} `json:"state"`
}

type GamePausedMessage struct {
	RoomID string `json:"room_id"`
	Paused bool   `json:"paused"`
}

type RemovedFromGameMessage struct {
	RoomID string `json:"room_id"`
}

type PlayerScoreInfo struct {
	DisplayName string `json:"display_name"`
	Team        string `json:"team"`
	Cause       string `json:"cause"`
	Reason      string `json:"reason,omitempty"`
	Parts       []int  `json:"parts"`
}

type GameResultMessage struct {
	RoomID    string            `json:"room_id"`
	Winner    *string           `json:"winner"`
	IsRegular bool              `json:"is_regular"`
	Scores    []PlayerScoreInfo `json:"scores"`
}
