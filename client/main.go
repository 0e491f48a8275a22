// A small test client: joins a tic-tac-toe room and answers every move
// request with a random free cell.
package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"net/url"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"github.com/wfunc/matchserver/network"
	"github.com/wfunc/matchserver/plugins/tictactoe"
)

func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, network.EncodeFrame(msgID, data))
}

func main() {
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	addr := "localhost:8080"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	if err := send(c, network.MsgTypeJoinRoom, &network.JoinRoomRequest{GameType: tictactoe.Name}); err != nil {
		log.Fatalf("Join failed: %v", err)
	}

	var board [3][3]int
	for x := range board {
		for y := range board[x] {
			board[x][y] = -1
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := c.ReadMessage()
			if err != nil {
				log.Printf("Read failed: %v", err)
				return
			}
			packet, err := network.DecodeFrame(data)
			if err != nil {
				log.Printf("Bad frame: %v", err)
				continue
			}

			switch packet.MsgID {
			case network.MsgTypeWelcome:
				var welcome network.WelcomeMessage
				json.Unmarshal(packet.Data, &welcome)
				log.Printf("Welcome to room %s as team %s", welcome.RoomID, welcome.Team)

			case network.MsgTypeMemento:
				var memento struct {
					RoomID string `json:"room_id"`
					State  struct {
						Board [3][3]int `json:"board"`
					} `json:"state"`
				}
				if err := json.Unmarshal(packet.Data, &memento); err == nil {
					board = memento.State.Board
				}

			case network.MsgTypeMoveRequest:
				var request network.MoveRequestMessage
				json.Unmarshal(packet.Data, &request)

				var free []tictactoe.Move
				for x := 0; x < 3; x++ {
					for y := 0; y < 3; y++ {
						if board[x][y] == -1 {
							free = append(free, tictactoe.Move{X: x, Y: y})
						}
					}
				}
				if len(free) == 0 {
					log.Printf("No free cell left, waiting for the result")
					continue
				}
				move := free[rand.Intn(len(free))]
				data, _ := json.Marshal(move)
				log.Printf("Playing (%d,%d)", move.X, move.Y)
				send(c, network.MsgTypeRoomEvent, &network.RoomPacket{RoomID: request.RoomID, Data: data})

			case network.MsgTypeGameResult:
				var result network.GameResultMessage
				json.Unmarshal(packet.Data, &result)
				winner := "nobody"
				if result.Winner != nil {
					winner = *result.Winner
				}
				log.Printf("Game over, winner: %s", winner)

			case network.MsgTypeError:
				var errPacket network.ErrorPacket
				json.Unmarshal(packet.Data, &errPacket)
				log.Printf("Server error: %s", errPacket.Message)
			}
		}
	}()

	select {
	case <-done:
	case <-interrupt:
		log.Println("Interrupted")
	}
}
