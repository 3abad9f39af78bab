package game

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type WebsocketConnection struct {
	socket *websocket.Conn
}

func (wc *WebsocketConnection) Write(data []byte) error {
	return wc.socket.WriteMessage(websocket.TextMessage, data)
}

func (wc *WebsocketConnection) Ping() error {
	return wc.socket.WriteMessage(websocket.PingMessage, nil)
}

func (wc *WebsocketConnection) Read() ([]byte, error) {
	_, p, err := wc.socket.ReadMessage()
	return p, err
}

func (wc *WebsocketConnection) Close(reason string) {
	wc.socket.SetWriteDeadline(time.Now().Add(time.Second * 20))
	wc.socket.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
	wc.socket.Close()
}

func NewWebsocketConnection(conn *websocket.Conn) WebsocketConnection {
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(time.Minute))
		return nil
	})
	return WebsocketConnection{conn}
}

// clientMessage is what players send over the socket.
type clientMessage struct {
	Action   string `json:"action"`
	Response string `json:"response,omitempty"`
	Vote     string `json:"vote,omitempty"`
}

const (
	actionSubmitResponse  = "submit_response"
	actionSubmitVote      = "submit_vote"
	actionRequestNewRound = "request_new_round"
	actionLeaveRoom       = "leave_room"
)

type client struct {
	playerId string
	username string
	roomId   string

	socket      WebsocketConnection
	rateLimiter rate.Limiter
	outbox      chan []byte
	pingChan    chan struct{}
}

func newClient(playerId, username, roomId string, socket WebsocketConnection) *client {
	return &client{
		playerId:    playerId,
		username:    username,
		roomId:      roomId,
		socket:      socket,
		rateLimiter: *rate.NewLimiter(1, 5),
		outbox:      make(chan []byte, 256),
		pingChan:    make(chan struct{}),
	}
}

// send queues a message for the write pump, dropping it when the
// client can't keep up.
func (c *client) send(data []byte) {
	select {
	case c.outbox <- data:
	default:
		log.Warn().Str("module", "game").Str("player", c.playerId).Msg("outbox full, dropping message")
	}
}

// readPump decodes client messages and hands them to the dispatcher
// until the socket dies. Messages past the rate limit are dropped.
func (c *client) readPump(dispatch func(*client, clientMessage)) {
	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}
		if !c.rateLimiter.Allow() {
			continue
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		dispatch(c, msg)
		if msg.Action == actionLeaveRoom {
			return
		}
	}
}

func (c *client) writePump() {
loop:
	for {
		select {
		case data, ok := <-c.outbox:
			if !ok {
				break loop
			}
			if err := c.socket.Write(data); err != nil {
				break loop
			}
		case _, ok := <-c.pingChan:
			if !ok {
				break loop
			}
			if err := c.socket.Ping(); err != nil {
				break loop
			}
		}
	}
}
