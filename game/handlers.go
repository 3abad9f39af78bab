package game

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/skeehn/reverseturing/domain"
)

const (
	defaultRoomType = "poetry"
	pingInterval    = 30 * time.Second
)

type Handler struct {
	registry    *Registry
	hub         *Hub
	users       UserGetter
	leaderboard LeaderboardSource

	maxResponseLength int
}

func NewHandler(registry *Registry, hub *Hub, users UserGetter, leaderboard LeaderboardSource, maxResponseLength int) *Handler {
	return &Handler{
		registry:          registry,
		hub:               hub,
		users:             users,
		leaderboard:       leaderboard,
		maxResponseLength: maxResponseLength,
	}
}

// JoinRoomHandler upgrades the connection and attaches the player to
// the room, creating it on first join. Unauthenticated connections
// play as guests.
func (h *Handler) JoinRoomHandler(ctx *gin.Context) {
	roomId := ctx.Param("roomid")
	if roomId == "" {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing-room-id"})
		return
	}
	roomType := ctx.Query("room_type")
	if roomType == "" {
		roomType = defaultRoomType
	}

	playerId := ctx.GetString("id")
	var username string
	if playerId == "" {
		playerId = domain.GuestIdPrefix + uuid.NewString()[:8]
		username = "Guest-" + playerId[len(domain.GuestIdPrefix):]
	} else {
		user, err := h.users.GetUserById(ctx.Request.Context(), playerId)
		if err != nil {
			log.Error().Str("module", "game").Str("player", playerId).Err(err).Msg("failed to resolve username")
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
			return
		}
		username = user.Username
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Error().Str("module", "game").Err(err).Msg("websocket upgrade failed")
		return
	}
	socket := NewWebsocketConnection(conn)

	room := h.registry.GetOrCreate(roomId, roomType)
	added, err := room.AddPlayer(playerId, username)
	if err != nil {
		socket.Close(err.Error())
		h.registry.RemoveIfEmpty(roomId)
		return
	}

	c := newClient(playerId, username, roomId, socket)
	h.hub.register(roomId, c)

	go c.writePump()

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case c.pingChan <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()

	h.hub.EmitTo(c, EventConnected, ConnectedPayload{PlayerId: playerId, Username: username})
	if added {
		h.hub.Emit(roomId, EventPlayerJoined, PlayerJoinedPayload{
			PlayerId:    playerId,
			Username:    username,
			PlayerCount: room.PlayerCount(),
			RoomId:      roomId,
			RoomType:    room.RoomType(),
			Status:      room.Phase().String(),
			Players:     room.PlayerNames(),
		})
	}

	if room.ReadyToStart() {
		go func() {
			if err := room.StartRound(); err != nil {
				log.Error().Str("module", "game").Str("room", roomId).Err(err).Msg("failed to start round")
			}
		}()
	}

	c.readPump(h.dispatch)

	close(done)
	// Unregister before closing the outbox: unregister's write lock
	// waits out any Emit holding the read lock, so no send can land on
	// the closed channel.
	h.hub.unregister(roomId, c)
	close(c.outbox)
	if room.RemovePlayer(playerId) {
		h.hub.Emit(roomId, EventPlayerLeft, PlayerLeftPayload{
			PlayerId:    playerId,
			Username:    username,
			PlayerCount: room.PlayerCount(),
		})
	}
	h.registry.RemoveIfEmpty(roomId)
}

// dispatch routes one decoded client message to the room. Rejections
// go back to the sender only; acknowledgements go to the whole room.
func (h *Handler) dispatch(c *client, msg clientMessage) {
	room, ok := h.registry.Get(c.roomId)
	if !ok {
		return
	}

	switch msg.Action {
	case actionSubmitResponse:
		if len(msg.Response) > h.maxResponseLength {
			h.hub.EmitTo(c, EventError, ErrorPayload{Message: "response-too-long"})
			return
		}
		if err := room.SubmitHumanResponse(c.playerId, msg.Response); err != nil {
			h.hub.EmitTo(c, EventError, ErrorPayload{Message: err.Error()})
			return
		}
		h.hub.Emit(c.roomId, EventResponseSubmitted, SubmissionAckPayload{PlayerId: c.playerId, Status: "submitted"})

	case actionSubmitVote:
		if err := room.SubmitVote(c.playerId, Side(msg.Vote)); err != nil {
			h.hub.EmitTo(c, EventError, ErrorPayload{Message: err.Error()})
			return
		}
		h.hub.Emit(c.roomId, EventVoteSubmitted, SubmissionAckPayload{PlayerId: c.playerId, Status: "voted"})

	case actionRequestNewRound:
		if err := room.RequestNewRound(); err != nil {
			h.hub.EmitTo(c, EventError, ErrorPayload{Message: err.Error()})
		}

	case actionLeaveRoom:
		// readPump exits after dispatching this; cleanup happens there.

	default:
		h.hub.EmitTo(c, EventError, ErrorPayload{Message: "unknown-action"})
	}
}

// ListRoomsHandler serves the live room index.
func (h *Handler) ListRoomsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"rooms": h.registry.Snapshot()})
}

// LeaderboardHandler serves player rankings, optionally filtered by
// room type and period.
func (h *Handler) LeaderboardHandler(ctx *gin.Context) {
	roomType := ctx.Query("room_type")
	period := ctx.DefaultQuery("period", "all")
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 10
	}

	entries, err := h.leaderboard.Leaderboard(ctx.Request.Context(), roomType, period, limit)
	if err != nil {
		log.Error().Str("module", "game").Err(err).Msg("failed to load leaderboard")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
