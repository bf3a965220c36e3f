package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendQueueSize  = 256

	actionJoinGame = "join-game"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// клиент отдается тем же сервером или через прокси с открытым CORS
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientAction - сообщение клиента по WebSocket.
type clientAction struct {
	Action string `json:"action"`
	GameID string `json:"gameId"`
}

// serveWS открывает WebSocket. Комнату можно указать сразу (?game=<id>)
// или позже действием join-game.
func (h *RoleplayHandler) serveWS(c *gin.Context) {
	gameID := c.Query("game")
	if gameID != "" {
		if _, err := h.backend.GetGame(c.Request.Context(), gameID); err != nil {
			h.handleServiceError(c, err)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.String("gameID", gameID), zap.Error(err))
		return
	}

	client := &Client{
		ID:     uuid.NewString(),
		Conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		gameID: gameID,
	}
	log := h.logger.With(zap.String("clientID", client.ID))
	log.Info("WebSocket connection established", zap.String("gameID", gameID))

	send := client.send
	h.hub.Register(client)

	go client.writePump(send, log)
	go client.readPump(h, log)
}

// readPump читает действия клиента до закрытия соединения.
func (c *Client) readPump(h *RoleplayHandler, log *zap.Logger) {
	defer func() {
		h.hub.Unregister(c)
		_ = c.Conn.Close()
		log.Debug("readPump finished")
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("WebSocket read error", zap.Error(err))
			} else {
				log.Info("WebSocket connection closed")
			}
			return
		}

		var action clientAction
		if err := json.Unmarshal(message, &action); err != nil {
			log.Warn("Received malformed message from client (ignored)", zap.Error(err))
			continue
		}
		switch action.Action {
		case actionJoinGame:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			_, err := h.backend.GetGame(ctx, action.GameID)
			cancel()
			if err != nil {
				log.Warn("Client tried to join unknown game", zap.String("gameID", action.GameID), zap.Error(err))
				continue
			}
			h.hub.Join(c, action.GameID)
			log.Info("Client joined game", zap.String("gameID", action.GameID))
		default:
			log.Warn("Received unknown action from client (ignored)", zap.String("action", action.Action))
		}
	}
}

// writePump отправляет клиенту сообщения из очереди и пинги.
func (c *Client) writePump(send <-chan []byte, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		log.Debug("writePump finished")
	}()
	for {
		select {
		case message, ok := <-send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
