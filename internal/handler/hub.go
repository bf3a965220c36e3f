package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"roleplay-server/internal/game"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client - одно WebSocket соединение. Клиент находится не более чем в одной комнате.
type Client struct {
	ID     string
	Conn   *websocket.Conn
	send   chan []byte
	gameID string
}

type joinRequest struct {
	client *Client
	gameID string
}

// Hub раздает события игр подключенным клиентам по комнатам.
type Hub struct {
	clients    map[*Client]struct{}
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

var _ game.Broadcaster = (*Hub)(nil)

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		done:       make(chan struct{}),
		logger:     logger.Named("Hub"),
	}
}

// Run обрабатывает регистрацию и переходы между комнатами до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Hub started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("Hub stopped")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			h.addLocked(client, client.gameID)
			h.mu.Unlock()
			h.logger.Debug("Client registered", zap.String("clientID", client.ID), zap.String("gameID", client.gameID))

		case req := <-h.join:
			h.mu.Lock()
			h.removeLocked(req.client)
			h.addLocked(req.client, req.gameID)
			h.mu.Unlock()
			h.logger.Debug("Client joined game", zap.String("clientID", req.client.ID), zap.String("gameID", req.gameID))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client)
			h.removeLocked(client)
			if client.send != nil {
				close(client.send)
				client.send = nil
			}
			h.mu.Unlock()
			h.logger.Debug("Client unregistered", zap.String("clientID", client.ID))
		}
	}
}

func (h *Hub) addLocked(client *Client, gameID string) {
	client.gameID = gameID
	if gameID == "" {
		return
	}
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[gameID] = room
	}
	room[client] = struct{}{}
}

func (h *Hub) removeLocked(client *Client) bool {
	room, ok := h.rooms[client.gameID]
	if !ok {
		return false
	}
	if _, ok := room[client]; !ok {
		return false
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.gameID)
	}
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if client.send != nil {
			close(client.send)
			client.send = nil
		}
		delete(h.clients, client)
	}
	h.rooms = make(map[string]map[*Client]struct{})
}

// После остановки Run вызовы Register, Join и Unregister ничего не делают.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join переводит клиента в комнату игры.
func (h *Hub) Join(client *Client, gameID string) {
	select {
	case h.join <- joinRequest{client: client, gameID: gameID}:
	case <-h.done:
	}
}

// Broadcast кодирует событие и рассылает его комнате.
func (h *Hub) Broadcast(_ context.Context, gameID string, event game.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Type, err)
	}
	h.Deliver(gameID, data)
	return nil
}

// Deliver отправляет готовое сообщение всем клиентам комнаты и возвращает число получателей.
// Клиенты с переполненной очередью пропускаются.
func (h *Hub) Deliver(gameID string, payload []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.rooms[gameID] {
		if client.send == nil {
			continue
		}
		select {
		case client.send <- payload:
			delivered++
		default:
			h.logger.Warn("Client send queue is full, dropping message",
				zap.String("clientID", client.ID),
				zap.String("gameID", gameID),
			)
		}
	}
	return delivered
}

// RoomSize возвращает число клиентов в комнате.
func (h *Hub) RoomSize(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}
