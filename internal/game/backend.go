package game

import (
	"context"

	"roleplay-server/internal/models"
	"roleplay-server/internal/worldstate"
)

// Backend - все, что транспорт может попросить у игрового сервера.
type Backend interface {
	SendTurn(ctx context.Context, gameID string, msg models.Message) (models.Message, error)
	RollDice(ctx context.Context, gameID string, sides, count, modifier int) (models.DiceRoll, error)
	ListPlayers(ctx context.Context, gameID string) ([]models.Player, error)
	GetHistory(ctx context.Context, gameID string) ([]models.Message, error)

	CreateGame(ctx context.Context, settings CampaignSettings) (models.Campaign, error)
	GetGame(ctx context.Context, gameID string) (models.Campaign, error)
	ListGames(ctx context.Context) []models.Campaign
	AddPlayer(ctx context.Context, gameID string, player models.Player) (models.Player, error)
	StartCampaign(ctx context.Context, gameID string, settings CampaignSettings) (models.Message, error)
	ResetGame(ctx context.Context, gameID string) error
	WorldState(ctx context.Context, gameID string) (WorldView, error)
}

// CampaignSettings - то, что клиент присылает при создании или перезапуске игры.
// Пустые поля заменяются значениями из языкового пакета.
type CampaignSettings struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
}

// WorldView - мир игры для клиента: готовая сводка и сырые данные.
type WorldView struct {
	Summary string          `json:"summary"`
	State   worldstate.Data `json:"state"`
}

type EventType string

const (
	EventNewMessage   EventType = "new-message"
	EventPlayerJoined EventType = "player-joined"
	EventWorldUpdated EventType = "world-updated"
	EventGameReset    EventType = "game-reset"
)

// Event - уведомление для всех наблюдателей комнаты игры.
type Event struct {
	Type    EventType   `json:"type"`
	GameID  string      `json:"gameId"`
	Payload interface{} `json:"payload,omitempty"`
}

// Broadcaster рассылает события комнате игры.
type Broadcaster interface {
	Broadcast(ctx context.Context, gameID string, event Event) error
}

// NopBroadcaster ничего не рассылает.
type NopBroadcaster struct{}

func (NopBroadcaster) Broadcast(context.Context, string, Event) error { return nil }

// ModelCaller - вызов модели без ошибок: при сбое возвращается запасной текст.
type ModelCaller interface {
	Call(ctx context.Context, prompt string, maxOutputTokens int) string
}

// fallbackDetector реализуют вызовы, умеющие отличить запасной ответ от настоящего.
type fallbackDetector interface {
	IsFallback(text string) bool
}
