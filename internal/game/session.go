package game

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"roleplay-server/internal/conversation"
	"roleplay-server/internal/models"
	"roleplay-server/internal/storage"
	"roleplay-server/internal/worldstate"

	"go.uber.org/zap"
)

// session - одна запущенная игра: метаданные, журнал и мир.
type session struct {
	mu       sync.RWMutex
	campaign models.Campaign

	log   *conversation.Log
	world *worldstate.WorldState

	// turn пропускает один ход за раз
	turn chan struct{}
}

func newSession(campaign models.Campaign, log *conversation.Log, world *worldstate.WorldState) *session {
	if campaign.Players == nil {
		campaign.Players = []models.Player{}
	}
	return &session{
		campaign: campaign,
		log:      log,
		world:    world,
		turn:     make(chan struct{}, 1),
	}
}

func (s *session) acquireTurn(ctx context.Context) error {
	select {
	case s.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) releaseTurn() {
	<-s.turn
}

// snapshot возвращает копию метаданных вместе с составом партии.
func (s *session) snapshot() models.Campaign {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := s.campaign
	c.Players = make([]models.Player, len(s.campaign.Players))
	copy(c.Players, s.campaign.Players)
	return c
}

func (s *session) players() []models.Player {
	return s.snapshot().Players
}

func (s *session) addPlayer(p models.Player) models.Campaign {
	s.mu.Lock()
	s.campaign.Players = append(s.campaign.Players, p)
	s.mu.Unlock()
	return s.snapshot()
}

func (s *session) updateSettings(title, description, genre string) models.Campaign {
	s.mu.Lock()
	s.campaign.Title = title
	s.campaign.Description = description
	s.campaign.Genre = genre
	s.mu.Unlock()
	return s.snapshot()
}

// persistence - запись журнала и метаданных. Ошибки только логируются.
type persistence struct {
	store  storage.Store
	logger *zap.Logger
}

func (p persistence) saveHistory(ctx context.Context, gameID string, log *conversation.Log) {
	if p.store == nil {
		return
	}
	data, err := log.Marshal()
	if err != nil {
		p.logger.Error("Failed to encode conversation log", zap.String("gameID", gameID), zap.Error(err))
		return
	}
	if err := p.store.Set(ctx, storage.Key(storage.NamespaceHistory, gameID), string(data)); err != nil {
		p.logger.Error("Failed to persist conversation log", zap.String("gameID", gameID), zap.Error(err))
	}
}

func (p persistence) loadHistory(ctx context.Context, gameID string, log *conversation.Log) {
	if p.store == nil {
		return
	}
	raw, found, err := p.store.Get(ctx, storage.Key(storage.NamespaceHistory, gameID))
	if err != nil {
		p.logger.Error("Failed to read conversation log", zap.String("gameID", gameID), zap.Error(err))
		return
	}
	if !found || strings.TrimSpace(raw) == "" {
		return
	}
	if err := log.Unmarshal([]byte(raw)); err != nil {
		p.logger.Error("Failed to decode persisted conversation log, starting empty", zap.String("gameID", gameID), zap.Error(err))
	}
}

func (p persistence) removeHistory(ctx context.Context, gameID string) {
	if p.store == nil {
		return
	}
	if err := p.store.Remove(ctx, storage.Key(storage.NamespaceHistory, gameID)); err != nil {
		p.logger.Error("Failed to remove conversation log", zap.String("gameID", gameID), zap.Error(err))
	}
}

func (p persistence) saveCampaign(ctx context.Context, c models.Campaign) {
	if p.store == nil {
		return
	}
	data, err := json.Marshal(c)
	if err != nil {
		p.logger.Error("Failed to encode campaign", zap.String("gameID", c.ID), zap.Error(err))
		return
	}
	if err := p.store.Set(ctx, storage.Key(storage.NamespaceGame, c.ID), string(data)); err != nil {
		p.logger.Error("Failed to persist campaign", zap.String("gameID", c.ID), zap.Error(err))
	}
}

// loadCampaign возвращает found == false и при ошибке чтения: игра тогда считается неизвестной.
func (p persistence) loadCampaign(ctx context.Context, gameID string) (models.Campaign, bool) {
	if p.store == nil {
		return models.Campaign{}, false
	}
	raw, found, err := p.store.Get(ctx, storage.Key(storage.NamespaceGame, gameID))
	if err != nil {
		p.logger.Error("Failed to read campaign", zap.String("gameID", gameID), zap.Error(err))
		return models.Campaign{}, false
	}
	if !found {
		return models.Campaign{}, false
	}
	var c models.Campaign
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		p.logger.Error("Failed to decode persisted campaign", zap.String("gameID", gameID), zap.Error(err))
		return models.Campaign{}, false
	}
	c.ID = gameID
	return c, true
}
