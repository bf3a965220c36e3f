package worldstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"roleplay-server/internal/locale"
	"roleplay-server/internal/models"
	"roleplay-server/internal/storage"

	"go.uber.org/zap"
)

// WorldState - память о фактах мира одной игры.
// Каждое изменение сразу записывается в хранилище. Ошибки хранилища
// только логируются: состояние в памяти остается рабочим.
type WorldState struct {
	gameID string
	store  storage.Store
	pack   *locale.Pack
	logger *zap.Logger
	now    func() time.Time

	mu   sync.RWMutex
	data Data
}

// New создает мир игры и загружает его из хранилища, если там что-то есть.
func New(ctx context.Context, gameID string, store storage.Store, pack *locale.Pack, logger *zap.Logger) *WorldState {
	if pack == nil {
		pack = locale.English()
	}
	w := &WorldState{
		gameID: gameID,
		store:  store,
		pack:   pack,
		logger: logger.Named("WorldState").With(zap.String("gameID", gameID)),
		now:    time.Now,
		data:   emptyData(),
	}
	w.load(ctx)
	return w
}

func (w *WorldState) GameID() string {
	return w.gameID
}

func (w *WorldState) key() string {
	return storage.Key(storage.NamespaceWorldState, w.gameID)
}

func (w *WorldState) load(ctx context.Context) {
	if w.store == nil {
		return
	}
	raw, found, err := w.store.Get(ctx, w.key())
	if err != nil {
		w.logger.Error("Failed to read world state, starting empty", zap.Error(err))
		return
	}
	if !found || strings.TrimSpace(raw) == "" {
		return
	}
	var d Data
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		w.logger.Error("Failed to decode persisted world state, starting empty", zap.Error(err))
		return
	}
	d.normalize()
	w.data = d
	w.logger.Info("World state loaded",
		zap.Int("locations", d.Locations.Len()),
		zap.Int("npcs", d.NPCs.Len()),
		zap.Int("quests", d.Quests.Len()),
		zap.Int("events", len(d.Events)),
	)
}

// persistLocked пишет состояние в хранилище. Вызывается под w.mu.
func (w *WorldState) persistLocked(ctx context.Context) {
	if w.store == nil {
		return
	}
	payload, err := json.Marshal(w.data)
	if err != nil {
		w.logger.Error("Failed to encode world state", zap.Error(err))
		return
	}
	if err := w.store.Set(ctx, w.key(), string(payload)); err != nil {
		w.logger.Error("Failed to persist world state, keeping it in memory", zap.Error(err))
	}
}

// stamp возвращает текущее время, но не раньше prev.
func (w *WorldState) stamp(prev time.Time) time.Time {
	now := w.now()
	if now.Before(prev) {
		return prev
	}
	return now
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: fact name is empty", models.ErrInvalidInput)
	}
	return name, nil
}

// UpsertLocation записывает место; существующее описание заменяется.
func (w *WorldState) UpsertLocation(ctx context.Context, name, description string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, _ := w.data.Locations.Get(name)
	w.data.Locations.Set(name, Location{
		Description: strings.TrimSpace(description),
		LastUpdated: w.stamp(prev.LastUpdated),
	})
	w.persistLocked(ctx)
	return nil
}

// UpsertNPC записывает неигрового персонажа.
func (w *WorldState) UpsertNPC(ctx context.Context, name, description string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, _ := w.data.NPCs.Get(name)
	w.data.NPCs.Set(name, NPC{
		Description: strings.TrimSpace(description),
		LastUpdated: w.stamp(prev.LastUpdated),
	})
	w.persistLocked(ctx)
	return nil
}

// UpsertQuest записывает квест со статусом.
func (w *WorldState) UpsertQuest(ctx context.Context, name string, status QuestStatus, description string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	if status == "" {
		status = QuestActive
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	prev, _ := w.data.Quests.Get(name)
	w.data.Quests.Set(name, Quest{
		Status:      status,
		Description: strings.TrimSpace(description),
		LastUpdated: w.stamp(prev.LastUpdated),
	})
	w.persistLocked(ctx)
	return nil
}

// AddEvent добавляет событие; старше MaxEvents последних отбрасываются.
func (w *WorldState) AddEvent(ctx context.Context, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return fmt.Errorf("%w: event description is empty", models.ErrInvalidInput)
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	var last time.Time
	if n := len(w.data.Events); n > 0 {
		last = w.data.Events[n-1].Timestamp
	}
	w.data.Events = append(w.data.Events, Event{Description: description, Timestamp: w.stamp(last)})
	if over := len(w.data.Events) - MaxEvents; over > 0 {
		w.data.Events = append([]Event(nil), w.data.Events[over:]...)
	}
	w.persistLocked(ctx)
	return nil
}

// Clear очищает мир и удаляет его из хранилища.
func (w *WorldState) Clear(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.data = emptyData()
	if w.store == nil {
		return
	}
	if err := w.store.Remove(ctx, w.key()); err != nil {
		w.logger.Error("Failed to remove persisted world state", zap.Error(err))
	}
}

// Snapshot возвращает копию состояния.
func (w *WorldState) Snapshot() Data {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.data.clone()
}

func (w *WorldState) IsEmpty() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.data.Locations.Len() == 0 && w.data.NPCs.Len() == 0 &&
		w.data.Quests.Len() == 0 && len(w.data.Events) == 0
}

// Summarize строит текстовую сводку для промпта. Пустые разделы пропускаются,
// для пустого мира возвращается пустая строка.
func (w *WorldState) Summarize() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var b strings.Builder

	if w.data.Locations.Len() > 0 {
		b.WriteString(w.pack.SummaryLocations + "\n")
		w.data.Locations.Each(func(name string, l Location) {
			fmt.Fprintf(&b, "- %s: %s\n", name, l.Description)
		})
		b.WriteString("\n")
	}

	if w.data.NPCs.Len() > 0 {
		b.WriteString(w.pack.SummaryNPCs + "\n")
		w.data.NPCs.Each(func(name string, n NPC) {
			fmt.Fprintf(&b, "- %s: %s\n", name, n.Description)
		})
		b.WriteString("\n")
	}

	if w.data.Quests.Len() > 0 {
		b.WriteString(w.pack.SummaryQuests + "\n")
		w.data.Quests.Each(func(name string, q Quest) {
			fmt.Fprintf(&b, "- %s (%s): %s\n", name, q.Status, q.Description)
		})
		b.WriteString("\n")
	}

	if n := len(w.data.Events); n > 0 {
		b.WriteString(w.pack.SummaryEvents + "\n")
		start := n - SummaryEvents
		if start < 0 {
			start = 0
		}
		for _, e := range w.data.Events[start:] {
			fmt.Fprintf(&b, "- %s\n", e.Description)
		}
		b.WriteString("\n")
	}

	return b.String()
}
