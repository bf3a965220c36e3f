package worldstate

import (
	"strings"
	"time"
)

// MaxEvents - сколько последних событий хранит мир.
const MaxEvents = 50

// SummaryEvents - сколько событий попадает в сводку.
const SummaryEvents = 5

type QuestStatus string

const (
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestFailed    QuestStatus = "failed"
)

// ParseQuestStatus нормализует статус. Неизвестные значения считаются активными.
func ParseQuestStatus(raw string) QuestStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "done", "terminée", "terminee", "accomplie":
		return QuestCompleted
	case "failed", "échouée", "echouee", "échec", "echec":
		return QuestFailed
	default:
		return QuestActive
	}
}

type Location struct {
	Description string    `json:"description"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type NPC struct {
	Description string    `json:"description"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Quest struct {
	Status      QuestStatus `json:"status"`
	Description string      `json:"description"`
	LastUpdated time.Time   `json:"lastUpdated"`
}

type Event struct {
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// Item хранится ради совместимости формата; извлечение предметы не пишет.
type Item struct {
	Description string    `json:"description"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Data - сериализуемое содержимое мира.
type Data struct {
	Locations *OrderedMap[Location] `json:"locations"`
	NPCs      *OrderedMap[NPC]      `json:"npcs"`
	Quests    *OrderedMap[Quest]    `json:"quests"`
	Events    []Event               `json:"events"`
	Items     *OrderedMap[Item]     `json:"items"`
}

func emptyData() Data {
	return Data{
		Locations: NewOrderedMap[Location](),
		NPCs:      NewOrderedMap[NPC](),
		Quests:    NewOrderedMap[Quest](),
		Events:    []Event{},
		Items:     NewOrderedMap[Item](),
	}
}

// normalize заменяет отсутствующие коллекции пустыми после загрузки.
func (d *Data) normalize() {
	if d.Locations == nil {
		d.Locations = NewOrderedMap[Location]()
	}
	if d.NPCs == nil {
		d.NPCs = NewOrderedMap[NPC]()
	}
	if d.Quests == nil {
		d.Quests = NewOrderedMap[Quest]()
	}
	if d.Events == nil {
		d.Events = []Event{}
	}
	if d.Items == nil {
		d.Items = NewOrderedMap[Item]()
	}
	if over := len(d.Events) - MaxEvents; over > 0 {
		d.Events = append([]Event(nil), d.Events[over:]...)
	}
}

func (d Data) clone() Data {
	events := make([]Event, len(d.Events))
	copy(events, d.Events)
	return Data{
		Locations: d.Locations.Clone(),
		NPCs:      d.NPCs.Clone(),
		Quests:    d.Quests.Clone(),
		Events:    events,
		Items:     d.Items.Clone(),
	}
}
