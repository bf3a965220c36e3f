package conversation

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"roleplay-server/internal/models"
)

// DefaultCapacity - сколько сообщений хранится по умолчанию.
const DefaultCapacity = 100

// Log - упорядоченный журнал сообщений одной игры с ограниченной емкостью.
// При переполнении вытесняются самые старые сообщения.
type Log struct {
	mu       sync.RWMutex
	capacity int
	messages []models.Message
}

// NewLog создает журнал. capacity < 1 заменяется на DefaultCapacity.
func NewLog(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Capacity возвращает емкость журнала.
func (l *Log) Capacity() int {
	return l.capacity
}

// Append добавляет сообщение в конец и возвращает его.
func (l *Log) Append(msg models.Message) models.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, msg)
	l.trimLocked()
	return msg
}

// Recent возвращает последние n сообщений в исходном порядке.
func (l *Log) Recent(n int) []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n <= 0 {
		return []models.Message{}
	}
	if n > len(l.messages) {
		n = len(l.messages)
	}
	out := make([]models.Message, n)
	copy(out, l.messages[len(l.messages)-n:])
	return out
}

// All возвращает копию всего журнала.
func (l *Log) All() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}

// trimLocked отбрасывает голову журнала сверх емкости.
func (l *Log) trimLocked() {
	if over := len(l.messages) - l.capacity; over > 0 {
		kept := make([]models.Message, l.capacity)
		copy(kept, l.messages[over:])
		l.messages = kept
	}
}

// record - форма сообщения на диске. Время хранится как RFC 3339 с наносекундами.
type record struct {
	Content   string             `json:"content"`
	Sender    string             `json:"sender"`
	Avatar    string             `json:"avatar"`
	Kind      models.MessageKind `json:"type"`
	Character string             `json:"character,omitempty"`
	Timestamp string             `json:"timestamp"`
}

// Marshal сериализует журнал в JSON-массив записей.
func (l *Log) Marshal() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	records := make([]record, len(l.messages))
	for i, m := range l.messages {
		records[i] = record{
			Content:   m.Content,
			Sender:    m.Sender,
			Avatar:    m.Avatar,
			Kind:      m.Kind,
			Character: m.Character,
			Timestamp: m.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}
	return json.Marshal(records)
}

// Unmarshal заменяет содержимое журнала данными из JSON. Емкость применяется заново.
func (l *Log) Unmarshal(data []byte) error {
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to decode conversation log: %w", err)
	}

	messages := make([]models.Message, 0, len(records))
	for i, r := range records {
		ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
		if err != nil {
			return fmt.Errorf("message %d: invalid timestamp '%s': %w", i, r.Timestamp, err)
		}
		messages = append(messages, models.Message{
			Content:   r.Content,
			Sender:    r.Sender,
			Avatar:    r.Avatar,
			Kind:      r.Kind,
			Character: r.Character,
			Timestamp: ts,
		})
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = messages
	l.trimLocked()
	return nil
}

func (l *Log) MarshalJSON() ([]byte, error) {
	return l.Marshal()
}

func (l *Log) UnmarshalJSON(data []byte) error {
	if l.capacity < 1 {
		l.capacity = DefaultCapacity
	}
	return l.Unmarshal(data)
}
