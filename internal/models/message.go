package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MessageKind - автор сообщения в журнале.
type MessageKind string

const (
	KindGM     MessageKind = "gm"
	KindPlayer MessageKind = "player"
	KindSystem MessageKind = "system"
)

// kindAliases - старые имена, которые встречаются в сохраненных журналах.
var kindAliases = map[string]MessageKind{
	"gm":     KindGM,
	"dm":     KindGM,
	"mj":     KindGM,
	"player": KindPlayer,
	"system": KindSystem,
}

// ParseMessageKind разбирает вид сообщения без учета регистра.
func ParseMessageKind(raw string) (MessageKind, error) {
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("%w: unknown message kind '%s'", ErrInvalidInput, raw)
	}
	return kind, nil
}

// UnmarshalJSON принимает как "gm", так и устаревший "dm".
func (k *MessageKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := ParseMessageKind(raw)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// Message - одна реплика игрока, ведущего или системы.
type Message struct {
	Content   string      `json:"content"`
	Sender    string      `json:"sender"`
	Avatar    string      `json:"avatar"`
	Kind      MessageKind `json:"type"`
	Character string      `json:"character,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// AvatarFor возвращает первую букву имени в верхнем регистре.
func AvatarFor(name string) string {
	name = strings.TrimSpace(name)
	for _, r := range name {
		return strings.ToUpper(string(r))
	}
	return "?"
}
