package models

import "time"

// Player - участник партии. Список игроков приходит извне.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	Avatar      string `json:"avatar"`
	IsConnected bool   `json:"isConnected"`
}

// Campaign - метаданные игровой сессии, которые видит клиент.
type Campaign struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Genre       string    `json:"genre"`
	CreatedAt   time.Time `json:"createdAt"`
	Players     []Player  `json:"players"`
}

// CharacterOf ищет персонажа игрока по имени.
func (c Campaign) CharacterOf(sender string) (string, bool) {
	for _, p := range c.Players {
		if p.Name == sender && p.Character != "" {
			return p.Character, true
		}
	}
	return "", false
}

// DiceRoll - результат броска.
type DiceRoll struct {
	Sides    int   `json:"diceType"`
	Count    int   `json:"numberOfDice"`
	Modifier int   `json:"modifier"`
	Results  []int `json:"results"`
	Total    int   `json:"total"`
}
