package dice

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"roleplay-server/internal/models"
)

// SupportedSides - кости, которые предлагает клиент.
var SupportedSides = []int{4, 6, 8, 10, 12, 20, 100}

// MaxCount - предел количества костей в одном HTTP запросе.
// Сам Engine бросает любое count >= 0.
const MaxCount = 100

// Engine бросает кости. Нулевое значение использует глобальный
// генератор math/rand/v2, который потокобезопасен и засеян при старте процесса.
type Engine struct {
	intN func(n int) int
}

// NewEngine создает Engine на глобальном генераторе.
func NewEngine() *Engine {
	return &Engine{}
}

// NewEngineWithSource нужен для воспроизводимых бросков.
// *rand.Rand не потокобезопасен, поэтому доступ к нему под мьютексом.
func NewEngineWithSource(src rand.Source) *Engine {
	rng := rand.New(src)
	var mu sync.Mutex
	return &Engine{intN: func(n int) int {
		mu.Lock()
		defer mu.Unlock()
		return rng.IntN(n)
	}}
}

// Roll бросает count костей с sides гранями и добавляет modifier.
func (e *Engine) Roll(sides, count, modifier int) (models.DiceRoll, error) {
	if sides < 1 {
		return models.DiceRoll{}, fmt.Errorf("%w: dice must have at least one side, got %d", models.ErrInvalidInput, sides)
	}
	if count < 0 {
		return models.DiceRoll{}, fmt.Errorf("%w: number of dice must not be negative, got %d", models.ErrInvalidInput, count)
	}

	intN := rand.IntN
	if e != nil && e.intN != nil {
		intN = e.intN
	}

	results := make([]int, count)
	total := modifier
	for i := range results {
		results[i] = intN(sides) + 1
		total += results[i]
	}

	return models.DiceRoll{
		Sides:    sides,
		Count:    count,
		Modifier: modifier,
		Results:  results,
		Total:    total,
	}, nil
}

// Notation возвращает запись вида 3d20+2.
func Notation(r models.DiceRoll) string {
	switch {
	case r.Modifier > 0:
		return fmt.Sprintf("%dd%d+%d", r.Count, r.Sides, r.Modifier)
	case r.Modifier < 0:
		return fmt.Sprintf("%dd%d%d", r.Count, r.Sides, r.Modifier)
	default:
		return fmt.Sprintf("%dd%d", r.Count, r.Sides)
	}
}

// Describe возвращает "3d20+2 = 35 (12, 9, 12)".
func Describe(r models.DiceRoll) string {
	parts := make([]string, len(r.Results))
	for i, v := range r.Results {
		parts[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("%s = %d (%s)", Notation(r), r.Total, strings.Join(parts, ", "))
}
