package extraction

import (
	"context"
	"fmt"
	"strings"

	"roleplay-server/internal/locale"
	"roleplay-server/internal/worldstate"

	"go.uber.org/zap"
)

// ModelCaller - вызов модели, который никогда не возвращает ошибку.
type ModelCaller interface {
	Call(ctx context.Context, prompt string, maxOutputTokens int) string
}

// World - то, во что записываются извлеченные факты.
type World interface {
	UpsertLocation(ctx context.Context, name, description string) error
	UpsertNPC(ctx context.Context, name, description string) error
	UpsertQuest(ctx context.Context, name string, status worldstate.QuestStatus, description string) error
	AddEvent(ctx context.Context, description string) error
}

// DefaultMaxTokens - лимит ответа модели на извлечение.
const DefaultMaxTokens = 500

// Extractor превращает реплику ведущего в обновления мира.
type Extractor struct {
	caller    ModelCaller
	parser    *Parser
	pack      *locale.Pack
	maxTokens int
	logger    *zap.Logger
}

func NewExtractor(caller ModelCaller, pack *locale.Pack, maxTokens int, logger *zap.Logger) *Extractor {
	if pack == nil {
		pack = locale.English()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Extractor{
		caller: caller,
		parser: NewParser(Defaults{
			Location: pack.DefaultLocation,
			NPC:      pack.DefaultNPC,
			Quest:    pack.DefaultQuest,
		}),
		pack:      pack,
		maxTokens: maxTokens,
		logger:    logger.Named("Extractor"),
	}
}

func (e *Extractor) Parser() *Parser {
	return e.parser
}

// BuildExtractionPrompt собирает запрос на перечисление фактов из одного хода.
func (e *Extractor) BuildExtractionPrompt(playerMessage, gmReply string) string {
	p := e.pack
	var b strings.Builder

	b.WriteString(p.ExtractionIntro)
	b.WriteString("\n\n")
	for _, rule := range p.ExtractionRules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(p.ExtractionPlayer)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(playerMessage))
	b.WriteString("\n\n")
	b.WriteString(p.ExtractionGM)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(gmReply))
	b.WriteString("\n\n")
	b.WriteString(p.ExtractionFormat)
	b.WriteString("\n")
	return b.String()
}

// Apply записывает результат в мир по порядку разделов. Квесты создаются активными.
// Ошибка или отмена ctx прерывает запись; уже записанное остается.
func Apply(ctx context.Context, res *Result, world World) (applied int, err error) {
	for _, l := range res.Locations {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := world.UpsertLocation(ctx, l.Name, l.Description); err != nil {
			return applied, fmt.Errorf("location %q: %w", l.Name, err)
		}
		applied++
	}
	for _, n := range res.NPCs {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := world.UpsertNPC(ctx, n.Name, n.Description); err != nil {
			return applied, fmt.Errorf("npc %q: %w", n.Name, err)
		}
		applied++
	}
	for _, q := range res.Quests {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := world.UpsertQuest(ctx, q.Name, worldstate.QuestActive, q.Description); err != nil {
			return applied, fmt.Errorf("quest %q: %w", q.Name, err)
		}
		applied++
	}
	for _, ev := range res.Events {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		if err := world.AddEvent(ctx, ev); err != nil {
			return applied, fmt.Errorf("event %q: %w", ev, err)
		}
		applied++
	}
	return applied, nil
}

// Extract выполняет полный цикл: запрос к модели, разбор и запись в мир.
// Возвращает false при любой ошибке разбора или записи, включая панику.
func (e *Extractor) Extract(ctx context.Context, world World, playerMessage, gmReply string) (ok bool) {
	log := e.logger
	defer func() {
		if r := recover(); r != nil {
			log.Error("Panic during world state extraction", zap.Any("panic", r))
			ok = false
		}
	}()

	raw := e.caller.Call(ctx, e.BuildExtractionPrompt(playerMessage, gmReply), e.maxTokens)
	if err := ctx.Err(); err != nil {
		log.Info("World state extraction cancelled", zap.Error(err))
		return false
	}

	res, err := e.parser.Parse(raw)
	if err != nil {
		log.Warn("Failed to parse extraction output", zap.Error(err), zap.Int("rawLength", len(raw)))
		return false
	}

	applied, err := Apply(ctx, res, world)
	if err != nil {
		log.Error("Failed to apply extraction result", zap.Error(err), zap.Int("applied", applied))
		return false
	}

	log.Debug("World state extraction applied",
		zap.Int("locations", len(res.Locations)),
		zap.Int("npcs", len(res.NPCs)),
		zap.Int("quests", len(res.Quests)),
		zap.Int("events", len(res.Events)),
		zap.Int("itemsIgnored", len(res.Items)),
	)
	return true
}
