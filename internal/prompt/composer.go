package prompt

import (
	"fmt"
	"strings"

	"roleplay-server/internal/locale"
	"roleplay-server/internal/models"
)

// Composer собирает промпты для ведущего. Все методы - чистые функции
// от аргументов: одинаковый вход дает побайтно одинаковый текст.
type Composer struct {
	pack *locale.Pack
}

func NewComposer(pack *locale.Pack) *Composer {
	if pack == nil {
		pack = locale.English()
	}
	return &Composer{pack: pack}
}

func (c *Composer) genre(campaign models.Campaign) string {
	if g := strings.TrimSpace(campaign.Genre); g != "" {
		return g
	}
	return c.pack.DefaultGenre
}

// Line превращает сообщение в строку стенограммы.
func (c *Composer) Line(campaign models.Campaign, msg models.Message) string {
	switch msg.Kind {
	case models.KindGM:
		return fmt.Sprintf("%s: %s", c.pack.GMLabel, msg.Content)
	case models.KindSystem:
		return fmt.Sprintf(c.pack.SystemLineForm, msg.Content)
	default:
		return fmt.Sprintf("%s (%s): %s", msg.Sender, c.characterOf(campaign, msg), msg.Content)
	}
}

// characterOf: поле сообщения, затем состав партии, затем метка по умолчанию.
func (c *Composer) characterOf(campaign models.Campaign, msg models.Message) string {
	if ch := strings.TrimSpace(msg.Character); ch != "" {
		return ch
	}
	if ch, ok := campaign.CharacterOf(msg.Sender); ok {
		return ch
	}
	return c.pack.DefaultPlayer
}

func (c *Composer) writeCampaign(b *strings.Builder, campaign models.Campaign) {
	b.WriteString(c.pack.CampaignHeader)
	b.WriteString("\n")
	fmt.Fprintf(b, "%s: %s\n", c.pack.TitleLabel, campaign.Title)
	fmt.Fprintf(b, "%s: %s\n\n", c.pack.DescLabel, campaign.Description)
}

// BuildMainPrompt собирает промпт хода: рамка и жанр, кампания, правила ведущего,
// сводка мира, недавняя история, текущее сообщение и финальная инструкция.
func (c *Composer) BuildMainPrompt(campaign models.Campaign, worldSummary string, recent []models.Message, current models.Message) string {
	p := c.pack
	var b strings.Builder

	fmt.Fprintf(&b, p.MainIntro, c.genre(campaign))
	b.WriteString("\n\n")

	c.writeCampaign(&b, campaign)

	for _, d := range p.MainDirectives {
		b.WriteString("- ")
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if summary := strings.TrimSpace(worldSummary); summary != "" {
		b.WriteString(p.WorldHeader)
		b.WriteString("\n\n")
		b.WriteString(summary)
		b.WriteString("\n\n")
	}

	if len(recent) > 0 {
		b.WriteString(p.HistoryHeader)
		b.WriteString("\n\n")
		for _, msg := range recent {
			b.WriteString(c.Line(campaign, msg))
			b.WriteString("\n\n")
		}
	}

	b.WriteString(p.CurrentHeader)
	b.WriteString("\n")
	b.WriteString(c.Line(campaign, current))
	b.WriteString("\n\n")

	b.WriteString(p.MainClosing)
	return b.String()
}

// BuildInitializationPrompt собирает промпт первого хода новой кампании.
func (c *Composer) BuildInitializationPrompt(campaign models.Campaign) string {
	p := c.pack
	var b strings.Builder

	fmt.Fprintf(&b, p.InitIntro, c.genre(campaign))
	b.WriteString("\n\n")

	c.writeCampaign(&b, campaign)

	for i, step := range p.InitInstructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}
	b.WriteString("\n")
	b.WriteString(p.InitOutputRule)
	return b.String()
}
