package prompt

import (
	"strings"
	"testing"
	"time"

	"roleplay-server/internal/locale"
	"roleplay-server/internal/models"

	"github.com/stretchr/testify/assert"
)

var ts = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func campaign() models.Campaign {
	return models.Campaign{
		ID:          "g1",
		Title:       "The Forgotten Lands",
		Description: "An epic quest through lost kingdoms.",
		Genre:       "dark fantasy",
		Players: []models.Player{
			{Name: "Thorin", Character: "Dwarf Warrior"},
			{Name: "Galadriel", Character: "Elf Mage"},
		},
	}
}

func history() []models.Message {
	return []models.Message{
		{Content: "You stand before the gate.", Sender: "Game Master", Kind: models.KindGM, Timestamp: ts},
		{Content: "I knock.", Sender: "Thorin", Kind: models.KindPlayer, Timestamp: ts},
		{Content: "Dice roll: 1d20 = 17", Sender: "System", Kind: models.KindSystem, Timestamp: ts},
		{Content: "I cast light.", Sender: "Galadriel", Character: "High Elf Sorceress", Kind: models.KindPlayer, Timestamp: ts},
		{Content: "I watch.", Sender: "Stranger", Kind: models.KindPlayer, Timestamp: ts},
	}
}

func TestBuildMainPrompt_Structure(t *testing.T) {
	c := NewComposer(locale.English())
	current := models.Message{Content: "I open the gate.", Sender: "Thorin", Kind: models.KindPlayer, Timestamp: ts}
	summary := "# IMPORTANT LOCATIONS\n- Old Mill: abandoned\n\n"

	got := c.BuildMainPrompt(campaign(), summary, history(), current)

	order := []string{
		"set in a dark fantasy world",
		"Title: The Forgotten Lands",
		"Description: An epic quest through lost kingdoms.",
		"- Be descriptive and immersive",
		"- Never write for the players",
		"- Include sensory details",
		"- Mention the possible consequences of risky actions",
		"WORLD STATE",
		"# IMPORTANT LOCATIONS\n- Old Mill: abandoned",
		"RECENT CONVERSATION HISTORY:",
		"GM: You stand before the gate.",
		"Thorin (Dwarf Warrior): I knock.",
		"[System: Dice roll: 1d20 = 17]",
		"Galadriel (High Elf Sorceress): I cast light.",
		"Stranger (Player): I watch.",
		"CURRENT ACTION:\nThorin (Dwarf Warrior): I open the gate.",
		"what happens next",
	}
	pos := 0
	for _, want := range order {
		idx := strings.Index(got[pos:], want)
		if !assert.GreaterOrEqual(t, idx, 0, "missing or out of order: %q", want) {
			return
		}
		pos += idx + len(want)
	}
}

func TestBuildMainPrompt_IsDeterministic(t *testing.T) {
	c := NewComposer(locale.English())
	current := models.Message{Content: "Again.", Sender: "Thorin", Kind: models.KindPlayer, Timestamp: ts}

	a := c.BuildMainPrompt(campaign(), "summary", history(), current)
	b := c.BuildMainPrompt(campaign(), "summary", history(), current)
	assert.Equal(t, a, b)
}

func TestBuildMainPrompt_OmitsEmptyBlocks(t *testing.T) {
	c := NewComposer(locale.English())
	current := models.Message{Content: "Hello?", Sender: "Thorin", Kind: models.KindPlayer, Timestamp: ts}

	got := c.BuildMainPrompt(models.Campaign{Title: "T"}, "  \n", nil, current)
	assert.NotContains(t, got, "WORLD STATE")
	assert.NotContains(t, got, "RECENT CONVERSATION HISTORY")
	assert.Contains(t, got, "set in a fantasy world")
	assert.Contains(t, got, "Thorin (Player): Hello?")
}

func TestBuildMainPrompt_French(t *testing.T) {
	c := NewComposer(locale.French())
	current := models.Message{Content: "J'attaque.", Sender: "Aragorn", Kind: models.KindPlayer, Timestamp: ts}
	recent := []models.Message{{Content: "Un orc surgit.", Kind: models.KindGM, Timestamp: ts}}

	got := c.BuildMainPrompt(models.Campaign{Title: "Les Terres Oubliées"}, "", recent, current)
	assert.Contains(t, got, "univers fantastique")
	assert.Contains(t, got, "MJ: Un orc surgit.")
	assert.Contains(t, got, "Aragorn (Joueur): J'attaque.")
	assert.True(t, strings.HasSuffix(got, "captivante."))
}

func TestBuildInitializationPrompt(t *testing.T) {
	c := NewComposer(locale.English())
	got := c.BuildInitializationPrompt(campaign())

	assert.Contains(t, got, "new dark fantasy role-playing campaign")
	assert.Contains(t, got, "Title: The Forgotten Lands")
	assert.Contains(t, got, "1. Establish the world and its tone")
	assert.Contains(t, got, "4. End with an open question to the players")
	assert.True(t, strings.HasSuffix(got, "no questions addressed to the organizer."))
	assert.Equal(t, got, c.BuildInitializationPrompt(campaign()))
}
