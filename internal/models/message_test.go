package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageKind_AcceptsLegacyAlias(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"content":"Bienvenue","sender":"Maître du Jeu","avatar":"M","type":"dm","timestamp":"2024-05-01T10:00:00Z"}`), &msg))
	assert.Equal(t, KindGM, msg.Kind)

	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"type":"gm"`)
}

func TestMessageKind_RejectsUnknown(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"type":"narrator"}`), &msg)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAvatarFor(t *testing.T) {
	assert.Equal(t, "G", AvatarFor("galadriel"))
	assert.Equal(t, "É", AvatarFor(" éowyn"))
	assert.Equal(t, "?", AvatarFor("  "))
}

func TestCampaign_CharacterOf(t *testing.T) {
	c := Campaign{Players: []Player{{Name: "Thorin", Character: "Dwarf Warrior"}, {Name: "Anon"}}}

	ch, ok := c.CharacterOf("Thorin")
	assert.True(t, ok)
	assert.Equal(t, "Dwarf Warrior", ch)

	_, ok = c.CharacterOf("Anon")
	assert.False(t, ok)
	_, ok = c.CharacterOf("Nobody")
	assert.False(t, ok)
}
