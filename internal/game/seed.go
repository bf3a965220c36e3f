package game

import (
	"context"
	"time"

	"roleplay-server/internal/models"

	"go.uber.org/zap"
)

// DemoGameID - игра, которую сервер создает при SEED_DEMO=true.
const DemoGameID = "terres-oubliees-01"

// SeedDemo создает демонстрационную кампанию с партией и началом сцены.
// Если игра уже есть (в памяти или в хранилище), ничего не делает.
func (s *Service) SeedDemo(ctx context.Context) {
	now := s.now().UTC()
	campaign := models.Campaign{
		ID:          DemoGameID,
		Title:       "Adventure in the Forgotten Lands",
		Description: "An epic adventure in a fantasy world full of mysterious creatures and ancient magic.",
		Genre:       s.pack.DefaultGenre,
		CreatedAt:   now.Add(-10 * time.Minute),
		Players: []models.Player{
			{ID: "1", Name: "Galadriel", Character: "Elf Mage", Avatar: "G", IsConnected: true},
			{ID: "2", Name: "Thorin", Character: "Dwarf Warrior", Avatar: "T", IsConnected: true},
			{ID: "3", Name: "Aragorn", Character: "Human Ranger", Avatar: "A", IsConnected: true},
			{ID: "4", Name: "Legolas", Character: "Elf Archer", Avatar: "L", IsConnected: true},
		},
	}

	s.mu.Lock()
	if s.existsLocked(ctx, DemoGameID) {
		s.mu.Unlock()
		s.logger.Info("Demo game already present, skipping seed", zap.String("gameID", DemoGameID))
		return
	}
	sess := s.openSession(ctx, campaign)
	s.sessions[DemoGameID] = sess
	s.mu.Unlock()

	gm := func(text string) models.Message {
		return models.Message{Content: text, Sender: s.pack.GMName, Avatar: s.pack.GMAvatar, Kind: models.KindGM}
	}
	player := func(p models.Player, text string) models.Message {
		return models.Message{Content: text, Sender: p.Name, Avatar: p.Avatar, Kind: models.KindPlayer, Character: p.Character}
	}
	system := func(text string) models.Message {
		return models.Message{Content: text, Sender: s.pack.SystemName, Avatar: s.pack.SystemAvatar, Kind: models.KindSystem}
	}
	galadriel, thorin, aragorn := campaign.Players[0], campaign.Players[1], campaign.Players[2]

	sess.log.Clear()

	opening := []models.Message{
		gm("Welcome, adventurers! You stand at the edge of a dark forest. The trees are so tall that their crowns hide the sky, and a cold mist drifts between the trunks. The village elders say no one who entered these woods has come back unchanged."),
		player(thorin, "I grip my axe and step forward carefully. \"We are not afraid of a few trees. Let's go!\""),
		player(galadriel, "I cast Detect Magic to find out whether the forest hides any enchantments."),
		system("Galadriel casts Detect Magic - Intelligence check: 15"),
		gm("Galadriel senses a faint magical aura everywhere in the forest, stronger to the north. Thorin pushes on and the group soon reaches a small clearing. In the middle stands an old cabin with moss-covered walls, and a lantern glows in its window."),
		player(aragorn, "I sneak toward the cabin to look through the window without being seen."),
		system("Aragorn makes a Stealth check: 18"),
		gm("Aragorn slips to the cabin without a sound. Through the dusty glass he sees an old woman stirring a bubbling cauldron. She is humming an eerie tune, and the smell of stew and strange herbs drifts out of the cabin."),
	}
	for i, msg := range opening {
		msg.Timestamp = now.Add(time.Duration(i*20-500) * time.Second)
		sess.log.Append(msg)
	}

	s.persist.saveCampaign(ctx, campaign)
	s.persist.saveHistory(ctx, DemoGameID, sess.log)

	s.logger.Info("Demo game seeded",
		zap.String("gameID", DemoGameID),
		zap.Int("players", len(campaign.Players)),
		zap.Int("messages", sess.log.Len()),
	)
}
