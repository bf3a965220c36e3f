package locale

import "golang.org/x/text/language"

// English возвращает английский пакет.
func English() *Pack {
	return &Pack{
		Tag: language.English,

		GMName:         "Game Master",
		GMAvatar:       "G",
		GMLabel:        "GM",
		SystemName:     "System",
		SystemAvatar:   "S",
		DefaultPlayer:  "Player",
		SystemLineForm: "[System: %s]",
		DiceRollForm:   "[Dice roll: %s = %d]",

		SummaryLocations: "# IMPORTANT LOCATIONS",
		SummaryNPCs:      "# NON-PLAYER CHARACTERS",
		SummaryQuests:    "# ACTIVE QUESTS",
		SummaryEvents:    "# IMPORTANT EVENTS (5 most recent)",

		DefaultGenre:      "fantasy",
		DefaultTitle:      "New campaign",
		DefaultDesc:       "A new adventure begins.",
		WelcomeMessage:    "Welcome to this new campaign! I am your Game Master. Introduce your characters and we will begin the adventure.",
		CommunicationFail: "There seems to be trouble reaching the Game Master. Please try again in a moment.",

		MainIntro: "You are the Game Master (GM) of a role-playing campaign set in a %s world.\nYour role is to describe the world and its situations and to react to the players' actions.",
		MainDirectives: []string{
			"Be descriptive and immersive",
			"React to the players' actions consistently",
			"Create interesting situations that offer several possible actions",
			"Never write for the players, let them make their own decisions",
			"Include sensory details (sounds, smells, textures)",
			"Mention the possible consequences of risky actions",
		},
		CampaignHeader: "Campaign information:",
		TitleLabel:     "Title",
		DescLabel:      "Description",
		WorldHeader:    "WORLD STATE (facts established so far, stay consistent with them):",
		HistoryHeader:  "RECENT CONVERSATION HISTORY:",
		CurrentHeader:  "CURRENT ACTION:",
		MainClosing:    "As the Game Master, how do you respond to this action? Describe what happens next in an immersive and engaging way.",

		InitIntro: "You are the Game Master of a new %s role-playing campaign.",
		InitInstructions: []string{
			"Establish the world and its tone",
			"Describe the initial situation the characters find themselves in",
			"Introduce a tension or mystery that gives them a reason to act",
			"End with an open question to the players",
		},
		InitOutputRule: "Write ONLY the in-character introduction. No preamble, no meta-commentary, no notes, no questions addressed to the organizer.",

		ExtractionIntro: "Read the following exchange from a role-playing game and list the facts it establishes about the world.",
		ExtractionRules: []string{
			"Only list facts explicitly mentioned in the text, never invent anything",
			"Use exactly the five sections below, in this order",
			"Write each entry on its own line as \"- Name: short description\"",
			"Write \"None\" under a section that has nothing to report",
		},
		ExtractionPlayer: "PLAYER ACTION:",
		ExtractionGM:     "GAME MASTER NARRATION:",
		ExtractionFormat: "LOCATIONS:\n- Name: description\nNPCS:\n- Name: description\nQUESTS:\n- Name: description\nEVENTS:\n- Short description of the event\nITEMS:\n- Name: description",
		NoneMarker:       "None",

		DefaultLocation:    "location discovered",
		DefaultNPC:         "character encountered",
		DefaultQuest:       "active quest",
		DefaultQuestStatus: "active",

		FallbackPool: []string{
			"As you venture deeper into the forest, the shadows seem to stretch and dance around you. A dull rumble echoes in the distance. What do you do?",
			"The creature watches you with gleaming eyes, then bolts into the undergrowth. You notice it dropped something shiny on the ground.",
			"The cabin door creaks open, revealing an old woman with silver hair. She smiles: 'I was expecting you, travelers. Come in, we have much to discuss.'",
			"The sky darkens all of a sudden. This is not natural: a powerful magical presence is approaching. Every instinct tells you to find shelter quickly.",
			"Beneath a stone you find an ancient scroll. The writing is in a forgotten tongue, but a few symbols clearly point to a hidden treasure.",
			"A shiver runs down your spine as a distant howl rises. That is no ordinary wolf. Local legends speak of older things that roam these woods at night.",
			"The innkeeper eyes you warily, then leans in and whispers: 'If you really seek the Lost Relic, talk to the hermit in the cave north of the village. But be careful, he does not like visitors...'",
			"After hours of walking you reach the imposing ruins of an ancient temple. Broken marble columns rise to the sky and two giant warrior statues guard the entrance. What do you do?",
			"The ground trembles beneath your feet. Faint at first, the vibration grows quickly. In the distance trees topple as something enormous moves your way. Taking cover would be wise.",
		},
	}
}
