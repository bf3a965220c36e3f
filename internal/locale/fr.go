package locale

import "golang.org/x/text/language"

// French возвращает французский пакет.
func French() *Pack {
	return &Pack{
		Tag: language.French,

		GMName:         "Maître du Jeu",
		GMAvatar:       "M",
		GMLabel:        "MJ",
		SystemName:     "Système",
		SystemAvatar:   "S",
		DefaultPlayer:  "Joueur",
		SystemLineForm: "[Système: %s]",
		DiceRollForm:   "[Jet de dés: %s = %d]",

		SummaryLocations: "# LIEUX IMPORTANTS",
		SummaryNPCs:      "# PERSONNAGES NON-JOUEURS",
		SummaryQuests:    "# QUÊTES ACTIVES",
		SummaryEvents:    "# ÉVÉNEMENTS IMPORTANTS (5 plus récents)",

		DefaultGenre:      "fantastique",
		DefaultTitle:      "Nouvelle campagne",
		DefaultDesc:       "Une nouvelle aventure commence.",
		WelcomeMessage:    "Bienvenue dans cette nouvelle campagne ! Je suis votre Maître du Jeu. Présentez vos personnages et nous commencerons l'aventure.",
		CommunicationFail: "Il semble y avoir un problème de communication avec le Maître du Jeu. Réessayez dans un instant.",

		MainIntro: "Tu es le Maître du Jeu (MJ) d'une campagne de jeu de rôle se déroulant dans un univers %s.\nTon rôle est de décrire le monde et les situations, et de réagir aux actions des joueurs.",
		MainDirectives: []string{
			"Sois descriptif et immersif",
			"Réagis aux actions des joueurs de manière cohérente",
			"Crée des situations intéressantes qui offrent plusieurs possibilités d'action",
			"N'écris jamais pour les joueurs, laisse-les prendre leurs décisions",
			"Inclus des détails sensoriels (sons, odeurs, textures)",
			"Mentionne les conséquences possibles des actions risquées",
		},
		CampaignHeader: "Informations sur la campagne :",
		TitleLabel:     "Titre",
		DescLabel:      "Description",
		WorldHeader:    "ÉTAT DU MONDE (faits établis, reste cohérent avec eux) :",
		HistoryHeader:  "HISTORIQUE RÉCENT DE LA CONVERSATION :",
		CurrentHeader:  "ACTION ACTUELLE :",
		MainClosing:    "En tant que Maître du Jeu, comment réponds-tu à cette action ? Décris ce qui se passe ensuite de manière immersive et captivante.",

		InitIntro: "Tu es le Maître du Jeu d'une nouvelle campagne de jeu de rôle %s.",
		InitInstructions: []string{
			"Établis le monde et son ambiance",
			"Décris la situation initiale des personnages",
			"Introduis une tension ou un mystère qui les pousse à agir",
			"Termine par une question ouverte aux joueurs",
		},
		InitOutputRule: "Écris UNIQUEMENT l'introduction dans le rôle. Pas de préambule, pas de méta-commentaire, pas de notes, pas de questions à l'organisateur.",

		ExtractionIntro: "Lis l'échange suivant d'une partie de jeu de rôle et liste les faits qu'il établit sur le monde.",
		ExtractionRules: []string{
			"Ne liste que les faits explicitement mentionnés, n'invente rien",
			"Utilise exactement les cinq sections ci-dessous, dans cet ordre",
			"Écris chaque entrée sur sa propre ligne sous la forme \"- Nom: courte description\"",
			"Écris \"Aucun\" sous une section sans contenu",
		},
		ExtractionPlayer: "ACTION DU JOUEUR :",
		ExtractionGM:     "NARRATION DU MAÎTRE DU JEU :",
		ExtractionFormat: "LIEUX:\n- Nom: description\nPNJ:\n- Nom: description\nQUÊTES:\n- Nom: description\nÉVÉNEMENTS:\n- Courte description de l'événement\nOBJETS:\n- Nom: description",
		NoneMarker:       "Aucun",

		DefaultLocation:    "Lieu découvert",
		DefaultNPC:         "Personnage rencontré",
		DefaultQuest:       "Quête active",
		DefaultQuestStatus: "active",

		FallbackPool: []string{
			"Alors que vous vous enfoncez dans la forêt, les ombres semblent s'étirer et danser autour de vous. Un grondement sourd résonne au loin. Que faites-vous ?",
			"La créature vous fixe de ses yeux brillants, puis file dans les sous-bois. Elle a laissé tomber quelque chose qui scintille sur le sol.",
			"La porte de la cabane s'ouvre en grinçant sur une vieille femme aux cheveux d'argent. Elle sourit : « Je vous attendais, voyageurs. Entrez, nous avons beaucoup à nous dire. »",
			"Le ciel s'assombrit d'un coup. Rien de naturel là-dedans : une puissante présence magique approche. Tout en vous crie de trouver un abri.",
			"Sous une pierre, vous découvrez un parchemin ancien. L'écriture est oubliée, mais quelques symboles désignent sans doute un trésor caché.",
			"Un frisson vous parcourt quand un hurlement s'élève au loin. Ce n'est pas un loup ordinaire. Les légendes du pays parlent de choses plus anciennes qui rôdent la nuit.",
			"L'aubergiste vous dévisage, puis se penche et murmure : « Si c'est la Relique Perdue que vous cherchez, allez voir l'ermite de la grotte au nord du village. Mais méfiez-vous, il n'aime pas les visiteurs... »",
			"Après des heures de marche, vous atteignez les ruines d'un temple ancien. Des colonnes de marbre brisées montent vers le ciel et deux statues de guerriers gardent l'entrée. Que faites-vous ?",
			"Le sol tremble sous vos pieds. Léger d'abord, le grondement s'amplifie. Au loin, des arbres s'abattent : quelque chose d'énorme vient vers vous. Il serait sage de vous mettre à couvert.",
		},
	}
}
