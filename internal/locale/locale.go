package locale

import (
	"golang.org/x/text/language"
)

// Pack - набор текстов, которые сервер подставляет в промпты и сообщения.
// Метки сводки мира модель видит в каждом ходе, их менять нельзя без причины.
type Pack struct {
	Tag language.Tag

	GMName         string
	GMAvatar       string
	GMLabel        string // метка ведущего в стенограмме
	SystemName     string
	SystemAvatar   string
	DefaultPlayer  string // персонаж по умолчанию
	SystemLineForm string // формат системной строки, %s - текст
	DiceRollForm   string // %s - нотация, %d - сумма

	SummaryLocations string
	SummaryNPCs      string
	SummaryQuests    string
	SummaryEvents    string

	DefaultGenre      string
	DefaultTitle      string
	DefaultDesc       string
	WelcomeMessage    string
	CommunicationFail string

	MainIntro      string // %s - жанр
	MainDirectives []string
	CampaignHeader string
	TitleLabel     string
	DescLabel      string
	WorldHeader    string
	HistoryHeader  string
	CurrentHeader  string
	MainClosing    string

	InitIntro        string // %s - жанр
	InitInstructions []string
	InitOutputRule   string

	ExtractionIntro    string
	ExtractionRules    []string
	ExtractionPlayer   string
	ExtractionGM       string
	ExtractionFormat   string
	NoneMarker         string
	DefaultLocation    string
	DefaultNPC         string
	DefaultQuest       string
	DefaultQuestStatus string

	FallbackPool []string
}

var supported = []language.Tag{language.English, language.French}

var matcher = language.NewMatcher(supported)

// Lookup выбирает пакет по BCP 47 тегу. Неизвестные и битые теги дают английский.
func Lookup(tag string) *Pack {
	parsed, err := language.Parse(tag)
	if err != nil {
		return English()
	}
	_, idx, conf := matcher.Match(parsed)
	if conf == language.No {
		return English()
	}
	if supported[idx] == language.French {
		return French()
	}
	return English()
}
