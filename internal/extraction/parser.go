package extraction

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoSections - в тексте нет ни одного известного заголовка.
var ErrNoSections = errors.New("extraction output has no known sections")

// Category - раздел ответа извлечения.
type Category int

const (
	Locations Category = iota
	NPCs
	Quests
	Events
	Items
)

func (c Category) String() string {
	switch c {
	case Locations:
		return "locations"
	case NPCs:
		return "npcs"
	case Quests:
		return "quests"
	case Events:
		return "events"
	case Items:
		return "items"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// headerAliases - варианты заголовков после свертки регистра и диакритики.
var headerAliases = map[string]Category{
	"LOCATIONS": Locations, "LOCATION": Locations, "PLACES": Locations, "LIEUX": Locations, "LIEU": Locations,
	"NPCS": NPCs, "NPC": NPCs, "PNJ": NPCs, "PNJS": NPCs, "NON-PLAYER CHARACTERS": NPCs, "PERSONNAGES NON-JOUEURS": NPCs, "PERSONNAGES": NPCs, "CHARACTERS": NPCs,
	"QUESTS": Quests, "QUEST": Quests, "QUETES": Quests, "QUETE": Quests,
	"EVENTS": Events, "EVENT": Events, "EVENEMENTS": Events, "EVENEMENT": Events,
	"ITEMS": Items, "ITEM": Items, "OBJECTS": Items, "OBJETS": Items, "OBJET": Items, "INVENTORY": Items, "INVENTAIRE": Items,
}

// noneMarkers - слова, которыми модель помечает пустой раздел.
var noneMarkers = map[string]bool{
	"NONE": true, "AUCUN": true, "AUCUNE": true, "AUCUNS": true, "AUCUNES": true,
	"RIEN": true, "NEANT": true, "N/A": true, "NOTHING": true,
}

// headerLine находит кандидатов в заголовки: короткая метка в начале строки и двоеточие.
// Принадлежность к разделу решается по таблице headerAliases.
var headerLine = regexp.MustCompile(`(?m)^[ \t]*(?:[#*>]+[ \t]*)?([\p{L}][\p{L}\p{M} '/\-]{0,48}?)[ \t]*\**[ \t]*:`)

var listMarker = regexp.MustCompile(`^(?:[-*•–—]+|\d+[.)])[ \t]*`)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold приводит метку к верхнему регистру без диакритики.
func fold(s string) string {
	out, _, err := transform.String(accentStripper, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}

// classifyHeader возвращает раздел по метке вида "PNJ/NPCS".
// Берется первая распознанная часть.
func classifyHeader(label string) (Category, bool) {
	if c, ok := headerAliases[fold(label)]; ok {
		return c, true
	}
	for _, part := range strings.Split(label, "/") {
		if c, ok := headerAliases[fold(part)]; ok {
			return c, true
		}
	}
	return 0, false
}

// Entry - именованный факт.
type Entry struct {
	Name        string
	Description string
}

// Result - разобранный ответ извлечения.
type Result struct {
	Locations []Entry
	NPCs      []Entry
	Quests    []Entry
	Events    []string
	// Items разбираются, но в мир не записываются.
	Items []Entry
	// Found - разделы, заголовки которых встретились в тексте.
	Found map[Category]bool
}

// Empty сообщает, что применять нечего.
func (r *Result) Empty() bool {
	return len(r.Locations) == 0 && len(r.NPCs) == 0 && len(r.Quests) == 0 && len(r.Events) == 0
}

// Defaults - описания для строк без двоеточия.
type Defaults struct {
	Location string
	NPC      string
	Quest    string
}

// Parser разбирает текстовый ответ модели по разделам.
type Parser struct {
	defaults Defaults
}

func NewParser(defaults Defaults) *Parser {
	return &Parser{defaults: defaults}
}

type header struct {
	category  Category
	start     int // начало строки заголовка
	bodyStart int // сразу после двоеточия
}

// findHeaders возвращает позиции всех распознанных заголовков по порядку.
func findHeaders(text string) []header {
	var out []header
	for _, m := range headerLine.FindAllStringSubmatchIndex(text, -1) {
		label := text[m[2]:m[3]]
		c, ok := classifyHeader(label)
		if !ok {
			continue
		}
		out = append(out, header{category: c, start: m[0], bodyStart: m[1]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// section возвращает тело первого заголовка раздела до следующего известного заголовка.
func section(text string, headers []header, c Category) (string, bool) {
	for i, h := range headers {
		if h.category != c {
			continue
		}
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1].start
		}
		return text[h.bodyStart:end], true
	}
	return "", false
}

// Parse разбирает ответ. Каждый раздел обрабатывается отдельно,
// поэтому испорченный раздел не ломает соседние.
func (p *Parser) Parse(raw string) (*Result, error) {
	text := norm.NFC.String(strings.ReplaceAll(raw, "\r\n", "\n"))
	headers := findHeaders(text)
	if len(headers) == 0 {
		return nil, ErrNoSections
	}

	res := &Result{Found: make(map[Category]bool)}
	for _, c := range []Category{Locations, NPCs, Quests, Events, Items} {
		body, ok := section(text, headers, c)
		if !ok {
			continue
		}
		res.Found[c] = true
		lines := sectionLines(body)
		if len(lines) == 0 {
			continue
		}
		switch c {
		case Locations:
			res.Locations = splitEntries(lines, p.defaults.Location)
		case NPCs:
			res.NPCs = splitEntries(lines, p.defaults.NPC)
		case Quests:
			res.Quests = splitEntries(lines, p.defaults.Quest)
		case Events:
			res.Events = lines
		case Items:
			res.Items = splitEntries(lines, "")
		}
	}
	return res, nil
}

// sectionLines возвращает непустые строки без маркеров списка.
// Раздел с пометкой "None" считается пустым.
func sectionLines(body string) []string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		if isNoneLine(line) {
			return nil
		}
		lines = append(lines, line)
	}
	return lines
}

// isNoneLine: строка начинается со слова-пометки и не содержит двоеточия.
// "Aucun/None", "None.", "None mentioned" - да; "None of them: ..." - нет.
func isNoneLine(line string) bool {
	if strings.Contains(line, ":") {
		return false
	}
	fields := strings.FieldsFunc(fold(line), func(r rune) bool {
		return r == '/' || r == ' ' || r == '.' || r == ',' || r == '(' || r == ')' || r == '*' || r == '_'
	})
	return len(fields) > 0 && noneMarkers[fields[0]]
}

// splitEntries делит строки по первому двоеточию на имя и описание.
func splitEntries(lines []string, fallback string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		name, desc, found := strings.Cut(line, ":")
		name = strings.Trim(name, " \t*_\"")
		if name == "" {
			continue
		}
		desc = strings.TrimSpace(desc)
		if !found || desc == "" {
			desc = fallback
		}
		entries = append(entries, Entry{Name: name, Description: desc})
	}
	return entries
}
