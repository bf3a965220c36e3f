package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"roleplay-server/internal/conversation"
	"roleplay-server/internal/dice"
	"roleplay-server/internal/extraction"
	"roleplay-server/internal/locale"
	"roleplay-server/internal/models"
	"roleplay-server/internal/prompt"
	"roleplay-server/internal/storage"
	"roleplay-server/internal/worldstate"
	"roleplay-server/pkg/taskmanager"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPromptHistory = 10
	DefaultMaxTokens     = 1000

	extractionTaskName = "world-extraction"
	resetWaitTimeout   = 5 * time.Second
)

var errExtractionFailed = errors.New("world state extraction failed")

// Options - числовые настройки сервиса.
type Options struct {
	HistoryMaxMessages    int
	PromptHistoryMessages int
	MaxTokens             int
	InitMaxTokens         int
	ExtractionEnabled     bool
}

// Deps - зависимости сервиса. Extractor и Tasks нужны только при включенном извлечении.
type Deps struct {
	Store     storage.Store
	Caller    ModelCaller
	Composer  *prompt.Composer
	Extractor *extraction.Extractor
	Tasks     *taskmanager.TaskManager
	Dice      *dice.Engine
	Events    Broadcaster
	Pack      *locale.Pack
}

// Service хранит запущенные игры в памяти и проводит ходы через модель.
type Service struct {
	caller    ModelCaller
	composer  *prompt.Composer
	extractor *extraction.Extractor
	tasks     *taskmanager.TaskManager
	dice      *dice.Engine
	events    Broadcaster
	pack      *locale.Pack
	store     storage.Store
	persist   persistence
	opts      Options
	logger    *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

var _ Backend = (*Service)(nil)

func NewService(deps Deps, opts Options, logger *zap.Logger) *Service {
	pack := deps.Pack
	if pack == nil {
		pack = locale.English()
	}
	composer := deps.Composer
	if composer == nil {
		composer = prompt.NewComposer(pack)
	}
	events := deps.Events
	if events == nil {
		events = NopBroadcaster{}
	}
	if opts.HistoryMaxMessages <= 0 {
		opts.HistoryMaxMessages = conversation.DefaultCapacity
	}
	if opts.PromptHistoryMessages <= 0 {
		opts.PromptHistoryMessages = DefaultPromptHistory
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.InitMaxTokens <= 0 {
		opts.InitMaxTokens = opts.MaxTokens
	}

	log := logger.Named("GameService")
	return &Service{
		caller:    deps.Caller,
		composer:  composer,
		extractor: deps.Extractor,
		tasks:     deps.Tasks,
		dice:      deps.Dice,
		events:    events,
		pack:      pack,
		store:     deps.Store,
		persist:   persistence{store: deps.Store, logger: log},
		opts:      opts,
		logger:    log,
		now:       time.Now,
		sessions:  make(map[string]*session),
	}
}

// lookup возвращает сессию из памяти или поднимает ее из хранилища.
func (s *Service) lookup(ctx context.Context, gameID string) (*session, error) {
	gameID = strings.TrimSpace(gameID)
	if gameID == "" {
		return nil, fmt.Errorf("%w: game id is required", models.ErrInvalidInput)
	}

	s.mu.RLock()
	sess, ok := s.sessions[gameID]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[gameID]; ok {
		return sess, nil
	}
	campaign, found := s.persist.loadCampaign(ctx, gameID)
	if !found {
		return nil, fmt.Errorf("%w: %s", models.ErrGameNotFound, gameID)
	}
	sess = s.openSession(ctx, campaign)
	s.sessions[gameID] = sess
	s.logger.Info("Game restored from storage",
		zap.String("gameID", gameID),
		zap.Int("messages", sess.log.Len()),
		zap.Int("players", len(campaign.Players)),
	)
	return sess, nil
}

func (s *Service) openSession(ctx context.Context, campaign models.Campaign) *session {
	log := conversation.NewLog(s.opts.HistoryMaxMessages)
	s.persist.loadHistory(ctx, campaign.ID, log)
	world := worldstate.New(ctx, campaign.ID, s.store, s.pack, s.logger)
	return newSession(campaign, log, world)
}

// existsLocked проверяет и память, и хранилище. Вызывать под s.mu.
func (s *Service) existsLocked(ctx context.Context, gameID string) bool {
	if _, ok := s.sessions[gameID]; ok {
		return true
	}
	_, found := s.persist.loadCampaign(ctx, gameID)
	return found
}

func (s *Service) withDefaults(settings CampaignSettings) CampaignSettings {
	settings.Title = strings.TrimSpace(settings.Title)
	settings.Description = strings.TrimSpace(settings.Description)
	settings.Genre = strings.TrimSpace(settings.Genre)
	if settings.Title == "" {
		settings.Title = s.pack.DefaultTitle
	}
	if settings.Description == "" {
		settings.Description = s.pack.DefaultDesc
	}
	if settings.Genre == "" {
		settings.Genre = s.pack.DefaultGenre
	}
	return settings
}

func (s *Service) gmMessage(content string) models.Message {
	return models.Message{
		Content:   content,
		Sender:    s.pack.GMName,
		Avatar:    s.pack.GMAvatar,
		Kind:      models.KindGM,
		Timestamp: s.now().UTC(),
	}
}

func (s *Service) systemMessage(content string) models.Message {
	return models.Message{
		Content:   content,
		Sender:    s.pack.SystemName,
		Avatar:    s.pack.SystemAvatar,
		Kind:      models.KindSystem,
		Timestamp: s.now().UTC(),
	}
}

// record добавляет сообщение в журнал, сохраняет журнал и оповещает комнату.
func (s *Service) record(ctx context.Context, gameID string, sess *session, msg models.Message) models.Message {
	msg = sess.log.Append(msg)
	s.persist.saveHistory(ctx, gameID, sess.log)
	s.broadcast(ctx, Event{Type: EventNewMessage, GameID: gameID, Payload: msg})
	return msg
}

func (s *Service) broadcast(ctx context.Context, event Event) {
	if err := s.events.Broadcast(ctx, event.GameID, event); err != nil {
		s.logger.Warn("Failed to broadcast event",
			zap.String("gameID", event.GameID),
			zap.String("event", string(event.Type)),
			zap.Error(err),
		)
	}
}

// CreateGame регистрирует новую игру с приветствием ведущего.
func (s *Service) CreateGame(ctx context.Context, settings CampaignSettings) (models.Campaign, error) {
	settings = s.withDefaults(settings)
	gameID := strings.TrimSpace(settings.ID)
	if gameID == "" {
		gameID = uuid.NewString()
	}

	campaign := models.Campaign{
		ID:          gameID,
		Title:       settings.Title,
		Description: settings.Description,
		Genre:       settings.Genre,
		CreatedAt:   s.now().UTC(),
		Players:     []models.Player{},
	}

	s.mu.Lock()
	if s.existsLocked(ctx, gameID) {
		s.mu.Unlock()
		return models.Campaign{}, fmt.Errorf("%w: %s", models.ErrGameExists, gameID)
	}
	sess := s.openSession(ctx, campaign)
	s.sessions[gameID] = sess
	s.mu.Unlock()

	s.persist.saveCampaign(ctx, campaign)
	if sess.log.Len() == 0 {
		s.record(ctx, gameID, sess, s.gmMessage(s.pack.WelcomeMessage))
	}

	s.logger.Info("Game created", zap.String("gameID", gameID), zap.String("title", campaign.Title))
	return sess.snapshot(), nil
}

func (s *Service) GetGame(ctx context.Context, gameID string) (models.Campaign, error) {
	sess, err := s.lookup(ctx, gameID)
	if err != nil {
		return models.Campaign{}, err
	}
	return sess.snapshot(), nil
}

// ListGames возвращает игры, загруженные в память, от старых к новым.
func (s *Service) ListGames(ctx context.Context) []models.Campaign {
	s.mu.RLock()
	out := make([]models.Campaign, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *Service) ListPlayers(ctx context.Context, gameID string) ([]models.Player, error) {
	sess, err := s.lookup(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return sess.players(), nil
}

// AddPlayer добавляет игрока в партию. Пустой ID заменяется на UUID,
// пустой аватар - на первую букву имени.
func (s *Service) AddPlayer(ctx context.Context, gameID string, player models.Player) (models.Player, error) {
	sess, err := s.lookup(ctx, gameID)
	if err != nil {
		return models.Player{}, err
	}

	player.Name = strings.TrimSpace(player.Name)
	player.Character = strings.TrimSpace(player.Character)
	if player.Name == "" {
		return models.Player{}, fmt.Errorf("%w: player name is required", models.ErrInvalidInput)
	}
	if strings.TrimSpace(player.ID) == "" {
		player.ID = uuid.NewString()
	}
	if strings.TrimSpace(player.Avatar) == "" {
		player.Avatar = models.AvatarFor(player.Name)
	}
	player.IsConnected = true

	campaign := sess.addPlayer(player)
	s.persist.saveCampaign(ctx, campaign)
	s.broadcast(ctx, Event{Type: EventPlayerJoined, GameID: campaign.ID, Payload: player})

	s.logger.Info("Player joined",
		zap.String("gameID", campaign.ID),
		zap.String("playerID", player.ID),
		zap.String("name", player.Name),
	)
	return player, nil
}

func (s *Service) GetHistory(ctx context.Context, gameID string) ([]models.Message, error) {
	sess, err := s.lookup(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return sess.log.All(), nil
}

// normalizePlayerMessage проверяет сообщение клиента и заполняет пустые поля.
func (s *Service) normalizePlayerMessage(msg models.Message) (models.Message, error) {
	msg.Content = strings.TrimSpace(msg.Content)
	if msg.Content == "" {
		return models.Message{}, fmt.Errorf("%w: message content is required", models.ErrInvalidInput)
	}
	switch msg.Kind {
	case "":
		msg.Kind = models.KindPlayer
	case models.KindPlayer, models.KindSystem:
	default:
		return models.Message{}, fmt.Errorf("%w: players cannot send '%s' messages", models.ErrInvalidInput, msg.Kind)
	}
	msg.Sender = strings.TrimSpace(msg.Sender)
	if msg.Sender == "" {
		msg.Sender = s.pack.DefaultPlayer
	}
	if strings.TrimSpace(msg.Avatar) == "" {
		msg.Avatar = models.AvatarFor(msg.Sender)
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now().UTC()
	}
	return msg, nil
}

// SendTurn проводит ход игрока: промпт, ответ ведущего, фоновое извлечение фактов.
// Ходы одной игры выполняются по очереди.
func (s *Service) SendTurn(ctx context.Context, gameID string, msg models.Message) (models.Message, error) {
	sess, err := s.lookup(ctx, gameID)
	if err != nil {
		return models.Message{}, err
	}
	msg, err = s.normalizePlayerMessage(msg)
	if err != nil {
		return models.Message{}, err
	}

	if err := sess.acquireTurn(ctx); err != nil {
		return models.Message{}, fmt.Errorf("waiting for previous turn: %w", err)
	}
	defer sess.releaseTurn()

	campaign := sess.snapshot()
	recent := sess.log.Recent(s.opts.PromptHistoryMessages)
	mainPrompt := s.composer.BuildMainPrompt(campaign, sess.world.Summarize(), recent, msg)

	msg = s.record(ctx, campaign.ID, sess, msg)

	// ответ ведущего сохраняется, даже если клиент уже отключился
	started := s.now()
	reply := s.caller.Call(context.WithoutCancel(ctx), mainPrompt, s.opts.MaxTokens)
	gm := s.record(ctx, campaign.ID, sess, s.gmMessage(reply))

	s.logger.Info("Turn completed",
		zap.String("gameID", campaign.ID),
		zap.String("sender", msg.Sender),
		zap.Int("promptLength", len(mainPrompt)),
		zap.Duration("took", s.now().Sub(started)),
	)

	s.scheduleExtraction(campaign.ID, sess, msg.Content, reply)
	return gm, nil
}

// scheduleExtraction ставит извлечение фактов в очередь игры.
// Запасной ответ не разбирается: в нем нет ничего о мире.
func (s *Service) scheduleExtraction(gameID string, sess *session, playerText, reply string) {
	if !s.opts.ExtractionEnabled || s.extractor == nil || s.tasks == nil {
		return
	}
	if d, ok := s.caller.(fallbackDetector); ok && d.IsFallback(reply) {
		s.logger.Debug("Skipping extraction for fallback reply", zap.String("gameID", gameID))
		return
	}

	world := sess.world
	_, err := s.tasks.Submit(gameID, extractionTaskName, func(ctx context.Context) (interface{}, error) {
		if !s.extractor.Extract(ctx, world, playerText, reply) {
			return nil, errExtractionFailed
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.broadcast(ctx, Event{Type: EventWorldUpdated, GameID: gameID, Payload: world.Summarize()})
		return nil, nil
	})
	if err != nil {
		s.logger.Warn("World state extraction not scheduled", zap.String("gameID", gameID), zap.Error(err))
	}
}

// RollDice бросает кости и записывает результат в журнал системным сообщением.
func (s *Service) RollDice(ctx context.Context, gameID string, sides, count, modifier int) (models.DiceRoll, error) {
	sess, err := s.lookup(ctx, gameID)
	if err != nil {
		return models.DiceRoll{}, err
	}
	roll, err := s.dice.Roll(sides, count, modifier)
	if err != nil {
		return models.DiceRoll{}, err
	}

	content := fmt.Sprintf(s.pack.DiceRollForm, dice.Notation(roll), roll.Total)
	s.record(ctx, gameID, sess, s.systemMessage(content))

	s.logger.Debug("Dice rolled", zap.String("gameID", gameID), zap.String("roll", dice.Describe(roll)))
	return roll, nil
}

// reset очищает журнал и мир. Вызывать, держа ход сессии.
func (s *Service) reset(ctx context.Context, gameID string, sess *session) {
	if s.tasks != nil {
		if n := s.tasks.CancelKey(gameID); n > 0 {
			s.logger.Info("Cancelled pending extraction", zap.String("gameID", gameID), zap.Int("tasks", n))
		}
		waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetWaitTimeout)
		if err := s.tasks.Wait(waitCtx, gameID); err != nil {
			s.logger.Warn("Extraction still running during reset", zap.String("gameID", gameID), zap.Error(err))
		}
		cancel()
	}
	sess.log.Clear()
	s.persist.removeHistory(ctx, gameID)
	sess.world.Clear(ctx)
	s.broadcast(ctx, Event{Type: EventGameReset, GameID: gameID})
}

// ResetGame стирает историю и мир игры, метаданные и игроки остаются.
func (s *Service) ResetGame(ctx context.Context, gameID string) error {
	sess, err := s.lookup(ctx, gameID)
	if err != nil {
		return err
	}
	if err := sess.acquireTurn(ctx); err != nil {
		return fmt.Errorf("waiting for previous turn: %w", err)
	}
	defer sess.releaseTurn()

	s.reset(ctx, gameID, sess)
	s.logger.Info("Game reset", zap.String("gameID", gameID))
	return nil
}

// StartCampaign начинает кампанию заново: новые метаданные, чистый журнал и мир,
// вступление ведущего по промпту инициализации. Неизвестная игра создается.
func (s *Service) StartCampaign(ctx context.Context, gameID string, settings CampaignSettings) (models.Message, error) {
	sess, err := s.lookup(ctx, gameID)
	if errors.Is(err, models.ErrGameNotFound) {
		settings.ID = gameID
		if _, err = s.CreateGame(ctx, settings); err != nil && !errors.Is(err, models.ErrGameExists) {
			return models.Message{}, err
		}
		sess, err = s.lookup(ctx, gameID)
	}
	if err != nil {
		return models.Message{}, err
	}

	if err := sess.acquireTurn(ctx); err != nil {
		return models.Message{}, fmt.Errorf("waiting for previous turn: %w", err)
	}
	defer sess.releaseTurn()

	settings = s.withDefaults(settings)
	campaign := sess.updateSettings(settings.Title, settings.Description, settings.Genre)
	s.persist.saveCampaign(ctx, campaign)
	s.reset(ctx, campaign.ID, sess)

	reply := s.caller.Call(context.WithoutCancel(ctx), s.composer.BuildInitializationPrompt(campaign), s.opts.InitMaxTokens)
	intro := s.record(ctx, campaign.ID, sess, s.gmMessage(reply))

	s.logger.Info("Campaign started",
		zap.String("gameID", campaign.ID),
		zap.String("title", campaign.Title),
		zap.String("genre", campaign.Genre),
	)
	return intro, nil
}

func (s *Service) WorldState(ctx context.Context, gameID string) (WorldView, error) {
	sess, err := s.lookup(ctx, gameID)
	if err != nil {
		return WorldView{}, err
	}
	return WorldView{
		Summary: sess.world.Summarize(),
		State:   sess.world.Snapshot(),
	}, nil
}
