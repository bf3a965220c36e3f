package game

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"roleplay-server/internal/dice"
	"roleplay-server/internal/extraction"
	"roleplay-server/internal/llm"
	"roleplay-server/internal/locale"
	"roleplay-server/internal/models"
	"roleplay-server/internal/storage"
	"roleplay-server/pkg/taskmanager"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCaller - мок вызова модели.
type MockCaller struct {
	mock.Mock
}

func (m *MockCaller) Call(ctx context.Context, prompt string, maxOutputTokens int) string {
	return m.Called(ctx, prompt, maxOutputTokens).String(0)
}

// recordingBroadcaster запоминает разосланные события.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingBroadcaster) Broadcast(_ context.Context, _ string, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingBroadcaster) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	svc    *Service
	store  *storage.MemoryStore
	tasks  *taskmanager.TaskManager
	events *recordingBroadcaster
	pack   *locale.Pack
}

func newTestEnv(t *testing.T, caller ModelCaller, store *storage.MemoryStore) *testEnv {
	t.Helper()
	if store == nil {
		store = storage.NewMemoryStore()
	}
	pack := locale.English()
	logger := zap.NewNop()
	tasks := taskmanager.New(taskmanager.Config{MaxTasks: 4}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = tasks.Shutdown(ctx)
	})
	events := &recordingBroadcaster{}

	svc := NewService(Deps{
		Store:     store,
		Caller:    caller,
		Extractor: extraction.NewExtractor(caller, pack, 0, logger),
		Tasks:     tasks,
		Dice:      dice.NewEngine(),
		Events:    events,
		Pack:      pack,
	}, Options{ExtractionEnabled: true}, logger)

	return &testEnv{svc: svc, store: store, tasks: tasks, events: events, pack: pack}
}

func isExtractionPrompt(p string) bool {
	return strings.Contains(p, locale.English().ExtractionIntro)
}

func isMainPrompt(p string) bool {
	return !isExtractionPrompt(p)
}

func TestSendTurn_ModelFailureFallsBackToPool(t *testing.T) {
	pack := locale.English()
	caller := llm.NewFallbackCaller(llm.DemoGenerator{}, pack.FallbackPool, time.Second, zap.NewNop())
	env := newTestEnv(t, caller, nil)
	ctx := context.Background()

	_, err := env.svc.CreateGame(ctx, CampaignSettings{ID: "g1"})
	require.NoError(t, err)

	gm, err := env.svc.SendTurn(ctx, "g1", models.Message{Content: "I open the door", Sender: "Thorin"})
	require.NoError(t, err)

	assert.Equal(t, models.KindGM, gm.Kind)
	assert.NotEmpty(t, gm.Content)
	assert.Contains(t, pack.FallbackPool, gm.Content)

	require.NoError(t, env.tasks.Wait(ctx, "g1"))
	assert.NotContains(t, env.events.types(), EventWorldUpdated)
}

func TestSendTurn_PromptBuiltFromPriorHistory(t *testing.T) {
	caller := new(MockCaller)
	env := newTestEnv(t, caller, nil)
	env.svc.opts.ExtractionEnabled = false
	ctx := context.Background()

	_, err := env.svc.CreateGame(ctx, CampaignSettings{ID: "g1", Genre: "horror"})
	require.NoError(t, err)

	var captured string
	caller.On("Call", mock.Anything, mock.AnythingOfType("string"), DefaultMaxTokens).
		Run(func(args mock.Arguments) { captured = args.String(1) }).
		Return("The corridor is silent.").Once()

	gm, err := env.svc.SendTurn(ctx, "g1", models.Message{Content: "I listen at the door", Sender: "Ann", Character: "Thief"})
	require.NoError(t, err)

	assert.Equal(t, "The corridor is silent.", gm.Content)
	assert.Equal(t, env.pack.GMName, gm.Sender)
	assert.Contains(t, captured, "horror")
	assert.Contains(t, captured, "GM: "+env.pack.WelcomeMessage)
	// текущее сообщение попадает в промпт один раз, не дублируясь в истории
	assert.Equal(t, 1, strings.Count(captured, "Ann (Thief): I listen at the door"))

	history, err := env.svc.GetHistory(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, models.KindPlayer, history[1].Kind)
	assert.Equal(t, "A", history[1].Avatar)
	assert.Equal(t, models.KindGM, history[2].Kind)

	caller.AssertExpectations(t)
}

func TestSendTurn_ExtractionUpdatesWorld(t *testing.T) {
	caller := new(MockCaller)
	env := newTestEnv(t, caller, nil)
	ctx := context.Background()

	_, err := env.svc.CreateGame(ctx, CampaignSettings{ID: "g1"})
	require.NoError(t, err)

	caller.On("Call", mock.Anything, mock.MatchedBy(isMainPrompt), DefaultMaxTokens).
		Return("You reach an abandoned mill.").Once()
	caller.On("Call", mock.Anything, mock.MatchedBy(isExtractionPrompt), extraction.DefaultMaxTokens).
		Return("LOCATIONS:\n- Old Mill: abandoned mill\nNPCS:\nNone\nQUESTS:\n- Find the miller: he vanished\nEVENTS:\n- The party reached the mill\n").Once()

	_, err = env.svc.SendTurn(ctx, "g1", models.Message{Content: "We walk north", Sender: "Ann"})
	require.NoError(t, err)
	require.NoError(t, env.tasks.Wait(ctx, "g1"))

	view, err := env.svc.WorldState(ctx, "g1")
	require.NoError(t, err)
	assert.Contains(t, view.Summary, "- Old Mill: abandoned mill")
	assert.Contains(t, view.Summary, "- Find the miller (active): he vanished")
	assert.Contains(t, view.Summary, "- The party reached the mill")
	assert.NotContains(t, view.Summary, "# NON-PLAYER CHARACTERS")

	assert.Eventually(t, func() bool {
		for _, e := range env.events.types() {
			if e == EventWorldUpdated {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	_, found, err := env.store.Get(ctx, storage.Key(storage.NamespaceWorldState, "g1"))
	require.NoError(t, err)
	assert.True(t, found)

	caller.AssertExpectations(t)
}

func TestSendTurn_Errors(t *testing.T) {
	env := newTestEnv(t, new(MockCaller), nil)
	ctx := context.Background()

	_, err := env.svc.SendTurn(ctx, "missing", models.Message{Content: "hi"})
	assert.ErrorIs(t, err, models.ErrGameNotFound)

	_, err = env.svc.CreateGame(ctx, CampaignSettings{ID: "g1"})
	require.NoError(t, err)

	_, err = env.svc.SendTurn(ctx, "g1", models.Message{Content: "   "})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = env.svc.SendTurn(ctx, "g1", models.Message{Content: "I decide", Kind: models.KindGM})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestCreateGame_DefaultsWelcomeAndDuplicate(t *testing.T) {
	env := newTestEnv(t, new(MockCaller), nil)
	ctx := context.Background()

	campaign, err := env.svc.CreateGame(ctx, CampaignSettings{})
	require.NoError(t, err)
	assert.NotEmpty(t, campaign.ID)
	assert.Equal(t, env.pack.DefaultTitle, campaign.Title)
	assert.Equal(t, env.pack.DefaultGenre, campaign.Genre)
	assert.Empty(t, campaign.Players)

	history, err := env.svc.GetHistory(ctx, campaign.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, env.pack.WelcomeMessage, history[0].Content)

	_, err = env.svc.CreateGame(ctx, CampaignSettings{ID: campaign.ID})
	assert.ErrorIs(t, err, models.ErrGameExists)

	assert.Len(t, env.svc.ListGames(ctx), 1)
}

func TestAddPlayer(t *testing.T) {
	env := newTestEnv(t, new(MockCaller), nil)
	ctx := context.Background()
	_, err := env.svc.CreateGame(ctx, CampaignSettings{ID: "g1"})
	require.NoError(t, err)

	p, err := env.svc.AddPlayer(ctx, "g1", models.Player{Name: " Boromir ", Character: "Human Warrior"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Boromir", p.Name)
	assert.Equal(t, "B", p.Avatar)
	assert.True(t, p.IsConnected)

	players, err := env.svc.ListPlayers(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []models.Player{p}, players)
	assert.Contains(t, env.events.types(), EventPlayerJoined)

	_, err = env.svc.AddPlayer(ctx, "g1", models.Player{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRollDice_RecordsSystemMessage(t *testing.T) {
	env := newTestEnv(t, new(MockCaller), nil)
	ctx := context.Background()
	_, err := env.svc.CreateGame(ctx, CampaignSettings{ID: "g1"})
	require.NoError(t, err)

	roll, err := env.svc.RollDice(ctx, "g1", 20, 2, 3)
	require.NoError(t, err)
	require.Len(t, roll.Results, 2)
	assert.Equal(t, roll.Results[0]+roll.Results[1]+3, roll.Total)

	history, err := env.svc.GetHistory(ctx, "g1")
	require.NoError(t, err)
	last := history[len(history)-1]
	assert.Equal(t, models.KindSystem, last.Kind)
	assert.Equal(t, env.pack.SystemName, last.Sender)
	assert.True(t, strings.HasPrefix(last.Content, "[Dice roll: 2d20+3 = "))

	_, err = env.svc.RollDice(ctx, "g1", 0, 1, 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestResetGame_ClearsHistoryAndWorld(t *testing.T) {
	env := newTestEnv(t, new(MockCaller), nil)
	ctx := context.Background()
	_, err := env.svc.CreateGame(ctx, CampaignSettings{ID: "g1"})
	require.NoError(t, err)
	_, err = env.svc.AddPlayer(ctx, "g1", models.Player{Name: "Ann"})
	require.NoError(t, err)

	sess, err := env.svc.lookup(ctx, "g1")
	require.NoError(t, err)
	require.NoError(t, sess.world.UpsertLocation(ctx, "Old Mill", "abandoned"))

	require.NoError(t, env.svc.ResetGame(ctx, "g1"))

	history, err := env.svc.GetHistory(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, history)

	view, err := env.svc.WorldState(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(view.Summary))

	players, err := env.svc.ListPlayers(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, players, 1)

	_, found, err := env.store.Get(ctx, storage.Key(storage.NamespaceHistory, "g1"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Contains(t, env.events.types(), EventGameReset)
}

func TestResetGame_WaitsForRunningExtraction(t *testing.T) {
	caller := new(MockCaller)
	env := newTestEnv(t, caller, nil)
	ctx := context.Background()
	_, err := env.svc.CreateGame(ctx, CampaignSettings{ID: "g1"})
	require.NoError(t, err)

	extracting := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	caller.On("Call", mock.Anything, mock.MatchedBy(isMainPrompt), DefaultMaxTokens).
		Return("You reach an abandoned mill.")
	caller.On("Call", mock.Anything, mock.MatchedBy(isExtractionPrompt), extraction.DefaultMaxTokens).
		Run(func(mock.Arguments) {
			once.Do(func() { close(extracting) })
			<-release
		}).
		Return("LOCATIONS:\n- Old Mill: abandoned mill\n")

	_, err = env.svc.SendTurn(ctx, "g1", models.Message{Content: "We walk north", Sender: "Ann"})
	require.NoError(t, err)
	<-extracting
	_, err = env.svc.SendTurn(ctx, "g1", models.Message{Content: "We go inside", Sender: "Ann"})
	require.NoError(t, err)

	resetDone := make(chan error, 1)
	go func() { resetDone <- env.svc.ResetGame(ctx, "g1") }()

	select {
	case err := <-resetDone:
		t.Fatalf("ResetGame returned (%v) while extraction was still running", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-resetDone:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("ResetGame did not return")
	}

	view, err := env.svc.WorldState(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(view.Summary))
	assert.Equal(t, 0, view.State.Locations.Len())

	_, found, err := env.store.Get(ctx, storage.Key(storage.NamespaceWorldState, "g1"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStartCampaign_CreatesUnknownGameWithIntro(t *testing.T) {
	caller := new(MockCaller)
	env := newTestEnv(t, caller, nil)
	ctx := context.Background()

	caller.On("Call", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Night over Prague")
	}), DefaultMaxTokens).Return("Fog rolls over the river.").Once()

	intro, err := env.svc.StartCampaign(ctx, "noir", CampaignSettings{Title: "Night over Prague", Genre: "noir"})
	require.NoError(t, err)
	assert.Equal(t, "Fog rolls over the river.", intro.Content)

	campaign, err := env.svc.GetGame(ctx, "noir")
	require.NoError(t, err)
	assert.Equal(t, "Night over Prague", campaign.Title)
	assert.Equal(t, "noir", campaign.Genre)

	history, err := env.svc.GetHistory(ctx, "noir")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, intro, history[0])

	caller.AssertExpectations(t)
}

func TestLookup_RestoresGameFromStore(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	first := newTestEnv(t, new(MockCaller), store)
	_, err := first.svc.CreateGame(ctx, CampaignSettings{ID: "g1", Title: "Saved"})
	require.NoError(t, err)
	_, err = first.svc.AddPlayer(ctx, "g1", models.Player{Name: "Ann"})
	require.NoError(t, err)

	second := newTestEnv(t, new(MockCaller), store)
	campaign, err := second.svc.GetGame(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Saved", campaign.Title)
	assert.Len(t, campaign.Players, 1)

	history, err := second.svc.GetHistory(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestSeedDemo_IsIdempotent(t *testing.T) {
	env := newTestEnv(t, new(MockCaller), nil)
	ctx := context.Background()

	env.svc.SeedDemo(ctx)
	env.svc.SeedDemo(ctx)

	players, err := env.svc.ListPlayers(ctx, DemoGameID)
	require.NoError(t, err)
	assert.Len(t, players, 4)

	history, err := env.svc.GetHistory(ctx, DemoGameID)
	require.NoError(t, err)
	require.Len(t, history, 8)
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].Timestamp.After(history[i-1].Timestamp))
	}
	assert.Equal(t, "Human Ranger", history[5].Character)
}
