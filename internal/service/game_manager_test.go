package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/quiz-bot/internal/domain/entity"
	"github.com/yourusername/quiz-bot/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-bot/internal/pkg/errors"
	redisRepo "github.com/yourusername/quiz-bot/internal/repository/redis"
	"github.com/yourusername/quiz-bot/internal/service/gamesession"
)

// ============================================================================
// Моки
// ============================================================================

// MockQuizRepository реализует repository.QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) GetByAccessCode(code string) (*entity.Quiz, error) {
	args := m.Called(code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

// MockResultRepository реализует repository.ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) SaveGame(game *entity.Game) error {
	args := m.Called(game)
	return args.Error(0)
}

func (m *MockResultRepository) SaveResults(results []entity.Result) error {
	args := m.Called(results)
	return args.Error(0)
}

func (m *MockResultRepository) GetGuildResults(guildID int64, limit, offset int) ([]entity.Result, int64, error) {
	args := m.Called(guildID, limit, offset)
	return args.Get(0).([]entity.Result), args.Get(1).(int64), args.Error(2)
}

// channelPresenter транслирует вызовы отображения в каналы
type channelPresenter struct {
	mu          sync.Mutex
	nextSurface int

	Questions chan gamesession.QuestionView
	Boards    chan gamesession.ScoreboardView
	Notices   chan string
}

func newChannelPresenter() *channelPresenter {
	return &channelPresenter{
		Questions: make(chan gamesession.QuestionView, 16),
		Boards:    make(chan gamesession.ScoreboardView, 16),
		Notices:   make(chan string, 16),
	}
}

func (p *channelPresenter) RenderQuestion(ctx context.Context, channelID int64, surfaceID string, view gamesession.QuestionView) (string, error) {
	p.mu.Lock()
	p.nextSurface++
	id := surfaceID
	if id == "" {
		id = fmt.Sprintf("surface-%d", p.nextSurface)
	}
	p.mu.Unlock()
	p.Questions <- view
	return id, nil
}

func (p *channelPresenter) RenderReveal(ctx context.Context, channelID int64, surfaceID string, view gamesession.RevealView) error {
	return nil
}

func (p *channelPresenter) RenderScoreboard(ctx context.Context, channelID int64, surfaceID string, view gamesession.ScoreboardView) error {
	p.Boards <- view
	return nil
}

func (p *channelPresenter) SendNotice(ctx context.Context, channelID int64, text string) error {
	p.Notices <- text
	return nil
}

// ============================================================================
// Вспомогательные функции
// ============================================================================

func awaitEvent[T any](t *testing.T, ch chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(4 * time.Second):
		t.Fatalf("не дождались события: %s", what)
		panic("unreachable")
	}
}

func managerQuiz() *entity.Quiz {
	return &entity.Quiz{
		ID:         1,
		Title:      "Столицы мира",
		AccessCode: "CAP123",
		IsActive:   true,
		Questions: []entity.Question{
			{
				Text: "Столица Франции?",
				Options: entity.OptionList{
					{Label: "Париж", IsCorrect: true},
					{Label: "Лион"},
				},
				TimeLimitSec: 60,
			},
		},
	}
}

type managerFixture struct {
	quizRepo   *MockQuizRepository
	resultRepo *MockResultRepository
	presenter  *channelPresenter
	store      *gamesession.Store
	cache      repository.CacheRepository
	manager    *GameManager
}

func newManagerFixture(t *testing.T, shards ShardConfig) *managerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cache, err := redisRepo.NewCacheRepo(client)
	require.NoError(t, err)

	f := &managerFixture{
		quizRepo:   new(MockQuizRepository),
		resultRepo: new(MockResultRepository),
		presenter:  newChannelPresenter(),
		store:      gamesession.NewStore(cache, time.Hour),
		cache:      cache,
	}

	cfg := &gamesession.Config{
		JoinWindowSec:        1,
		AnswerDisplaySec:     5,
		ScoreboardDisplaySec: 5,
		PrivateFeedback:      true,
		SnapshotTTL:          time.Hour,
	}
	settings := gamesession.NewSettingsStore(cache)
	f.manager = NewGameManager(context.Background(), f.quizRepo, f.resultRepo, f.store, settings, f.presenter, cfg, shards)
	return f
}

func singleWorker() ShardConfig {
	return ShardConfig{WorkerIndex: 0, TotalWorkers: 1, TotalShards: 1}
}

// ============================================================================
// Тесты
// ============================================================================

func TestGameManager_StartQuiz_UnknownCode(t *testing.T) {
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "NOPE").Return(nil, apperrors.ErrNotFound)

	_, err := f.manager.StartQuiz("NOPE", 1, 2, 100, nil, "msg-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGameManager_StartQuiz_OnlyOneGamePerChannel(t *testing.T) {
	// Arrange
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "CAP123").Return(managerQuiz(), nil)

	// Act
	_, err := f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-1")
	require.NoError(t, err)
	_, err = f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-2")

	// Assert: второе окно на том же канале отклонено
	assert.ErrorIs(t, err, apperrors.ErrSessionAlreadyActive)

	// Другой канал той же гильдии — своя игра
	_, err = f.manager.StartQuiz("CAP123", 1, 3, 100, nil, "msg-3")
	assert.NoError(t, err)
}

func TestGameManager_JoinWithoutGate(t *testing.T) {
	f := newManagerFixture(t, singleWorker())

	_, err := f.manager.JoinQuiz(1, 2, 5)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)
}

func TestGameManager_GateToSessionLifecycle(t *testing.T) {
	// Arrange
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "CAP123").Return(managerQuiz(), nil)
	f.resultRepo.On("SaveGame", mock.Anything).Return(nil)
	f.resultRepo.On("SaveResults", mock.Anything).Return(nil)

	// Act: открываем окно, присоединяем двух участников
	_, err := f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-1")
	require.NoError(t, err)

	res, err := f.manager.JoinQuiz(1, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, gamesession.JoinAccepted, res)
	_, err = f.manager.JoinQuiz(1, 2, 200)
	require.NoError(t, err)

	// Окно закрывается, игра стартует
	q := awaitEvent(t, f.presenter.Questions, "вопрос 1")
	assert.Equal(t, 1, q.Number)

	sessions := f.manager.ActiveSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Столицы мира", sessions[0].QuizTitle)

	// Присоединиться к идущей игре нельзя
	_, err = f.manager.JoinQuiz(1, 2, 300)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	// Ответ через менеджер
	out, err := f.manager.SubmitAnswer(1, 2, 100, 0)
	require.NoError(t, err)
	assert.True(t, out.Correct)

	// Исключение и завершение — только с правами ведущего
	err = f.manager.KickPlayer(1, 2, 200, 100, false)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	err = f.manager.EndQuiz(1, 2, 200, false)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	require.NoError(t, f.manager.EndQuiz(1, 2, 100, false))

	final := awaitEvent(t, f.presenter.Boards, "финальная таблица")
	assert.True(t, final.Final)

	// Сессия удалена из реестра
	assert.Eventually(t, func() bool {
		return len(f.manager.ActiveSessions()) == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestGameManager_NoParticipantsCancelsGame(t *testing.T) {
	// Arrange
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "CAP123").Return(managerQuiz(), nil)

	// Act: никто не присоединяется за окно
	_, err := f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-1")
	require.NoError(t, err)

	// Assert: игра отменена уведомлением, сессий нет
	awaitEvent(t, f.presenter.Notices, "уведомление об отмене")
	assert.Empty(t, f.manager.ActiveSessions())
}

func TestGameManager_EndQuizCancelsGate(t *testing.T) {
	// Arrange
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "CAP123").Return(managerQuiz(), nil)

	_, err := f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-1")
	require.NoError(t, err)

	// Act: ведущий отменяет игру до закрытия окна
	require.NoError(t, f.manager.EndQuiz(1, 2, 100, false))

	// Assert
	_, err = f.manager.JoinQuiz(1, 2, 5)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	// Таймер окна остановлен — игра не стартует
	select {
	case <-f.presenter.Questions:
		t.Fatal("игра не должна была стартовать после отмены окна")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestGameManager_SkipQuestionAuthorization(t *testing.T) {
	// Arrange
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "CAP123").Return(managerQuiz(), nil)
	f.resultRepo.On("SaveGame", mock.Anything).Return(nil)
	f.resultRepo.On("SaveResults", mock.Anything).Return(nil)

	_, err := f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-1")
	require.NoError(t, err)
	_, err = f.manager.JoinQuiz(1, 2, 200)
	require.NoError(t, err)
	awaitEvent(t, f.presenter.Questions, "вопрос 1")

	// Act & Assert: обычный участник не может пропустить вопрос
	err = f.manager.SkipQuestion(1, 2, 200, false)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	// Администратор может, даже не будучи ведущим
	assert.NoError(t, f.manager.SkipQuestion(1, 2, 200, true))
}

func TestGameManager_HandleSurfaceDeleted(t *testing.T) {
	// Arrange
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "CAP123").Return(managerQuiz(), nil)

	_, err := f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-1")
	require.NoError(t, err)
	_, err = f.manager.JoinQuiz(1, 2, 100)
	require.NoError(t, err)
	awaitEvent(t, f.presenter.Questions, "вопрос 1")

	sessions := f.manager.ActiveSessions()
	require.Len(t, sessions, 1)

	// Удаление постороннего сообщения игру не трогает
	f.manager.HandleSurfaceDeleted(1, 2, "some-other-message")
	assert.Len(t, f.manager.ActiveSessions(), 1)

	// Act: удалено само сообщение игры
	f.manager.HandleSurfaceDeleted(1, 2, "msg-1")

	// Assert: игра прервана
	awaitEvent(t, f.presenter.Notices, "уведомление о прерывании")
	assert.Eventually(t, func() bool {
		return len(f.manager.ActiveSessions()) == 0
	}, 2*time.Second, 20*time.Millisecond)
	f.resultRepo.AssertNotCalled(t, "SaveGame", mock.Anything)
}

func TestGameManager_HandleSurfaceDeleted_DuringJoinWindow(t *testing.T) {
	// Arrange: открытое окно присоединения с участником
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "CAP123").Return(managerQuiz(), nil)

	_, err := f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-1")
	require.NoError(t, err)
	_, err = f.manager.JoinQuiz(1, 2, 200)
	require.NoError(t, err)

	// Удаление постороннего сообщения окно не трогает
	f.manager.HandleSurfaceDeleted(1, 2, "some-other-message")
	_, err = f.manager.JoinQuiz(1, 2, 300)
	require.NoError(t, err)

	// Act: удалено само приглашение
	f.manager.HandleSurfaceDeleted(1, 2, "msg-1")

	// Assert: окно отменено с уведомлением, присоединиться больше нельзя
	awaitEvent(t, f.presenter.Notices, "уведомление о прерывании")
	_, err = f.manager.JoinQuiz(1, 2, 400)
	assert.ErrorIs(t, err, apperrors.ErrNoActiveSession)

	// Таймер окна остановлен — игра не стартует на удаленной поверхности
	select {
	case <-f.presenter.Questions:
		t.Fatal("игра не должна была стартовать после удаления приглашения")
	case <-time.After(1500 * time.Millisecond):
	}
	assert.Empty(t, f.manager.ActiveSessions())
}

func TestGameManager_RecoverSessions_OnlyOwnShards(t *testing.T) {
	// Arrange: два снапшота в разных шардах, воркер владеет только шардом 0
	f := newManagerFixture(t, ShardConfig{WorkerIndex: 0, TotalWorkers: 2, TotalShards: 2})

	quiz := managerQuiz()
	ownGuild := int64(0) << 22   // шард 0
	otherGuild := int64(1) << 22 // шард 1

	for _, guildID := range []int64{ownGuild, otherGuild} {
		f.store.Save(&gamesession.Snapshot{
			Version:      gamesession.SnapshotVersion,
			GuildID:      guildID,
			ChannelID:    7,
			QuizTitle:    quiz.Title,
			QuizCode:     quiz.AccessCode,
			Questions:    []gamesession.QuestionSnapshot{{Text: "Вопрос", Options: []gamesession.OptionSnapshot{{Label: "Да", IsCorrect: true}, {Label: "Нет"}}, TimeLimitSec: 60}},
			Participants: []int64{1, 2},
			CurrentIndex: 0,
			Scores:       map[string]int{},
			Streaks:      map[string]int{"1": 0, "2": 0},
			StarterID:    1,
		})
	}

	// Act
	require.NoError(t, f.manager.RecoverSessions())

	// Assert: восстановлена только своя сессия
	q := awaitEvent(t, f.presenter.Questions, "возобновленный вопрос")
	assert.Equal(t, 1, q.Number)

	sessions := f.manager.ActiveSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, ownGuild, sessions[0].GuildID)

	// Чужой снапшот не тронут
	_, err := f.store.Load(otherGuild, 7)
	assert.NoError(t, err)
}

func TestGameManager_RecoverSessions_ResumedGameIsPlayable(t *testing.T) {
	// Arrange
	f := newManagerFixture(t, singleWorker())
	f.resultRepo.On("SaveGame", mock.Anything).Return(nil)
	f.resultRepo.On("SaveResults", mock.Anything).Return(nil)

	f.store.Save(&gamesession.Snapshot{
		Version:      gamesession.SnapshotVersion,
		GuildID:      5,
		ChannelID:    7,
		QuizTitle:    "Столицы мира",
		QuizCode:     "CAP123",
		Questions:    []gamesession.QuestionSnapshot{{Text: "Вопрос", Options: []gamesession.OptionSnapshot{{Label: "Да", IsCorrect: true}, {Label: "Нет"}}, TimeLimitSec: 60}},
		Participants: []int64{1},
		CurrentIndex: 0,
		Scores:       map[string]int{},
		Streaks:      map[string]int{"1": 0},
		StarterID:    1,
	})

	// Act
	require.NoError(t, f.manager.RecoverSessions())
	awaitEvent(t, f.presenter.Questions, "возобновленный вопрос")

	// Assert: восстановленная игра принимает ответы
	out, err := f.manager.SubmitAnswer(5, 7, 1, 0)
	require.NoError(t, err)
	assert.True(t, out.Correct)
}

func TestGameManager_GuildSettingsOverride(t *testing.T) {
	// Arrange: гильдия отключила приватные ответы в своих настройках
	f := newManagerFixture(t, singleWorker())
	f.quizRepo.On("GetByAccessCode", "CAP123").Return(managerQuiz(), nil)
	f.resultRepo.On("SaveGame", mock.Anything).Return(nil)
	f.resultRepo.On("SaveResults", mock.Anything).Return(nil)

	public := false
	require.NoError(t, f.cache.SetJSON("guild_settings:1", gamesession.GuildSettings{
		PrivateFeedback: &public,
	}, time.Hour))

	// Act
	_, err := f.manager.StartQuiz("CAP123", 1, 2, 100, nil, "msg-1")
	require.NoError(t, err)
	_, err = f.manager.JoinQuiz(1, 2, 100)
	require.NoError(t, err)
	awaitEvent(t, f.presenter.Questions, "вопрос 1")

	out, err := f.manager.SubmitAnswer(1, 2, 100, 0)
	require.NoError(t, err)

	// Assert: вместо приватного по умолчанию — публичный ответ
	assert.False(t, out.Private)
}
