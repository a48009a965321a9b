package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/quiz-bot/internal/domain/entity"
	"github.com/yourusername/quiz-bot/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-bot/internal/pkg/errors"
	"github.com/yourusername/quiz-bot/internal/service/gamesession"
	"github.com/yourusername/quiz-bot/internal/sharding"
)

// ShardConfig описывает долю каналов, обслуживаемую этим воркером
type ShardConfig struct {
	WorkerIndex  int
	TotalWorkers int
	TotalShards  int
}

// GameManager — точка входа модуля игр. Держит реестры живых сессий и окон
// присоединения с ключом (гильдия, канал), обеспечивает правило "одна живая
// игра на канал" и отвечает за восстановление сессий своих шардов при старте.
type GameManager struct {
	quizRepo   repository.QuizRepository
	resultRepo repository.ResultRepository
	store      *gamesession.Store
	settings   *gamesession.SettingsStore // nil — всегда настройки по умолчанию
	presenter  gamesession.Presenter
	cfg        *gamesession.Config
	shards     ShardConfig

	mu       sync.RWMutex
	sessions map[gamesession.Key]*gamesession.Session
	gates    map[gamesession.Key]*gateEntry

	ctx context.Context
}

// gateEntry связывает окно присоединения с его таймером закрытия
// и эффективной конфигурацией будущей игры
type gateEntry struct {
	gate  *gamesession.JoinGate
	quiz  *entity.Quiz
	cfg   *gamesession.Config
	timer *time.Timer
}

// NewGameManager создает менеджер игр.
// settings может быть nil — тогда все игры используют настройки по умолчанию.
func NewGameManager(
	ctx context.Context,
	quizRepo repository.QuizRepository,
	resultRepo repository.ResultRepository,
	store *gamesession.Store,
	settings *gamesession.SettingsStore,
	presenter gamesession.Presenter,
	cfg *gamesession.Config,
	shards ShardConfig,
) *GameManager {
	effective := *cfg
	effective.Normalize()
	return &GameManager{
		quizRepo:   quizRepo,
		resultRepo: resultRepo,
		store:      store,
		settings:   settings,
		presenter:  presenter,
		cfg:        &effective,
		shards:     shards,
		sessions:   make(map[gamesession.Key]*gamesession.Session),
		gates:      make(map[gamesession.Key]*gateEntry),
		ctx:        ctx,
	}
}

// configForGuild возвращает конфигурацию игры с учетом настроек гильдии
func (m *GameManager) configForGuild(guildID int64) *gamesession.Config {
	if m.settings == nil {
		return m.cfg
	}
	return m.settings.ForGuild(guildID, m.cfg)
}

// deps собирает зависимости для создаваемых сессий
func (m *GameManager) deps() *gamesession.Dependencies {
	return &gamesession.Dependencies{
		Store:      m.store,
		ResultRepo: m.resultRepo,
		Presenter:  m.presenter,
	}
}

// StartQuiz открывает окно присоединения для викторины на канале.
// allowList == nil означает открытую игру. surfaceID — сообщение с приглашением,
// которое после закрытия окна станет поверхностью игры.
// Возвращает apperrors.ErrSessionAlreadyActive, если на канале уже идет игра
// или открыто окно присоединения, и apperrors.ErrNotFound при неизвестном коде.
func (m *GameManager) StartQuiz(accessCode string, guildID, channelID, starterID int64, allowList []int64, surfaceID string) (*gamesession.JoinGate, error) {
	quiz, err := m.quizRepo.GetByAccessCode(accessCode)
	if err != nil {
		return nil, err
	}

	key := gamesession.Key{GuildID: guildID, ChannelID: channelID}

	m.mu.Lock()
	if _, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return nil, apperrors.ErrSessionAlreadyActive
	}
	if _, ok := m.gates[key]; ok {
		m.mu.Unlock()
		return nil, apperrors.ErrSessionAlreadyActive
	}

	gateCfg := m.configForGuild(guildID)
	gate := gamesession.NewJoinGate(starterID, allowList, surfaceID)
	entry := &gateEntry{gate: gate, quiz: quiz, cfg: gateCfg}
	entry.timer = time.AfterFunc(time.Duration(gateCfg.JoinWindowSec)*time.Second, func() {
		m.finishGate(key)
	})
	m.gates[key] = entry
	m.mu.Unlock()

	log.Printf("[GameManager] %s: открыто окно присоединения к викторине \"%s\" (код %s)", key, quiz.Title, accessCode)
	return gate, nil
}

// finishGate закрывает окно присоединения и запускает игру.
// Без участников игра не запускается.
func (m *GameManager) finishGate(key gamesession.Key) {
	m.mu.Lock()
	entry, ok := m.gates[key]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.gates, key)

	participants := entry.gate.Close()
	if len(participants) == 0 {
		m.mu.Unlock()
		log.Printf("[GameManager] %s: никто не присоединился, игра не запущена", key)
		if err := m.presenter.SendNotice(m.ctx, key.ChannelID, "Никто не присоединился к игре. Викторина отменена."); err != nil {
			log.Printf("[GameManager] %s: ошибка отправки уведомления: %v", key, err)
		}
		return
	}

	session := gamesession.New(key, entry.quiz, participants, entry.gate.StarterID(), entry.gate.SurfaceID(), entry.cfg, m.deps(), m.ctx, m.removeSession)
	m.sessions[key] = session
	m.mu.Unlock()

	go session.Start()
}

// JoinQuiz обрабатывает попытку пользователя присоединиться к игре на канале
func (m *GameManager) JoinQuiz(guildID, channelID, userID int64) (gamesession.JoinResult, error) {
	key := gamesession.Key{GuildID: guildID, ChannelID: channelID}

	m.mu.RLock()
	entry, ok := m.gates[key]
	m.mu.RUnlock()

	if !ok {
		return 0, apperrors.ErrNoActiveSession
	}
	return entry.gate.Admit(userID)
}

// SubmitAnswer передает ответ участника в сессию канала
func (m *GameManager) SubmitAnswer(guildID, channelID, userID int64, option int) (*gamesession.AnswerOutcome, error) {
	session, err := m.session(guildID, channelID)
	if err != nil {
		return nil, err
	}
	return session.SubmitAnswer(userID, option)
}

// SkipQuestion досрочно закрывает текущий вопрос.
// Разрешено только ведущему игры или администратору.
func (m *GameManager) SkipQuestion(guildID, channelID, requesterID int64, isAdmin bool) error {
	session, err := m.session(guildID, channelID)
	if err != nil {
		return err
	}
	if requesterID != session.StarterID() && !isAdmin {
		return apperrors.ErrUnauthorized
	}
	return session.Skip()
}

// EndQuiz принудительно завершает игру или отменяет окно присоединения.
// Разрешено только ведущему игры или администратору.
func (m *GameManager) EndQuiz(guildID, channelID, requesterID int64, isAdmin bool) error {
	key := gamesession.Key{GuildID: guildID, ChannelID: channelID}

	m.mu.Lock()
	if entry, ok := m.gates[key]; ok {
		if requesterID != entry.gate.StarterID() && !isAdmin {
			m.mu.Unlock()
			return apperrors.ErrUnauthorized
		}
		entry.timer.Stop()
		entry.gate.Close()
		delete(m.gates, key)
		m.mu.Unlock()
		log.Printf("[GameManager] %s: окно присоединения отменено пользователем %d", key, requesterID)
		return nil
	}
	session, ok := m.sessions[key]
	m.mu.Unlock()

	if !ok {
		return apperrors.ErrNoActiveSession
	}
	if requesterID != session.StarterID() && !isAdmin {
		return apperrors.ErrUnauthorized
	}
	log.Printf("[GameManager] %s: игра принудительно завершена пользователем %d", key, requesterID)
	return session.End()
}

// KickPlayer исключает участника из игры.
// Разрешено только ведущему игры или администратору.
func (m *GameManager) KickPlayer(guildID, channelID, requesterID, targetID int64, isAdmin bool) error {
	session, err := m.session(guildID, channelID)
	if err != nil {
		return err
	}
	if requesterID != session.StarterID() && !isAdmin {
		return apperrors.ErrUnauthorized
	}
	return session.Kick(targetID)
}

// HandleSurfaceDeleted обрабатывает удаление сообщения на канале.
// Если удалено приглашение открытого окна присоединения, окно отменяется;
// если удалено сообщение живой игры, сессия аварийно завершается.
func (m *GameManager) HandleSurfaceDeleted(guildID, channelID int64, surfaceID string) {
	key := gamesession.Key{GuildID: guildID, ChannelID: channelID}

	m.mu.Lock()
	if entry, ok := m.gates[key]; ok {
		if entry.gate.SurfaceID() != surfaceID {
			m.mu.Unlock()
			return
		}
		entry.timer.Stop()
		entry.gate.Close()
		delete(m.gates, key)
		m.mu.Unlock()

		log.Printf("[GameManager] %s: окно присоединения отменено: сообщение с приглашением удалено", key)
		if err := m.presenter.SendNotice(m.ctx, channelID, "Игра прервана: сообщение с игрой было удалено."); err != nil {
			log.Printf("[GameManager] %s: ошибка отправки уведомления: %v", key, err)
		}
		return
	}
	session, ok := m.sessions[key]
	m.mu.Unlock()

	if !ok || session.SurfaceID() != surfaceID {
		return
	}
	session.Abort()
}

// RecoverSessions восстанавливает из снапшотов сессии, принадлежащие шардам
// этого воркера. Чужие снапшоты не трогаются: их восстановят воркеры-владельцы.
func (m *GameManager) RecoverSessions() error {
	shards, err := sharding.CalcShards(m.shards.WorkerIndex, m.shards.TotalWorkers, m.shards.TotalShards)
	if err != nil {
		return fmt.Errorf("failed to calculate shard range: %w", err)
	}
	owned := make(map[int]struct{}, len(shards))
	for _, sh := range shards {
		owned[sh] = struct{}{}
	}

	keys, err := m.store.ListKeys()
	if err != nil {
		return fmt.Errorf("failed to list session snapshots: %w", err)
	}

	recovered := 0
	for _, key := range keys {
		guildID, channelID, err := gamesession.ParseSessionKey(key)
		if err != nil {
			log.Printf("[GameManager] Некорректный ключ снапшота %q: %v", key, err)
			continue
		}
		if _, ok := owned[sharding.ShardForGuild(guildID, m.shards.TotalShards)]; !ok {
			continue
		}

		snap, err := m.store.Load(guildID, channelID)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotFound) {
				log.Printf("[GameManager] Ошибка загрузки снапшота %q: %v", key, err)
			}
			continue
		}
		if snap.Ended {
			m.store.Delete(guildID, channelID)
			continue
		}

		sessionKey := gamesession.Key{GuildID: guildID, ChannelID: channelID}
		m.mu.Lock()
		if _, ok := m.sessions[sessionKey]; ok {
			m.mu.Unlock()
			continue
		}
		session := gamesession.Restore(snap, m.cfg, m.deps(), m.ctx, m.removeSession)
		m.sessions[sessionKey] = session
		m.mu.Unlock()

		go session.Resume()
		recovered++
	}

	log.Printf("[GameManager] Восстановлено сессий: %d (шарды %v)", recovered, shards)
	return nil
}

// ActiveSessions возвращает сводки по всем живым сессиям воркера
func (m *GameManager) ActiveSessions() []gamesession.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]gamesession.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, s.Info())
	}
	return infos
}

// Shutdown отменяет открытые окна присоединения при остановке воркера.
// Живые сессии намеренно не завершаются: их снапшоты остаются в хранилище,
// и после перезапуска воркер-владелец продолжит игры с текущего вопроса.
func (m *GameManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, entry := range m.gates {
		entry.timer.Stop()
		entry.gate.Close()
		delete(m.gates, key)
	}
	log.Printf("[GameManager] Остановка: окна присоединения закрыты, %d сессий останутся в снапшотах", len(m.sessions))
}

// session возвращает живую сессию канала
func (m *GameManager) session(guildID, channelID int64) (*gamesession.Session, error) {
	key := gamesession.Key{GuildID: guildID, ChannelID: channelID}

	m.mu.RLock()
	session, ok := m.sessions[key]
	m.mu.RUnlock()

	if !ok {
		return nil, apperrors.ErrNoActiveSession
	}
	return session, nil
}

// removeSession убирает завершенную сессию из реестра
func (m *GameManager) removeSession(key gamesession.Key) {
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
	log.Printf("[GameManager] %s: сессия удалена из реестра", key)
}
