package gamesession

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/quiz-bot/internal/domain/entity"
	apperrors "github.com/yourusername/quiz-bot/internal/pkg/errors"
)

// AnswerOutcome — результат обработки ответа участника
type AnswerOutcome struct {
	Correct     bool
	Points      int
	TotalScore  int
	Streak      int
	AllAnswered bool // все допущенные участники ответили, вопрос закрывается досрочно
	Private     bool // подтверждение следует отправить участнику лично
}

// SessionInfo — сводка о сессии для статусного API
type SessionInfo struct {
	GuildID        int64  `json:"guild_id"`
	ChannelID      int64  `json:"channel_id"`
	QuizTitle      string `json:"quiz_title"`
	CurrentIndex   int    `json:"current_index"`
	TotalQuestions int    `json:"total_questions"`
	Participants   int    `json:"participants"`
	Ended          bool   `json:"ended"`
}

// Session управляет жизненным циклом одной игры: задает вопросы по таймеру,
// принимает ответы, начисляет очки и записывает итоги. Сессия однопоточна
// по отношению к смене вопросов: переходом между вопросами в каждый момент
// занимается не более одной горутины (флаг grading), а все изменения
// состояния защищены mu.
type Session struct {
	key       Key
	quiz      *entity.Quiz
	cfg       *Config
	deps      *Dependencies
	starterID int64

	mu           sync.Mutex
	surfaceID    string
	order        []int64 // участники в порядке допуска
	kicked       map[int64]struct{}
	scores       map[int64]int
	streaks      map[int64]int
	answered     map[int64]struct{} // ответившие на текущий вопрос
	correctCount int                // число правильных ответов на текущий вопрос
	index        int                // номер текущего вопроса, 0-based
	ended        bool
	aborted      bool
	timerCancel  context.CancelFunc

	// grading == 1, пока идет обработка закрытого вопроса (раскрытие ответа,
	// таблица, переход к следующему). В это время новые ответы отклоняются.
	grading int32

	ctx         context.Context // контекст воркера для операций отображения
	quit        chan struct{}   // закрывается при завершении сессии, прерывает паузы
	quitOnce    sync.Once
	onTerminate func(Key)
}

// New создает сессию для викторины с зафиксированным списком участников.
// Викторина копируется: правки в панели управления не влияют на идущую игру.
// cfg должен быть уже нормализован вызывающей стороной.
func New(key Key, quiz *entity.Quiz, participants []int64, starterID int64, surfaceID string, cfg *Config, deps *Dependencies, ctx context.Context, onTerminate func(Key)) *Session {
	effective := *cfg

	s := &Session{
		key:         key,
		quiz:        quiz.Clone(),
		cfg:         &effective,
		deps:        deps,
		starterID:   starterID,
		surfaceID:   surfaceID,
		order:       append([]int64(nil), participants...),
		kicked:      make(map[int64]struct{}),
		scores:      make(map[int64]int),
		streaks:     make(map[int64]int),
		answered:    make(map[int64]struct{}),
		ctx:         ctx,
		quit:        make(chan struct{}),
		onTerminate: onTerminate,
	}
	for _, id := range participants {
		s.streaks[id] = 0
	}
	return s
}

// Restore восстанавливает сессию из снапшота после перезапуска воркера.
// Поверхность предыдущего воркера считается потерянной: при возобновлении
// текущий вопрос будет отображен заново на новой поверхности.
func Restore(snap *Snapshot, cfg *Config, deps *Dependencies, ctx context.Context, onTerminate func(Key)) *Session {
	effective := *cfg
	effective.AnswerDisplaySec = snap.AnswerDisplaySec
	effective.ScoreboardDisplaySec = snap.ScoreboardDisplaySec
	effective.PrivateFeedback = snap.PrivateFeedback

	quiz := &entity.Quiz{
		Title:      snap.QuizTitle,
		AccessCode: snap.QuizCode,
		Questions:  questionsFromSnapshot(snap.Questions),
	}

	return &Session{
		key:          Key{GuildID: snap.GuildID, ChannelID: snap.ChannelID},
		quiz:         quiz,
		cfg:          &effective,
		deps:         deps,
		starterID:    snap.StarterID,
		surfaceID:    "",
		order:        append([]int64(nil), snap.Participants...),
		kicked:       idSliceToSet(snap.Kicked),
		scores:       intMapFromWire(snap.Scores),
		streaks:      intMapFromWire(snap.Streaks),
		answered:     idSliceToSet(snap.Answered),
		correctCount: snap.CorrectCount,
		index:        snap.CurrentIndex,
		ended:        snap.Ended,
		ctx:          ctx,
		quit:         make(chan struct{}),
		onTerminate:  onTerminate,
	}
}

// Key возвращает идентификатор сессии
func (s *Session) Key() Key {
	return s.key
}

// StarterID возвращает идентификатор ведущего игры
func (s *Session) StarterID() int64 {
	return s.starterID
}

// SurfaceID возвращает идентификатор текущей поверхности игры
func (s *Session) SurfaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surfaceID
}

// Info возвращает сводку о сессии для статусного API
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		GuildID:        s.key.GuildID,
		ChannelID:      s.key.ChannelID,
		QuizTitle:      s.quiz.Title,
		CurrentIndex:   s.index,
		TotalQuestions: len(s.quiz.Questions),
		Participants:   len(s.order),
		Ended:          s.ended,
	}
}

// Start запускает игру с первого вопроса.
// Викторина без вопросов сразу завершается финальной таблицей.
func (s *Session) Start() {
	log.Printf("[GameSession] %s: старт игры \"%s\", %d участников, %d вопросов",
		s.key, s.quiz.Title, len(s.order), len(s.quiz.Questions))

	if len(s.quiz.Questions) == 0 {
		if err := s.End(); err != nil {
			log.Printf("[GameSession] %s: ошибка завершения пустой игры: %v", s.key, err)
		}
		return
	}
	s.persist()
	s.askQuestion(0)
}

// Resume продолжает восстановленную сессию с текущего вопроса
func (s *Session) Resume() {
	s.mu.Lock()
	done := s.ended || s.index >= len(s.quiz.Questions)
	idx := s.index
	s.mu.Unlock()

	log.Printf("[GameSession] %s: возобновление игры \"%s\" с вопроса %d", s.key, s.quiz.Title, idx+1)

	if done {
		if err := s.End(); err != nil {
			log.Printf("[GameSession] %s: ошибка завершения восстановленной игры: %v", s.key, err)
		}
		return
	}
	s.askQuestion(idx)
}

// askQuestion отображает вопрос с индексом i и взводит таймер приема ответов.
// Состояние вопроса (ответившие, счетчик правильных) здесь не сбрасывается:
// сброс выполняется в grade при переходе к следующему вопросу, поэтому
// восстановленная сессия не теряет уже принятые ответы.
func (s *Session) askQuestion(i int) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	q := &s.quiz.Questions[i]
	surfaceID := s.surfaceID
	s.mu.Unlock()

	limit := time.Duration(q.TimeLimitSec) * time.Second
	if limit <= 0 {
		limit = DefaultQuestionTimeSec * time.Second
	}

	view := QuestionView{
		Number:   i + 1,
		Total:    len(s.quiz.Questions),
		Prompt:   q.Text,
		Options:  PadOptionLabels(q.OptionLabels()),
		ImageRef: q.ImageRef,
		EndsAt:   time.Now().Add(limit),
	}

	newSurfaceID, err := s.deps.Presenter.RenderQuestion(s.ctx, s.key.ChannelID, surfaceID, view)
	if err != nil {
		if errors.Is(err, apperrors.ErrSurfaceGone) {
			s.Abort()
			return
		}
		log.Printf("[GameSession] %s: ошибка отображения вопроса %d: %v", s.key, i+1, err)
		// Поверхность цела, просто сбой отображения: продолжаем по таймеру
	}

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	if newSurfaceID != "" {
		s.surfaceID = newSurfaceID
	}
	s.armTimerLocked(i, limit)
	s.mu.Unlock()

	s.persist()
}

// armTimerLocked взводит таймер закрытия вопроса i. Вызывается под mu.
func (s *Session) armTimerLocked(i int, d time.Duration) {
	tctx, cancel := context.WithCancel(s.ctx)
	s.timerCancel = cancel

	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			s.grade(i)
		case <-tctx.Done():
		case <-s.quit:
		}
	}()
}

// SubmitAnswer обрабатывает ответ участника на текущий вопрос.
// Очки за правильный ответ зависят от того, сколько участников успели
// ответить правильно раньше, и от серии подряд правильных ответов.
func (s *Session) SubmitAnswer(userID int64, option int) (*AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || s.aborted {
		return nil, apperrors.ErrQuestionClosed
	}
	if atomic.LoadInt32(&s.grading) == 1 {
		return nil, apperrors.ErrQuestionClosed
	}
	if s.index >= len(s.quiz.Questions) {
		return nil, apperrors.ErrQuestionClosed
	}
	if !s.isParticipantLocked(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	if _, ok := s.answered[userID]; ok {
		return nil, apperrors.ErrAlreadyAnswered
	}

	q := &s.quiz.Questions[s.index]
	if !q.IsValidOption(option) {
		return nil, fmt.Errorf("invalid option %d for question %d", option, s.index+1)
	}

	s.answered[userID] = struct{}{}
	if _, ok := s.scores[userID]; !ok {
		s.scores[userID] = 0
	}

	outcome := &AnswerOutcome{Private: s.cfg.PrivateFeedback}
	if q.IsCorrect(option) {
		pts := Points(s.correctCount, s.streaks[userID])
		s.correctCount++
		s.scores[userID] += pts
		s.streaks[userID]++
		outcome.Correct = true
		outcome.Points = pts
	} else {
		s.streaks[userID] = 0
	}
	outcome.TotalScore = s.scores[userID]
	outcome.Streak = s.streaks[userID]

	if s.allAnsweredLocked() {
		outcome.AllAnswered = true
		if s.timerCancel != nil {
			s.timerCancel()
		}
		go s.grade(s.index)
	}

	// Принятый ответ сразу фиксируется в снапшоте: перезапуск воркера
	// посреди вопроса не теряет начисленные очки и множество ответивших
	s.persistLocked()
	return outcome, nil
}

// Skip досрочно закрывает текущий вопрос по команде ведущего
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || s.aborted {
		return apperrors.ErrNoActiveSession
	}
	if atomic.LoadInt32(&s.grading) == 1 || s.index >= len(s.quiz.Questions) {
		return apperrors.ErrQuestionClosed
	}
	if s.timerCancel != nil {
		s.timerCancel()
	}
	go s.grade(s.index)
	return nil
}

// Kick исключает участника из игры. Накопленные им очки сохраняются в итогах,
// но новые ответы от него не принимаются. Его незавершенный ответ на текущий
// вопрос аннулируется, и если все оставшиеся участники уже ответили,
// вопрос закрывается досрочно.
func (s *Session) Kick(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended || s.aborted {
		return apperrors.ErrNoActiveSession
	}
	if !s.isParticipantLocked(userID) {
		return apperrors.ErrNotParticipant
	}

	s.kicked[userID] = struct{}{}
	delete(s.answered, userID)
	log.Printf("[GameSession] %s: участник %d исключен из игры", s.key, userID)

	if atomic.LoadInt32(&s.grading) == 0 && s.index < len(s.quiz.Questions) && s.allAnsweredLocked() {
		if s.timerCancel != nil {
			s.timerCancel()
		}
		go s.grade(s.index)
	}

	s.persistLocked()
	return nil
}

// isParticipantLocked проверяет, что пользователь участвует и не исключен
func (s *Session) isParticipantLocked(userID int64) bool {
	if _, ok := s.kicked[userID]; ok {
		return false
	}
	for _, id := range s.order {
		if id == userID {
			return true
		}
	}
	return false
}

// allAnsweredLocked проверяет, ответили ли все не исключенные участники.
// При пустом множестве допущенных участников вопрос не закрывается досрочно.
func (s *Session) allAnsweredLocked() bool {
	eligible := 0
	for _, id := range s.order {
		if _, ok := s.kicked[id]; ok {
			continue
		}
		eligible++
		if _, ok := s.answered[id]; !ok {
			return false
		}
	}
	return eligible > 0
}

// grade закрывает вопрос i: раскрывает правильный ответ, показывает
// таблицу результатов и переходит к следующему вопросу или завершает игру.
// Флаг grading гарантирует, что переходом занимается ровно одна горутина:
// одновременные срабатывания таймера, досрочного закрытия и команды ведущего
// схлопываются в один переход.
func (s *Session) grade(i int) {
	if !atomic.CompareAndSwapInt32(&s.grading, 0, 1) {
		return
	}

	s.mu.Lock()
	if s.ended || s.aborted || i != s.index || i >= len(s.quiz.Questions) {
		s.mu.Unlock()
		atomic.StoreInt32(&s.grading, 0)
		return
	}
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}

	q := &s.quiz.Questions[i]
	reveal := RevealView{
		Number:        i + 1,
		Options:       PadOptionLabels(q.OptionLabels()),
		CorrectOption: q.CorrectOption(),
	}
	surfaceID := s.surfaceID

	// Переход к следующему вопросу фиксируется сразу: состояние текущего
	// вопроса сбрасывается здесь, а не в askQuestion, чтобы ответы,
	// успевшие прийти к новому вопросу, не попали под сброс.
	s.index = i + 1
	s.answered = make(map[int64]struct{})
	s.correctCount = 0
	last := s.index >= len(s.quiz.Questions)
	s.mu.Unlock()

	s.persist()

	if err := s.deps.Presenter.RenderReveal(s.ctx, s.key.ChannelID, surfaceID, reveal); err != nil {
		if errors.Is(err, apperrors.ErrSurfaceGone) {
			atomic.StoreInt32(&s.grading, 0)
			s.Abort()
			return
		}
		log.Printf("[GameSession] %s: ошибка отображения ответа на вопрос %d: %v", s.key, i+1, err)
	}

	if !s.sleep(time.Duration(s.cfg.AnswerDisplaySec) * time.Second) {
		atomic.StoreInt32(&s.grading, 0)
		return
	}

	if last {
		atomic.StoreInt32(&s.grading, 0)
		if err := s.End(); err != nil {
			log.Printf("[GameSession] %s: ошибка завершения игры: %v", s.key, err)
		}
		return
	}

	board := ScoreboardView{
		Entries:        s.scoreboardRows(),
		Final:          false,
		NextQuestionAt: time.Now().Add(time.Duration(s.cfg.ScoreboardDisplaySec) * time.Second),
	}
	if err := s.deps.Presenter.RenderScoreboard(s.ctx, s.key.ChannelID, surfaceID, board); err != nil {
		if errors.Is(err, apperrors.ErrSurfaceGone) {
			atomic.StoreInt32(&s.grading, 0)
			s.Abort()
			return
		}
		log.Printf("[GameSession] %s: ошибка отображения таблицы после вопроса %d: %v", s.key, i+1, err)
	}

	if !s.sleep(time.Duration(s.cfg.ScoreboardDisplaySec) * time.Second) {
		atomic.StoreInt32(&s.grading, 0)
		return
	}

	// Прием ответов на следующий вопрос открывается до его отображения,
	// чтобы быстрые ответы сразу после паузы не отклонялись.
	atomic.StoreInt32(&s.grading, 0)
	s.askQuestion(i + 1)
}

// sleep ждет d и возвращает false, если сессия была завершена во время паузы
func (s *Session) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.quit:
		return false
	case <-s.ctx.Done():
		return false
	}
}

// scoreboardRows строит строки таблицы результатов: все участники в порядке
// допуска, включая исключенных и не ответивших ни разу, отсортированные по
// убыванию очков. Стабильная сортировка решает равенство очков в пользу
// присоединившегося раньше.
func (s *Session) scoreboardRows() []ScoreRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreboardRowsLocked()
}

func (s *Session) scoreboardRowsLocked() []ScoreRow {
	rows := make([]ScoreRow, 0, len(s.order))
	for _, id := range s.order {
		rows = append(rows, ScoreRow{UserID: id, Score: s.scores[id]})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].Score > rows[b].Score
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

// End завершает игру: отображает финальную таблицу, записывает итоги в базу
// и удаляет снапшот. Повторные вызовы безопасны и ничего не делают.
func (s *Session) End() error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
	rows := s.scoreboardRowsLocked()
	surfaceID := s.surfaceID
	s.mu.Unlock()

	s.quitOnce.Do(func() { close(s.quit) })

	log.Printf("[GameSession] %s: игра \"%s\" завершена, %d участников", s.key, s.quiz.Title, len(rows))

	board := ScoreboardView{Entries: rows, Final: true}
	if err := s.deps.Presenter.RenderScoreboard(s.ctx, s.key.ChannelID, surfaceID, board); err != nil {
		log.Printf("[GameSession] %s: ошибка отображения финальной таблицы: %v", s.key, err)
	}

	s.recordResults()
	s.deps.Store.Delete(s.key.GuildID, s.key.ChannelID)

	if s.onTerminate != nil {
		s.onTerminate(s.key)
	}
	return nil
}

// Abort аварийно завершает игру после удаления её сообщения.
// Итоги в базу не записываются.
func (s *Session) Abort() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.aborted = true
	if s.timerCancel != nil {
		s.timerCancel()
		s.timerCancel = nil
	}
	s.mu.Unlock()

	s.quitOnce.Do(func() { close(s.quit) })

	log.Printf("[GameSession] %s: игра \"%s\" прервана: сообщение игры удалено", s.key, s.quiz.Title)

	if err := s.deps.Presenter.SendNotice(s.ctx, s.key.ChannelID, "Игра прервана: сообщение с игрой было удалено."); err != nil {
		log.Printf("[GameSession] %s: ошибка отправки уведомления о прерывании: %v", s.key, err)
	}

	s.deps.Store.Delete(s.key.GuildID, s.key.ChannelID)

	if s.onTerminate != nil {
		s.onTerminate(s.key)
	}
}

// recordResults записывает партию и результаты участников в базу.
// В результаты попадают только участники, ответившие хотя бы на один вопрос.
// Ошибки записи логируются: завершение игры от них не зависит.
func (s *Session) recordResults() {
	s.mu.Lock()
	if s.aborted || len(s.scores) == 0 {
		s.mu.Unlock()
		return
	}
	finishedAt := time.Now()
	game := entity.Game{
		ID:         uuid.NewString(),
		GuildID:    s.key.GuildID,
		QuizCode:   s.quiz.AccessCode,
		QuizTitle:  s.quiz.Title,
		FinishedAt: finishedAt,
	}
	results := make([]entity.Result, 0, len(s.scores))
	for _, id := range s.order {
		score, ok := s.scores[id]
		if !ok {
			continue
		}
		results = append(results, entity.Result{
			GameID:     game.ID,
			GuildID:    s.key.GuildID,
			UserID:     id,
			Score:      score,
			FinishedAt: finishedAt,
		})
	}
	s.mu.Unlock()

	if err := s.deps.ResultRepo.SaveGame(&game); err != nil {
		log.Printf("[GameSession] %s: ошибка записи партии: %v", s.key, err)
		return
	}
	if err := s.deps.ResultRepo.SaveResults(results); err != nil {
		log.Printf("[GameSession] %s: ошибка записи результатов: %v", s.key, err)
	}
}

// persist сохраняет снапшот текущего состояния
func (s *Session) persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistLocked()
}

// persistLocked сохраняет снапшот под mu, чтобы запись не пересекалась
// с удалением снапшота при завершении игры. Завершенная сессия не
// сохраняется: её снапшот уже удален или удаляется.
func (s *Session) persistLocked() {
	if s.ended {
		return
	}
	s.deps.Store.Save(s.snapshotLocked())
}

// snapshotLocked собирает снапшот. Вызывается под mu.
func (s *Session) snapshotLocked() *Snapshot {
	return &Snapshot{
		Version:              SnapshotVersion,
		GuildID:              s.key.GuildID,
		ChannelID:            s.key.ChannelID,
		QuizTitle:            s.quiz.Title,
		QuizCode:             s.quiz.AccessCode,
		Questions:            questionsToSnapshot(s.quiz.Questions),
		Participants:         append([]int64(nil), s.order...),
		Kicked:               idSetToSlice(s.kicked),
		CurrentIndex:         s.index,
		Scores:               intMapToWire(s.scores),
		Streaks:              intMapToWire(s.streaks),
		Answered:             idSetToSlice(s.answered),
		CorrectCount:         s.correctCount,
		AnswerDisplaySec:     s.cfg.AnswerDisplaySec,
		ScoreboardDisplaySec: s.cfg.ScoreboardDisplaySec,
		PrivateFeedback:      s.cfg.PrivateFeedback,
		Ended:                s.ended,
		StarterID:            s.starterID,
		SurfaceID:            s.surfaceID,
	}
}
