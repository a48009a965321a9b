package gamesession

import (
	"sync"

	apperrors "github.com/yourusername/quiz-bot/internal/pkg/errors"
)

// ParticipantPreviewLimit — сколько участников показывается в приглашении
const ParticipantPreviewLimit = 10

// JoinResult — исход попытки присоединиться к игре
type JoinResult int

const (
	// JoinAccepted — участник успешно добавлен
	JoinAccepted JoinResult = iota

	// JoinAlreadyIn — участник уже был в списке; повторное нажатие не ошибка
	JoinAlreadyIn
)

// JoinGate собирает участников в течение окна присоединения перед стартом
// игры. При заданном allow-list чужие попытки отклоняются; инициатор игры
// допускается всегда. Присоединение идемпотентно.
type JoinGate struct {
	mu        sync.Mutex
	starterID int64
	allowed   map[int64]struct{} // nil — игра открыта для всех
	order     []int64            // порядок допуска, источник порядка строк в таблицах
	members   map[int64]struct{}
	closed    bool
	surfaceID string
}

// NewJoinGate создает окно присоединения. allowList == nil означает открытую
// игру; инициатор считается допущенным независимо от списка.
func NewJoinGate(starterID int64, allowList []int64, surfaceID string) *JoinGate {
	g := &JoinGate{
		starterID: starterID,
		members:   make(map[int64]struct{}),
		surfaceID: surfaceID,
	}
	if allowList != nil {
		g.allowed = make(map[int64]struct{}, len(allowList))
		for _, id := range allowList {
			g.allowed[id] = struct{}{}
		}
	}
	return g
}

// Admit обрабатывает попытку пользователя присоединиться.
// Возвращает apperrors.ErrNoActiveSession, если окно уже закрыто,
// и apperrors.ErrNotAllowed, если пользователь не входит в allow-list.
func (g *JoinGate) Admit(userID int64) (JoinResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return 0, apperrors.ErrNoActiveSession
	}
	if g.allowed != nil && userID != g.starterID {
		if _, ok := g.allowed[userID]; !ok {
			return 0, apperrors.ErrNotAllowed
		}
	}
	if _, ok := g.members[userID]; ok {
		return JoinAlreadyIn, nil
	}
	g.members[userID] = struct{}{}
	g.order = append(g.order, userID)
	return JoinAccepted, nil
}

// Participants возвращает копию списка участников в порядке допуска
func (g *JoinGate) Participants() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]int64, len(g.order))
	copy(out, g.order)
	return out
}

// Preview возвращает первых участников в порядке допуска для обновления
// приглашения, не более ParticipantPreviewLimit, и общее число участников
func (g *JoinGate) Preview() ([]int64, int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(g.order)
	limit := n
	if limit > ParticipantPreviewLimit {
		limit = ParticipantPreviewLimit
	}
	out := make([]int64, limit)
	copy(out, g.order[:limit])
	return out, n
}

// Close закрывает окно присоединения и возвращает итоговый список участников
// в порядке допуска. Повторные вызовы безопасны.
func (g *JoinGate) Close() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	out := make([]int64, len(g.order))
	copy(out, g.order)
	return out
}

// StarterID возвращает идентификатор инициатора игры
func (g *JoinGate) StarterID() int64 {
	return g.starterID
}

// SurfaceID возвращает идентификатор поверхности с приглашением
func (g *JoinGate) SurfaceID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.surfaceID
}
