package repository

import (
	"github.com/yourusername/quiz-bot/internal/domain/entity"
)

// ResultRepository определяет методы для записи итогов сыгранных партий
type ResultRepository interface {
	// SaveGame сохраняет запись о завершенной партии
	SaveGame(game *entity.Game) error

	// SaveResults сохраняет итоговые результаты участников одной партии.
	// Повторная запись той же пары (game_id, user_id) не считается ошибкой.
	SaveResults(results []entity.Result) error

	// GetGuildResults возвращает результаты партий гильдии (для панели статистики)
	GetGuildResults(guildID int64, limit, offset int) ([]entity.Result, int64, error)
}
