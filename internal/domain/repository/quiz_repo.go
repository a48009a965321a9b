package repository

import (
	"github.com/yourusername/quiz-bot/internal/domain/entity"
)

// QuizRepository определяет методы для доступа к викторинам.
// Создание и редактирование викторин выполняет панель управления,
// боту нужен только поиск по коду доступа.
type QuizRepository interface {
	// GetByAccessCode возвращает викторину с вопросами по её коду доступа.
	// Возвращает apperrors.ErrNotFound, если викторина не существует или неактивна.
	GetByAccessCode(code string) (*entity.Quiz, error)
}
