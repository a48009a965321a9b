package entity

import (
	"time"
)

// Quiz представляет викторину, созданную в панели управления.
// Запущенная сессия работает с копией викторины, поэтому последующие
// правки в панели не влияют на идущую игру.
type Quiz struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"size:100;not null" json:"title"`
	OwnerID    int64      `gorm:"not null;index" json:"owner_id"`
	AccessCode string     `gorm:"size:20;not null;uniqueIndex" json:"access_code"`
	IsPublic   bool       `gorm:"not null;default:false" json:"is_public"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	Questions  []Question `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// QuestionCount возвращает количество вопросов в викторине
func (q *Quiz) QuestionCount() int {
	return len(q.Questions)
}

// Clone возвращает глубокую копию викторины для использования внутри сессии
func (q *Quiz) Clone() *Quiz {
	cp := *q
	cp.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		cp.Questions[i] = *question.Clone()
	}
	return &cp
}
