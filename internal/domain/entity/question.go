package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Option представляет один вариант ответа на вопрос
type Option struct {
	Label     string `json:"label"`
	IsCorrect bool   `json:"is_correct"`
}

// OptionList - пользовательский тип для работы с JSONB
type OptionList []Option

// Scan реализует интерфейс sql.Scanner для OptionList
// Используется GORM для чтения JSONB данных из базы
func (o *OptionList) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*o = OptionList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	// Обработка пустого массива байтов
	if len(bytes) == 0 {
		*o = OptionList{}
		return nil
	}

	return json.Unmarshal(bytes, o)
}

// Value реализует интерфейс driver.Valuer для OptionList
// Используется GORM для записи OptionList в JSONB в базе
func (o OptionList) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // Возвращаем пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос в викторине
type Question struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	QuizID       uint       `gorm:"not null;index" json:"quiz_id"`
	Text         string     `gorm:"size:500;not null" json:"text"`
	Options      OptionList `gorm:"type:jsonb;not null" json:"options"`
	ImageRef     string     `gorm:"size:255;not null;default:''" json:"image_ref"`
	TimeLimitSec int        `gorm:"not null;default:10" json:"time_limit_sec"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// CorrectOption возвращает индекс правильного варианта.
// Инвариант "ровно один правильный вариант" обеспечивается слоем редактирования;
// если он нарушен, возвращаем -1 — на такой вопрос никто не может ответить верно.
func (q *Question) CorrectOption() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// IsCorrect проверяет, является ли выбранный вариант правильным
func (q *Question) IsCorrect(selectedOption int) bool {
	correct := q.CorrectOption()
	return correct >= 0 && selectedOption == correct
}

// IsValidOption проверяет, является ли выбранный вариант допустимым
func (q *Question) IsValidOption(selectedOption int) bool {
	return selectedOption >= 0 && selectedOption < len(q.Options)
}

// OptionLabels возвращает подписи вариантов в порядке их следования
func (q *Question) OptionLabels() []string {
	labels := make([]string, len(q.Options))
	for i, opt := range q.Options {
		labels[i] = opt.Label
	}
	return labels
}

// Clone возвращает копию вопроса с независимым списком вариантов
func (q *Question) Clone() *Question {
	cp := *q
	cp.Options = make(OptionList, len(q.Options))
	copy(cp.Options, q.Options)
	return &cp
}
