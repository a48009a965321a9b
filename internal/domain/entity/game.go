package entity

import (
	"time"
)

// Game представляет запись о сыгранной партии викторины
type Game struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	GuildID    int64     `gorm:"not null;index" json:"guild_id"`
	QuizCode   string    `gorm:"size:20;not null;index" json:"quiz_code"`
	QuizTitle  string    `gorm:"size:100;not null" json:"quiz_title"`
	FinishedAt time.Time `gorm:"not null" json:"finished_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Game) TableName() string {
	return "games"
}

// Result представляет итоговый результат одного участника в партии
type Result struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	GameID     string    `gorm:"size:36;not null;index;uniqueIndex:idx_game_user" json:"game_id"`
	GuildID    int64     `gorm:"not null;index" json:"guild_id"`
	UserID     int64     `gorm:"not null;index;uniqueIndex:idx_game_user" json:"user_id"`
	Score      int       `gorm:"not null;default:0" json:"score"`
	FinishedAt time.Time `gorm:"not null" json:"finished_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (Result) TableName() string {
	return "results"
}
