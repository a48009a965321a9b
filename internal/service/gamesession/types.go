package gamesession

import (
	"fmt"
	"time"

	"github.com/yourusername/quiz-bot/internal/domain/repository"
)

// Константы значений по умолчанию
const (
	DefaultJoinWindowSec        = 10
	DefaultQuestionTimeSec      = 10
	DefaultAnswerDisplaySec     = 5
	DefaultScoreboardDisplaySec = 5
	DefaultSnapshotTTL          = time.Hour

	// Границы настроек отображения (совпадают с ограничениями панели управления)
	MinDisplaySec = 5
	MaxDisplaySec = 30
)

// Config содержит настройки отображения и персистентности сессий
type Config struct {
	// Длительность окна присоединения в секундах
	JoinWindowSec int

	// Сколько секунд показывать правильный ответ после закрытия вопроса
	AnswerDisplaySec int

	// Сколько секунд показывать таблицу результатов между вопросами
	ScoreboardDisplaySec int

	// Отправлять ли участнику личное подтверждение его ответа
	PrivateFeedback bool

	// Время жизни снапшота сессии в key-value хранилище
	SnapshotTTL time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		JoinWindowSec:        DefaultJoinWindowSec,
		AnswerDisplaySec:     DefaultAnswerDisplaySec,
		ScoreboardDisplaySec: DefaultScoreboardDisplaySec,
		PrivateFeedback:      true,
		SnapshotTTL:          DefaultSnapshotTTL,
	}
}

// clampDisplaySec приводит настройку отображения к допустимым границам
func clampDisplaySec(v int) int {
	if v < MinDisplaySec {
		return MinDisplaySec
	}
	if v > MaxDisplaySec {
		return MaxDisplaySec
	}
	return v
}

// Normalize приводит настройки отображения к допустимым границам
func (c *Config) Normalize() {
	if c.JoinWindowSec <= 0 {
		c.JoinWindowSec = DefaultJoinWindowSec
	}
	c.AnswerDisplaySec = clampDisplaySec(c.AnswerDisplaySec)
	c.ScoreboardDisplaySec = clampDisplaySec(c.ScoreboardDisplaySec)
	if c.SnapshotTTL <= 0 {
		c.SnapshotTTL = DefaultSnapshotTTL
	}
}

// Dependencies содержит зависимости для компонентов сессии
type Dependencies struct {
	Store      *Store
	ResultRepo repository.ResultRepository
	Presenter  Presenter
}

// Key идентифицирует сессию: одна живая игра на пару (гильдия, канал)
type Key struct {
	GuildID   int64
	ChannelID int64
}

// String возвращает строковое представление ключа для логов
func (k Key) String() string {
	return fmt.Sprintf("%d/%d", k.GuildID, k.ChannelID)
}
