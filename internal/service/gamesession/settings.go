package gamesession

import (
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/quiz-bot/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-bot/internal/pkg/errors"
)

// settingsKeyPrefix — префикс ключей настроек гильдий в разделяемом хранилище.
// Настройки пишет панель управления, воркер их только читает.
const settingsKeyPrefix = "guild_settings:"

// GuildSettings — переопределения игровых настроек одной гильдии.
// Нулевые значения означают "использовать значение по умолчанию".
type GuildSettings struct {
	JoinWindowSec        int   `json:"join_window_sec"`
	AnswerDisplaySec     int   `json:"answer_display_sec"`
	ScoreboardDisplaySec int   `json:"scoreboard_display_sec"`
	PrivateFeedback      *bool `json:"private_feedback,omitempty"`
}

// SettingsStore читает настройки гильдий из разделяемого key-value хранилища.
// Чтение best-effort: при любом сбое игра стартует с настройками по умолчанию.
type SettingsStore struct {
	cache repository.CacheRepository
}

// NewSettingsStore создает хранилище настроек гильдий
func NewSettingsStore(cache repository.CacheRepository) *SettingsStore {
	return &SettingsStore{cache: cache}
}

// ForGuild возвращает конфигурацию для игры в гильдии: базовая конфигурация
// с наложенными переопределениями гильдии, приведенная к допустимым границам.
func (s *SettingsStore) ForGuild(guildID int64, base *Config) *Config {
	merged := *base

	var gs GuildSettings
	key := fmt.Sprintf("%s%d", settingsKeyPrefix, guildID)
	if err := s.cache.GetJSON(key, &gs); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[GuildSettings] Ошибка чтения настроек гильдии %d: %v", guildID, err)
		}
		merged.Normalize()
		return &merged
	}

	if gs.JoinWindowSec > 0 {
		merged.JoinWindowSec = gs.JoinWindowSec
	}
	if gs.AnswerDisplaySec > 0 {
		merged.AnswerDisplaySec = gs.AnswerDisplaySec
	}
	if gs.ScoreboardDisplaySec > 0 {
		merged.ScoreboardDisplaySec = gs.ScoreboardDisplaySec
	}
	if gs.PrivateFeedback != nil {
		merged.PrivateFeedback = *gs.PrivateFeedback
	}

	merged.Normalize()
	return &merged
}
