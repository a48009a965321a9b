package gamesession

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/yourusername/quiz-bot/internal/domain/repository"
	apperrors "github.com/yourusername/quiz-bot/internal/pkg/errors"
)

// sessionKeyPrefix — префикс ключей снапшотов в разделяемом хранилище
const sessionKeyPrefix = "quiz_session:"

// sessionKey строит ключ снапшота для пары (гильдия, канал)
func sessionKey(guildID, channelID int64) string {
	return fmt.Sprintf("%s%d:%d", sessionKeyPrefix, guildID, channelID)
}

// ParseSessionKey разбирает ключ снапшота обратно в пару (гильдия, канал)
func ParseSessionKey(key string) (guildID, channelID int64, err error) {
	rest, ok := strings.CutPrefix(key, sessionKeyPrefix)
	if !ok {
		return 0, 0, fmt.Errorf("invalid session key %q", key)
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid session key %q", key)
	}
	guildID, err = strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid guild id in session key %q: %w", key, err)
	}
	channelID, err = strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid channel id in session key %q: %w", key, err)
	}
	return guildID, channelID, nil
}

// Store сохраняет и восстанавливает снапшоты сессий в разделяемом
// key-value хранилище. Запись и удаление выполняются по принципу
// best-effort: сбой хранилища не должен останавливать идущую игру,
// поэтому Save и Delete логируют ошибку и не возвращают её вызывающему.
type Store struct {
	cache repository.CacheRepository
	ttl   time.Duration
}

// NewStore создает хранилище снапшотов с заданным временем жизни записей
func NewStore(cache repository.CacheRepository, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &Store{cache: cache, ttl: ttl}
}

// Save сохраняет снапшот сессии. Ошибки хранилища логируются и не возвращаются.
func (s *Store) Save(snap *Snapshot) {
	key := sessionKey(snap.GuildID, snap.ChannelID)
	if err := s.cache.SetJSON(key, snap, s.ttl); err != nil {
		log.Printf("[SessionStore] Ошибка сохранения снапшота %s: %v", key, err)
	}
}

// Load загружает снапшот сессии для пары (гильдия, канал).
// Возвращает apperrors.ErrNotFound, если снапшота нет, и
// apperrors.ErrStoreUnavailable при сбое хранилища.
func (s *Store) Load(guildID, channelID int64) (*Snapshot, error) {
	key := sessionKey(guildID, channelID)
	var snap Snapshot
	if err := s.cache.GetJSON(key, &snap); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	if snap.Version != SnapshotVersion {
		log.Printf("[SessionStore] Снапшот %s имеет неподдерживаемую версию %d, пропускаем", key, snap.Version)
		return nil, apperrors.ErrNotFound
	}
	return &snap, nil
}

// ListKeys возвращает ключи всех сохраненных снапшотов
func (s *Store) ListKeys() ([]string, error) {
	keys, err := s.cache.Keys(sessionKeyPrefix + "*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return keys, nil
}

// Delete удаляет снапшот сессии. Ошибки хранилища логируются и не возвращаются.
func (s *Store) Delete(guildID, channelID int64) {
	key := sessionKey(guildID, channelID)
	if err := s.cache.Delete(key); err != nil {
		log.Printf("[SessionStore] Ошибка удаления снапшота %s: %v", key, err)
	}
}
