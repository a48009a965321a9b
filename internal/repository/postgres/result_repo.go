package postgres

import (
	"errors"
	"log"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/quiz-bot/internal/domain/entity"
)

// ResultRepo реализует repository.ResultRepository
type ResultRepo struct {
	db *gorm.DB
}

// NewResultRepo создает новый репозиторий результатов
func NewResultRepo(db *gorm.DB) *ResultRepo {
	return &ResultRepo{db: db}
}

// SaveGame сохраняет запись о завершенной партии
func (r *ResultRepo) SaveGame(game *entity.Game) error {
	return r.db.Create(game).Error
}

// SaveResults сохраняет итоговые результаты участников одной партии.
// Дубликат пары (game_id, user_id) возможен при повторной записи после
// восстановления воркера — такие строки пропускаются по одной.
func (r *ResultRepo) SaveResults(results []entity.Result) error {
	if len(results) == 0 {
		return nil
	}

	err := r.db.Create(&results).Error
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" { // 23505 - unique_violation
		return err
	}

	// Пакетная вставка уперлась в уникальный индекс — вставляем по одной,
	// пропуская уже записанные результаты.
	log.Printf("[ResultRepo] Пакетная вставка результатов содержит дубликаты, переключаюсь на построчную вставку")
	for i := range results {
		if err := r.db.Create(&results[i]).Error; err != nil {
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				continue
			}
			return err
		}
	}
	return nil
}

// GetGuildResults возвращает результаты партий гильдии, отсортированные по дате, с пагинацией
func (r *ResultRepo) GetGuildResults(guildID int64, limit, offset int) ([]entity.Result, int64, error) {
	var results []entity.Result
	var total int64

	err := r.db.Model(&entity.Result{}).Where("guild_id = ?", guildID).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.Where("guild_id = ?", guildID).
		Order("finished_at DESC, score DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}
