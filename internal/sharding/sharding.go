package sharding

import (
	"fmt"

	apperrors "github.com/yourusername/quiz-bot/internal/pkg/errors"
)

// CalcShards возвращает номера шардов, принадлежащих воркеру с индексом workerIndex.
// Шарды делятся на непрерывные диапазоны: при totalShards, не кратном totalWorkers,
// первые totalShards % totalWorkers воркеров получают на один шард больше.
// Диапазоны покрывают [0, totalShards) ровно один раз, без пропусков и пересечений.
func CalcShards(workerIndex, totalWorkers, totalShards int) ([]int, error) {
	if totalShards < 1 || totalWorkers < 1 {
		return nil, fmt.Errorf("%w: totalShards=%d, totalWorkers=%d", apperrors.ErrConfiguration, totalShards, totalWorkers)
	}
	if totalWorkers > totalShards {
		return nil, fmt.Errorf("%w: totalWorkers (%d) exceeds totalShards (%d)", apperrors.ErrConfiguration, totalWorkers, totalShards)
	}
	if workerIndex < 0 || workerIndex >= totalWorkers {
		return nil, fmt.Errorf("%w: workerIndex %d out of range [0, %d)", apperrors.ErrConfiguration, workerIndex, totalWorkers)
	}

	base := totalShards / totalWorkers
	extra := totalShards % totalWorkers

	var start, count int
	if workerIndex < extra {
		count = base + 1
		start = workerIndex * count
	} else {
		count = base
		start = extra*(base+1) + (workerIndex-extra)*base
	}

	if count == 0 {
		// При totalWorkers <= totalShards диапазон пустым быть не может,
		// но проверяем инвариант явно.
		return nil, fmt.Errorf("%w: empty shard range for worker %d", apperrors.ErrConfiguration, workerIndex)
	}

	shards := make([]int, count)
	for i := range shards {
		shards[i] = start + i
	}
	return shards, nil
}

// ShardForGuild возвращает номер шарда для гильдии.
// Формула повторяет распределение гильдий по шардам самой платформы,
// поэтому владелец сессии совпадает с соединением, получающим события гильдии.
func ShardForGuild(guildID int64, totalShards int) int {
	return int((guildID >> 22) % int64(totalShards))
}
