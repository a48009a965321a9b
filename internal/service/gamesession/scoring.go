package gamesession

// Константы начисления очков
const (
	// BasePoints — очки первого правильно ответившего на вопрос
	BasePoints = 1000

	// RankPenalty — на сколько уменьшается база за каждого ответившего раньше
	RankPenalty = 100

	// MinBasePoints — нижняя граница базы независимо от позиции ответа
	MinBasePoints = 500

	// StreakBonus — прибавка к множителю за каждый вопрос серии
	StreakBonus = 0.1
)

// Points вычисляет очки за правильный ответ.
// correctRank — порядковый номер этого правильного ответа среди правильных
// ответов на текущий вопрос (0 для первого ответившего).
// streak — длина серии подряд правильно отвеченных вопросов перед этим ответом.
// Результат округляется вниз.
func Points(correctRank, streak int) int {
	base := BasePoints - RankPenalty*correctRank
	if base < MinBasePoints {
		base = MinBasePoints
	}
	multiplier := 1.0 + StreakBonus*float64(streak)
	return int(float64(base) * multiplier)
}
