package gamesession

import (
	"strconv"

	"github.com/yourusername/quiz-bot/internal/domain/entity"
)

// SnapshotVersion — текущая версия формата снапшота.
// Снапшоты с другой версией при восстановлении отбрасываются.
const SnapshotVersion = 1

// OptionSnapshot — вариант ответа в снапшоте
type OptionSnapshot struct {
	Label     string `json:"label"`
	IsCorrect bool   `json:"is_correct"`
}

// QuestionSnapshot — вопрос в снапшоте.
// Вопросы копируются в снапшот целиком, чтобы восстановление не зависело
// от того, что викторину успели изменить или удалить в базе.
type QuestionSnapshot struct {
	Text         string           `json:"text"`
	Options      []OptionSnapshot `json:"options"`
	ImageRef     string           `json:"image_ref,omitempty"`
	TimeLimitSec int              `json:"time_limit_sec"`
}

// Snapshot — сериализуемое состояние сессии, достаточное для продолжения
// игры с текущего вопроса после перезапуска воркера.
// Очки и серии хранятся с строковыми ключами ради совместимости с JSON.
type Snapshot struct {
	Version              int                `json:"version"`
	GuildID              int64              `json:"guild_id"`
	ChannelID            int64              `json:"channel_id"`
	QuizTitle            string             `json:"quiz_title"`
	QuizCode             string             `json:"quiz_code"`
	Questions            []QuestionSnapshot `json:"questions"`
	Participants         []int64            `json:"participants"`
	Kicked               []int64            `json:"kicked,omitempty"`
	CurrentIndex         int                `json:"current_index"`
	Scores               map[string]int     `json:"scores"`
	Streaks              map[string]int     `json:"streaks"`
	Answered             []int64            `json:"answered,omitempty"`
	CorrectCount         int                `json:"correct_count"`
	AnswerDisplaySec     int                `json:"answer_display_sec"`
	ScoreboardDisplaySec int                `json:"scoreboard_display_sec"`
	PrivateFeedback      bool               `json:"private_feedback"`
	Ended                bool               `json:"ended"`
	StarterID            int64              `json:"starter_id"`
	SurfaceID            string             `json:"surface_id,omitempty"`
}

// questionsToSnapshot копирует вопросы викторины в формат снапшота
func questionsToSnapshot(questions []entity.Question) []QuestionSnapshot {
	out := make([]QuestionSnapshot, len(questions))
	for i, q := range questions {
		opts := make([]OptionSnapshot, len(q.Options))
		for j, o := range q.Options {
			opts[j] = OptionSnapshot{Label: o.Label, IsCorrect: o.IsCorrect}
		}
		out[i] = QuestionSnapshot{
			Text:         q.Text,
			Options:      opts,
			ImageRef:     q.ImageRef,
			TimeLimitSec: q.TimeLimitSec,
		}
	}
	return out
}

// questionsFromSnapshot восстанавливает вопросы из снапшота
func questionsFromSnapshot(snap []QuestionSnapshot) []entity.Question {
	out := make([]entity.Question, len(snap))
	for i, q := range snap {
		opts := make(entity.OptionList, len(q.Options))
		for j, o := range q.Options {
			opts[j] = entity.Option{Label: o.Label, IsCorrect: o.IsCorrect}
		}
		out[i] = entity.Question{
			Text:         q.Text,
			Options:      opts,
			ImageRef:     q.ImageRef,
			TimeLimitSec: q.TimeLimitSec,
		}
	}
	return out
}

// intMapToWire переводит карту с int64-ключами в JSON-совместимую форму
func intMapToWire(m map[int64]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[strconv.FormatInt(k, 10)] = v
	}
	return out
}

// intMapFromWire восстанавливает карту с int64-ключами.
// Некорректные ключи пропускаются.
func intMapFromWire(m map[string]int) map[int64]int {
	out := make(map[int64]int, len(m))
	for k, v := range m {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out
}

// idSetToSlice переводит множество идентификаторов в срез
func idSetToSlice(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// idSliceToSet переводит срез идентификаторов в множество
func idSliceToSet(ids []int64) map[int64]struct{} {
	out := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}
