package gamesession

import (
	"context"
	"log"
	"time"
)

// QuestionView описывает вопрос для отображения участникам
type QuestionView struct {
	Number   int       // номер вопроса, начиная с 1
	Total    int       // всего вопросов в викторине
	Prompt   string    // текст вопроса
	Options  []string  // подписи вариантов, выровненные по ширине
	ImageRef string    // идентификатор изображения в файловом хранилище, может быть пустым
	EndsAt   time.Time // момент окончания приема ответов
}

// RevealView описывает раскрытие правильного ответа
type RevealView struct {
	Number        int
	Options       []string
	CorrectOption int // -1, если у вопроса нет правильного варианта
}

// ScoreRow представляет одну строку таблицы результатов
type ScoreRow struct {
	Rank   int
	UserID int64
	Score  int
}

// ScoreboardView описывает таблицу результатов
type ScoreboardView struct {
	Entries        []ScoreRow
	Final          bool
	NextQuestionAt time.Time // заполнено только для промежуточной таблицы
}

// Presenter — узкий контракт слоя представления (сообщения, embeds, кнопки).
// Ядро никогда не заглядывает внутрь платформенных объектов: оно просит
// отрисовать представление и распознает единственный особый случай —
// apperrors.ErrSurfaceGone, означающий, что сообщение с игрой было удалено.
type Presenter interface {
	// RenderQuestion отображает вопрос. При пустом surfaceID создается новая
	// поверхность (сообщение); возвращается её идентификатор.
	RenderQuestion(ctx context.Context, channelID int64, surfaceID string, view QuestionView) (string, error)

	// RenderReveal отображает правильный ответ на закрытом вопросе
	RenderReveal(ctx context.Context, channelID int64, surfaceID string, view RevealView) error

	// RenderScoreboard отображает промежуточную или финальную таблицу результатов
	RenderScoreboard(ctx context.Context, channelID int64, surfaceID string, view ScoreboardView) error

	// SendNotice отправляет в канал отдельное служебное сообщение
	SendNotice(ctx context.Context, channelID int64, text string) error
}

// NoopPresenter — презентер-заглушка, который только пишет в лог.
// Используется, пока к воркеру не подключен модуль шлюза платформы,
// а также в тестах.
type NoopPresenter struct{}

// RenderQuestion пишет вопрос в лог и возвращает фиктивный идентификатор поверхности
func (p *NoopPresenter) RenderQuestion(ctx context.Context, channelID int64, surfaceID string, view QuestionView) (string, error) {
	log.Printf("[Presenter] Канал %d: вопрос %d из %d (%d вариантов)", channelID, view.Number, view.Total, len(view.Options))
	if surfaceID == "" {
		surfaceID = "noop-surface"
	}
	return surfaceID, nil
}

// RenderReveal пишет раскрытие ответа в лог
func (p *NoopPresenter) RenderReveal(ctx context.Context, channelID int64, surfaceID string, view RevealView) error {
	log.Printf("[Presenter] Канал %d: правильный вариант вопроса %d — %d", channelID, view.Number, view.CorrectOption)
	return nil
}

// RenderScoreboard пишет таблицу результатов в лог
func (p *NoopPresenter) RenderScoreboard(ctx context.Context, channelID int64, surfaceID string, view ScoreboardView) error {
	log.Printf("[Presenter] Канал %d: таблица результатов (%d строк, финальная: %t)", channelID, len(view.Entries), view.Final)
	return nil
}

// SendNotice пишет служебное сообщение в лог
func (p *NoopPresenter) SendNotice(ctx context.Context, channelID int64, text string) error {
	log.Printf("[Presenter] Канал %d: %s", channelID, text)
	return nil
}
