package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется, когда пользователь не является ведущим игры
	// и не имеет прав администратора для привилегированного действия.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotParticipant используется, когда отвечающий не входит в состав участников сессии.
	ErrNotParticipant = errors.New("user is not a participant of this session")

	// ErrAlreadyAnswered используется при повторном ответе на тот же вопрос.
	ErrAlreadyAnswered = errors.New("user already answered this question")

	// ErrNotAllowed используется, когда пользователь не входит в список допущенных к игре.
	ErrNotAllowed = errors.New("user is not on the allow list")

	// ErrNoActiveSession используется, когда на канале нет активной игры или окна присоединения.
	ErrNoActiveSession = errors.New("no active session on this channel")

	// ErrSessionAlreadyActive используется при попытке запустить вторую игру на том же канале.
	ErrSessionAlreadyActive = errors.New("session already active on this channel")

	// ErrQuestionClosed используется, когда ответ приходит вне окна приёма ответов
	// (вопрос уже обрабатывается или сессия завершена).
	ErrQuestionClosed = errors.New("question is no longer accepting answers")

	// ErrConfiguration используется при некорректных параметрах шардирования/воркеров.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrStoreUnavailable используется, когда внешнее хранилище недоступно.
	// Никогда не поднимается до пользователя как фатальная ошибка.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSurfaceGone — внутренний сигнал о том, что сообщение с игрой было удалено.
	// Единственный авторитетный признак для аварийного завершения сессии.
	ErrSurfaceGone = errors.New("render surface no longer exists")
)
