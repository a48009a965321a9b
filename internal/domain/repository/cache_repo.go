package repository

import (
	"time"
)

// CacheRepository определяет методы для работы с разделяемым key-value хранилищем
type CacheRepository interface {
	// Set сохраняет значение с заданным временем жизни
	Set(key string, value interface{}, expiration time.Duration) error

	// Get получает строковое значение по ключу
	Get(key string) (string, error)

	// SetJSON сохраняет структуру в формате JSON с заданным временем жизни
	SetJSON(key string, value interface{}, expiration time.Duration) error

	// GetJSON получает структуру JSON по ключу
	GetJSON(key string, dest interface{}) error

	// Keys возвращает все ключи, соответствующие шаблону (например "quiz_session:*")
	Keys(pattern string) ([]string, error)

	// Delete удаляет значение по ключу
	Delete(key string) error

	// Exists проверяет существование ключа
	Exists(key string) (bool, error)
}
