package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"

	"github.com/yourusername/quiz-bot/internal/sharding"
)

// Config хранит все настройки воркера
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bot      BotConfig
	Game     GameConfig
}

// ServerConfig содержит настройки статусного HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single' (для обратной совместимости).
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно). По умолчанию 0 (без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах). По умолчанию 8ms.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах). По умолчанию 512ms.
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// BotConfig содержит настройки воркера и шардирования.
// WorkerIndex и TotalWorkers описывают место этого процесса в группе воркеров,
// TotalShards — общее число шардов платформы.
type BotConfig struct {
	WorkerIndex  int    `mapstructure:"worker_index"`
	TotalWorkers int    `mapstructure:"total_workers"`
	TotalShards  int    `mapstructure:"total_shards"`
	IPCSecret    string `mapstructure:"ipc_secret"`
}

// GameConfig содержит игровые настройки по умолчанию
type GameConfig struct {
	JoinWindowSec        int  `mapstructure:"join_window_sec"`
	AnswerDisplaySec     int  `mapstructure:"answer_display_sec"`
	ScoreboardDisplaySec int  `mapstructure:"scoreboard_display_sec"`
	PrivateFeedback      bool `mapstructure:"private_feedback"`
	SnapshotTTLMin       int  `mapstructure:"snapshot_ttl_min"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("bot.worker_index", 0)
	vip.SetDefault("bot.total_workers", 1)
	vip.SetDefault("bot.total_shards", 1)
	vip.SetDefault("game.join_window_sec", 10)
	vip.SetDefault("game.answer_display_sec", 5)
	vip.SetDefault("game.scoreboard_display_sec", 5)
	vip.SetDefault("game.private_feedback", true)
	vip.SetDefault("game.snapshot_ttl_min", 60)

	// 2. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS") // Для массива строк
	vip.BindEnv("redis.addr", "REDIS_ADDR")   // Для одиночной строки
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции Bot
	vip.BindEnv("bot.worker_index", "BOT_WORKER_INDEX")
	vip.BindEnv("bot.total_workers", "BOT_TOTAL_WORKERS")
	vip.BindEnv("bot.total_shards", "BOT_TOTAL_SHARDS")
	vip.BindEnv("bot.ipc_secret", "BOT_IPC_SECRET")

	// Привязка для секции Game
	vip.BindEnv("game.join_window_sec", "GAME_JOIN_WINDOW_SEC")
	vip.BindEnv("game.answer_display_sec", "GAME_ANSWER_DISPLAY_SEC")
	vip.BindEnv("game.scoreboard_display_sec", "GAME_SCOREBOARD_DISPLAY_SEC")
	vip.BindEnv("game.private_feedback", "GAME_PRIVATE_FEEDBACK")
	vip.BindEnv("game.snapshot_ttl_min", "GAME_SNAPSHOT_TTL_MIN")

	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")

	// 3. Устанавливаем путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// 4. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 5. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Port: %s", cfg.Database.Port)
		log.Printf("Database User: %s", cfg.Database.User)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("Worker Index: %d of %d", cfg.Bot.WorkerIndex, cfg.Bot.TotalWorkers)
		log.Printf("Total Shards: %d", cfg.Bot.TotalShards)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// 7. Проверка обязательных параметров
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}

	// Параметры шардирования проверяются сразу: с неверным диапазоном воркер
	// не должен стартовать и молча пропускать чужие или свои сессии.
	if _, err := sharding.CalcShards(cfg.Bot.WorkerIndex, cfg.Bot.TotalWorkers, cfg.Bot.TotalShards); err != nil {
		return nil, fmt.Errorf("invalid sharding configuration: %w", err)
	}

	return &cfg, nil
}
