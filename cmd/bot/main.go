package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-bot/internal/config"
	"github.com/yourusername/quiz-bot/internal/handler"
	"github.com/yourusername/quiz-bot/internal/ipc"
	pgRepo "github.com/yourusername/quiz-bot/internal/repository/postgres"
	redisRepo "github.com/yourusername/quiz-bot/internal/repository/redis"
	"github.com/yourusername/quiz-bot/internal/service"
	"github.com/yourusername/quiz-bot/internal/service/gamesession"
	"github.com/yourusername/quiz-bot/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	quizRepo := pgRepo.NewQuizRepo(db)
	resultRepo := pgRepo.NewResultRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Контекст с отменой для корректного завершения работы горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Хранилище снапшотов сессий и настроек гильдий
	store := gamesession.NewStore(cacheRepo, time.Duration(cfg.Game.SnapshotTTLMin)*time.Minute)
	settingsStore := gamesession.NewSettingsStore(cacheRepo)

	// Игровые настройки
	gameCfg := &gamesession.Config{
		JoinWindowSec:        cfg.Game.JoinWindowSec,
		AnswerDisplaySec:     cfg.Game.AnswerDisplaySec,
		ScoreboardDisplaySec: cfg.Game.ScoreboardDisplaySec,
		PrivateFeedback:      cfg.Game.PrivateFeedback,
		SnapshotTTL:          time.Duration(cfg.Game.SnapshotTTLMin) * time.Minute,
	}

	// Презентер платформы. Пока подключается заглушка: модуль шлюза
	// платформы регистрирует настоящий презентер при подключении воркера.
	var presenter gamesession.Presenter = &gamesession.NoopPresenter{}

	// Менеджер игр
	gameManager := service.NewGameManager(ctx, quizRepo, resultRepo, store, settingsStore, presenter, gameCfg, service.ShardConfig{
		WorkerIndex:  cfg.Bot.WorkerIndex,
		TotalWorkers: cfg.Bot.TotalWorkers,
		TotalShards:  cfg.Bot.TotalShards,
	})

	// Восстанавливаем сессии своих шардов после перезапуска
	if err := gameManager.RecoverSessions(); err != nil {
		log.Printf("Failed to recover sessions: %v", err)
		os.Exit(1)
	}

	// Инициализируем обработчики
	statusHandler := handler.NewStatusHandler(gameManager, resultRepo, cfg.Bot.WorkerIndex)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8000", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	statusHandler.RegisterRoutes(router)

	// IPC-сервер для панели управления
	ipcServer := ipc.NewServer(cfg.Bot.IPCSecret)
	ipcServer.Route("active_sessions", func(json.RawMessage) (interface{}, error) {
		return gameManager.ActiveSessions(), nil
	})
	ipcServer.Route("session_count", func(json.RawMessage) (interface{}, error) {
		return map[string]int{"count": len(gameManager.ActiveSessions())}, nil
	})
	router.GET("/ipc", gin.WrapH(ipcServer))

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Worker %d of %d started on port %s", cfg.Bot.WorkerIndex, cfg.Bot.TotalWorkers, cfg.Server.Port)

	// Ждем сигнала остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down worker...")

	// Живые сессии остаются в снапшотах и будут восстановлены после перезапуска
	gameManager.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Worker exited properly")
}
