package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/quiz-bot/internal/domain/repository"
	"github.com/yourusername/quiz-bot/internal/service"
)

// StatusHandler обрабатывает статусные запросы воркера
type StatusHandler struct {
	gameManager *service.GameManager
	resultRepo  repository.ResultRepository
	workerIndex int
}

// NewStatusHandler создает новый статусный обработчик
func NewStatusHandler(gameManager *service.GameManager, resultRepo repository.ResultRepository, workerIndex int) *StatusHandler {
	return &StatusHandler{
		gameManager: gameManager,
		resultRepo:  resultRepo,
		workerIndex: workerIndex,
	}
}

// RegisterRoutes регистрирует маршруты статусного API
func (h *StatusHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	api := router.Group("/api")
	{
		api.GET("/sessions", h.ActiveSessions)
		api.GET("/guilds/:guild_id/results", h.GuildResults)
	}
}

// Health возвращает статус воркера
func (h *StatusHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"worker": h.workerIndex,
	})
}

// ActiveSessions возвращает список живых сессий воркера
func (h *StatusHandler) ActiveSessions(c *gin.Context) {
	sessions := h.gameManager.ActiveSessions()
	c.JSON(http.StatusOK, gin.H{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// GuildResults возвращает результаты сыгранных партий гильдии
func (h *StatusHandler) GuildResults(c *gin.Context) {
	guildID, err := strconv.ParseInt(c.Param("guild_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid guild id"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	results, total, err := h.resultRepo.GetGuildResults(guildID, limit, offset)
	if err != nil {
		log.Printf("[StatusHandler] Ошибка получения результатов гильдии %d: %v", guildID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"results": results,
	})
}
