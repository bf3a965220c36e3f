package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"roleplay-server/internal/dice"
	"roleplay-server/internal/game"
	"roleplay-server/internal/locale"
	"roleplay-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoleplayHandler - HTTP API игрового сервера.
type RoleplayHandler struct {
	backend game.Backend
	hub     *Hub
	pack    *locale.Pack
	logger  *zap.Logger
}

func NewRoleplayHandler(backend game.Backend, hub *Hub, pack *locale.Pack, logger *zap.Logger) *RoleplayHandler {
	if pack == nil {
		pack = locale.English()
	}
	return &RoleplayHandler{
		backend: backend,
		hub:     hub,
		pack:    pack,
		logger:  logger.Named("RoleplayHandler"),
	}
}

func (h *RoleplayHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/roleplay")
	{
		api.GET("/games", h.listGames)
		api.POST("/game", h.createGame)
		api.GET("/game/:gameId", h.getGame)
		api.POST("/game/:gameId/start", h.startCampaign)
		api.DELETE("/game/:gameId/state", h.resetGame)

		api.GET("/history/:gameId", h.getHistory)
		api.POST("/message/:gameId", h.sendMessage)

		api.GET("/dice/types", h.diceTypes)
		api.POST("/dice/:gameId", h.rollDice)

		api.GET("/players/:gameId", h.listPlayers)
		api.POST("/players/:gameId", h.addPlayer)

		api.GET("/world/:gameId", h.getWorld)
	}

	if h.hub != nil {
		router.GET("/ws", h.serveWS)
	}
}

type sendMessageRequest struct {
	Message *models.Message `json:"message"`
}

type rollDiceRequest struct {
	DiceType     int  `json:"diceType"`
	NumberOfDice *int `json:"numberOfDice"`
	Modifier     int  `json:"modifier"`
}

// bindOptionalJSON разбирает тело запроса; пустое тело допустимо.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", models.ErrBadRequest, err)
	}
	return nil
}

func (h *RoleplayHandler) listGames(c *gin.Context) {
	c.JSON(http.StatusOK, h.backend.ListGames(c.Request.Context()))
}

func (h *RoleplayHandler) createGame(c *gin.Context) {
	var req game.CampaignSettings
	if err := bindOptionalJSON(c, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	campaign, err := h.backend.CreateGame(c.Request.Context(), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

func (h *RoleplayHandler) getGame(c *gin.Context) {
	campaign, err := h.backend.GetGame(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h *RoleplayHandler) startCampaign(c *gin.Context) {
	var req game.CampaignSettings
	if err := bindOptionalJSON(c, &req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	intro, err := h.backend.StartCampaign(c.Request.Context(), c.Param("gameId"), req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, intro)
}

func (h *RoleplayHandler) resetGame(c *gin.Context) {
	if err := h.backend.ResetGame(c.Request.Context(), c.Param("gameId")); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RoleplayHandler) getHistory(c *gin.Context) {
	history, err := h.backend.GetHistory(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (h *RoleplayHandler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}
	if req.Message == nil {
		h.handleServiceError(c, fmt.Errorf("%w: 'message' is required", models.ErrBadRequest))
		return
	}
	reply, err := h.backend.SendTurn(c.Request.Context(), c.Param("gameId"), *req.Message)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

func (h *RoleplayHandler) diceTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"diceTypes": dice.SupportedSides, "maxDice": dice.MaxCount})
}

func (h *RoleplayHandler) rollDice(c *gin.Context) {
	var req rollDiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}
	count := 1
	if req.NumberOfDice != nil {
		count = *req.NumberOfDice
	}
	if count > dice.MaxCount {
		h.handleServiceError(c, fmt.Errorf("%w: at most %d dice per roll, got %d", models.ErrBadRequest, dice.MaxCount, count))
		return
	}
	roll, err := h.backend.RollDice(c.Request.Context(), c.Param("gameId"), req.DiceType, count, req.Modifier)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, roll)
}

func (h *RoleplayHandler) listPlayers(c *gin.Context) {
	players, err := h.backend.ListPlayers(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, players)
}

func (h *RoleplayHandler) addPlayer(c *gin.Context) {
	var player models.Player
	if err := c.ShouldBindJSON(&player); err != nil {
		h.handleServiceError(c, fmt.Errorf("%w: %v", models.ErrBadRequest, err))
		return
	}
	created, err := h.backend.AddPlayer(c.Request.Context(), c.Param("gameId"), player)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *RoleplayHandler) getWorld(c *gin.Context) {
	view, err := h.backend.WorldState(c.Request.Context(), c.Param("gameId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
