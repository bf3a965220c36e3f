package handler

import (
	"errors"
	"net/http"
	"time"

	"roleplay-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError переводит ошибку сервиса в HTTP ответ.
// Неизвестные ошибки не раскрываются: клиент получает системное сообщение
// о проблеме связи с ведущим.
func (h *RoleplayHandler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrGameNotFound), errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: "Game not found"}
	case errors.Is(err, models.ErrGameExists):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Error: "Game already exists"}
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Error: err.Error()}
	default:
		h.logger.Error("Unhandled error in roleplay handler",
			zap.String("path", c.FullPath()),
			zap.String("gameID", c.Param("gameId")),
			zap.String("requestID", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		notice := models.Message{
			Content:   h.pack.CommunicationFail,
			Sender:    h.pack.SystemName,
			Avatar:    h.pack.SystemAvatar,
			Kind:      models.KindSystem,
			Timestamp: time.Now().UTC(),
		}
		statusCode = http.StatusBadGateway
		errResp = models.ErrorResponse{Error: h.pack.CommunicationFail, Message: &notice}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
