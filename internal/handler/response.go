package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/psds-microservice/consultation-service/internal/errs"
	"github.com/psds-microservice/consultation-service/internal/middleware"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

// fail пишет ответ ошибки в формате RPC-границы: {"success": false, "message": ...}.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "message": message})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrEmptyContent),
		errors.Is(err, errs.ErrOwnerCannotSetGate),
		errors.Is(err, errs.ErrInvalidPriority),
		errors.Is(err, errs.ErrInvalidKind),
		errors.Is(err, errs.ErrInvalidContent),
		errors.Is(err, errs.ErrUnknownContentType):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrThreadNotFound), errors.Is(err, errs.ErrContentNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConversationClosed), errors.Is(err, errs.ErrThreadChanged):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError мапит доменные ошибки в статусы; неизвестные логируются и скрываются за fallback.
func writeError(c *gin.Context, log *logger.Logger, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error(fallback, zap.Error(err), zap.String("correlation_id", middleware.CorrelationID(c)))
		fail(c, status, fallback)
		return
	}
	fail(c, status, err.Error())
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func pagination(c *gin.Context) (limit, offset int) {
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
