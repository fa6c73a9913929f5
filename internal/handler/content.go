package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/consultation-service/internal/content"
	"github.com/psds-microservice/consultation-service/internal/service"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

// ContentHandler обслуживает админский контент-менеджер.
type ContentHandler struct {
	svc service.ContentServicer
	log *logger.Logger
}

func NewContentHandler(svc service.ContentServicer, log *logger.Logger) *ContentHandler {
	return &ContentHandler{svc: svc, log: logger.OrGlobal(log)}
}

type createContentRequest struct {
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

func (h *ContentHandler) Create(c *gin.Context) {
	var req createContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	t, err := content.ParseType(req.Type)
	if err != nil {
		writeError(c, h.log, err, "failed to create content")
		return
	}
	item, err := h.svc.Create(c.Request.Context(), t, req.Payload)
	if err != nil {
		writeError(c, h.log, err, "failed to create content")
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ContentHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	item, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.log, err, "failed to load content")
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ContentHandler) List(c *gin.Context) {
	var t content.Type
	if v := c.Query("type"); v != "" {
		parsed, err := content.ParseType(v)
		if err != nil {
			writeError(c, h.log, err, "failed to list content")
			return
		}
		t = parsed
	}
	limit, offset := pagination(c)
	items, total, err := h.svc.List(c.Request.Context(), t, limit, offset)
	if err != nil {
		writeError(c, h.log, err, "failed to list content")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
	})
}
