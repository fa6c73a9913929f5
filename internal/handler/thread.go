package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/psds-microservice/consultation-service/internal/errs"
	"github.com/psds-microservice/consultation-service/internal/kafka"
	"github.com/psds-microservice/consultation-service/internal/middleware"
	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/internal/searchindex"
	"github.com/psds-microservice/consultation-service/internal/service"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

const kindKey = "thread_kind"

// WithKind привязывает группу маршрутов к типу обращения (inquiries / consultations).
func WithKind(kind model.ThreadKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(kindKey, kind)
		c.Next()
	}
}

func kindOf(c *gin.Context) model.ThreadKind {
	if v, ok := c.Get(kindKey); ok {
		if k, ok := v.(model.ThreadKind); ok {
			return k
		}
	}
	return model.ThreadKindInquiry
}

type ThreadHandler struct {
	svc    service.ThreadServicer
	events kafka.ThreadEventProducer
	search searchindex.Indexer
	log    *logger.Logger
}

// NewThreadHandler: events и search могут быть nil.
func NewThreadHandler(svc service.ThreadServicer, events kafka.ThreadEventProducer, search searchindex.Indexer, log *logger.Logger) *ThreadHandler {
	return &ThreadHandler{svc: svc, events: events, search: search, log: logger.OrGlobal(log)}
}

type createThreadRequest struct {
	Subject  string `json:"subject"`
	Body     string `json:"body" binding:"required"`
	Category string `json:"category"`
	PetName  string `json:"pet_name"`
	Priority string `json:"priority"`
}

func (h *ThreadHandler) Create(c *gin.Context) {
	var req createThreadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	s := middleware.SessionFrom(c)
	t := &model.Thread{
		Kind:        kindOf(c),
		OwnerUserID: s.UserID,
		Subject:     req.Subject,
		Body:        req.Body,
		Category:    req.Category,
		PetName:     req.PetName,
		Priority:    model.Priority(strings.ToLower(req.Priority)),
	}
	if err := h.svc.Create(c.Request.Context(), t); err != nil {
		writeError(c, h.log, err, "failed to create thread")
		return
	}
	h.publish(kafka.EventThreadCreated, kafka.ThreadEventPayload(t), t)
	c.JSON(http.StatusCreated, t)
}

// Get отдаёт обращение с перепиской (getThreadDetail). Доступно владельцу и сотрудникам.
func (h *ThreadHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	detail, err := h.svc.Detail(c.Request.Context(), kindOf(c), id)
	if err != nil {
		writeError(c, h.log, err, "failed to load thread")
		return
	}
	s := middleware.SessionFrom(c)
	if !s.IsResponder() && detail.Thread.OwnerUserID != s.UserID {
		// чужое обращение неотличимо от несуществующего
		writeError(c, h.log, errs.ErrThreadNotFound, "failed to load thread")
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *ThreadHandler) List(c *gin.Context) {
	s := middleware.SessionFrom(c)
	limit, offset := pagination(c)
	f := service.ThreadFilter{
		Status:   model.ThreadStatus(c.Query("status")),
		Priority: model.Priority(c.Query("priority")),
		Limit:    limit,
		Offset:   offset,
	}
	if s.IsResponder() {
		f.OwnerUserID = c.Query("owner_id")
		f.ResponderID = c.Query("responder_id")
	} else {
		f.OwnerUserID = s.UserID
	}
	items, total, err := h.svc.List(c.Request.Context(), kindOf(c), f)
	if err != nil {
		writeError(c, h.log, err, "failed to list threads")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"threads": items,
		"total":   total,
	})
}

type responderReplyRequest struct {
	Content              string `json:"content"`
	KeepConversationOpen bool   `json:"keep_conversation_open"`
}

type ownerReplyRequest struct {
	Content              string `json:"content"`
	KeepConversationOpen *bool  `json:"keep_conversation_open,omitempty"`
}

// ReplyResponse: ответ replyToThread / ownerReplyToThread.
type ReplyResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Thread  *model.Thread `json:"thread,omitempty"`
	Reply   *model.Reply  `json:"reply,omitempty"`
}

// Reply: официальный ответ сотрудника (replyToThread). Сотрудник решает, остаётся ли переписка открытой.
func (h *ThreadHandler) Reply(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s := middleware.SessionFrom(c)
	if !s.IsResponder() {
		fail(c, http.StatusForbidden, "responder role required")
		return
	}
	var req responderReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	out, err := h.svc.ReplyAsResponder(c.Request.Context(), kindOf(c), id, s.UserID, req.Content, req.KeepConversationOpen)
	if err != nil {
		writeError(c, h.log, err, "failed to submit reply")
		return
	}
	h.replied(c, out)
}

// OwnerReply: ответ владельца (ownerReplyToThread), только пока переписка открыта.
func (h *ThreadHandler) OwnerReply(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ownerReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	if req.KeepConversationOpen != nil {
		fail(c, http.StatusBadRequest, "owner replies cannot set keep_conversation_open")
		return
	}
	s := middleware.SessionFrom(c)
	out, err := h.svc.ReplyAsOwner(c.Request.Context(), kindOf(c), id, s.UserID, req.Content)
	if errors.Is(err, errs.ErrForbidden) {
		err = errs.ErrThreadNotFound
	}
	if err != nil {
		writeError(c, h.log, err, "failed to submit reply")
		return
	}
	h.replied(c, out)
}

func (h *ThreadHandler) replied(c *gin.Context, out *service.ReplyOutcome) {
	h.publish(kafka.EventThreadReplied, kafka.ReplyEventPayload(out.Thread, out.Reply), out.Thread)
	msg := "reply sent; conversation closed"
	if out.To.Open {
		msg = "reply sent; conversation open"
	}
	c.JSON(http.StatusCreated, ReplyResponse{
		Success: true,
		Message: msg,
		Thread:  out.Thread,
		Reply:   out.Reply,
	})
}

type assignRequest struct {
	ResponderID string `json:"responder_id"`
}

func (h *ThreadHandler) Assign(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	s := middleware.SessionFrom(c)
	if !s.IsResponder() {
		fail(c, http.StatusForbidden, "responder role required")
		return
	}
	var req assignRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, "invalid body")
			return
		}
	}
	responderID := strings.TrimSpace(req.ResponderID)
	if responderID == "" {
		responderID = s.UserID
	}
	t, err := h.svc.Assign(c.Request.Context(), kindOf(c), id, responderID)
	if err != nil {
		writeError(c, h.log, err, "failed to assign thread")
		return
	}
	h.publish(kafka.EventThreadAssigned, kafka.ThreadEventPayload(t), t)
	c.JSON(http.StatusOK, t)
}

type priorityRequest struct {
	Priority string `json:"priority" binding:"required"`
}

func (h *ThreadHandler) UpdatePriority(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !middleware.SessionFrom(c).IsResponder() {
		fail(c, http.StatusForbidden, "responder role required")
		return
	}
	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid body")
		return
	}
	t, err := h.svc.UpdatePriority(c.Request.Context(), kindOf(c), id, model.Priority(strings.ToLower(req.Priority)))
	if err != nil {
		writeError(c, h.log, err, "failed to update priority")
		return
	}
	h.publish(kafka.EventThreadUpdated, kafka.ThreadEventPayload(t), t)
	c.JSON(http.StatusOK, t)
}

// publish: событие и индексация fire-and-forget, ответ API их не ждёт.
func (h *ThreadHandler) publish(event string, payload map[string]interface{}, t *model.Thread) {
	if h.events != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			h.events.ProduceThreadEvent(ctx, event, payload)
		}()
	}
	if h.search != nil {
		h.search.IndexThreadAsync(t)
	}
}
