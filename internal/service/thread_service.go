package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/psds-microservice/consultation-service/internal/errs"
	"github.com/psds-microservice/consultation-service/internal/gate"
	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ThreadServicer: то, от чего зависят хендлеры.
type ThreadServicer interface {
	Create(ctx context.Context, t *model.Thread) error
	GetByID(ctx context.Context, kind model.ThreadKind, id uint64) (*model.Thread, error)
	Detail(ctx context.Context, kind model.ThreadKind, id uint64) (*model.ThreadDetail, error)
	List(ctx context.Context, kind model.ThreadKind, f ThreadFilter) ([]model.Thread, int64, error)
	ReplyAsResponder(ctx context.Context, kind model.ThreadKind, id uint64, responderID, content string, keepOpen bool) (*ReplyOutcome, error)
	ReplyAsOwner(ctx context.Context, kind model.ThreadKind, id uint64, ownerID, content string) (*ReplyOutcome, error)
	Assign(ctx context.Context, kind model.ThreadKind, id uint64, responderID string) (*model.Thread, error)
	UpdatePriority(ctx context.Context, kind model.ThreadKind, id uint64, p model.Priority) (*model.Thread, error)
}

type ThreadFilter struct {
	OwnerUserID string
	ResponderID string
	Status      model.ThreadStatus
	Priority    model.Priority
	Limit       int
	Offset      int
}

// ReplyOutcome: сохранённый ответ и состояние обращения после него.
type ReplyOutcome struct {
	Thread *model.Thread
	Reply  *model.Reply
	From   gate.State
	To     gate.State
}

type ThreadService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewThreadService(db *gorm.DB) *ThreadService {
	return &ThreadService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *ThreadService) Create(ctx context.Context, t *model.Thread) error {
	if strings.TrimSpace(t.OwnerUserID) == "" {
		return fmt.Errorf("%w: owner is required", errs.ErrForbidden)
	}
	if strings.TrimSpace(t.Body) == "" {
		return errs.ErrEmptyContent
	}
	if _, ok := model.ParseThreadKind(string(t.Kind)); !ok {
		return errs.ErrInvalidKind
	}
	if t.Priority == "" {
		t.Priority = model.PriorityNormal
	}
	if !t.Priority.Valid() {
		return errs.ErrInvalidPriority
	}
	initial := gate.Initial()
	t.Status = initial.Status
	t.IsConversationOpen = initial.Open
	t.ResponderID = ""
	t.ClosedAt = nil
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return err
	}
	metrics.ThreadsCreatedTotal.WithLabelValues(string(t.Kind)).Inc()
	return nil
}

func (s *ThreadService) GetByID(ctx context.Context, kind model.ThreadKind, id uint64) (*model.Thread, error) {
	return findThread(s.db.WithContext(ctx), kind, id)
}

func (s *ThreadService) Detail(ctx context.Context, kind model.ThreadKind, id uint64) (*model.ThreadDetail, error) {
	db := s.db.WithContext(ctx)
	t, err := findThread(db, kind, id)
	if err != nil {
		return nil, err
	}
	replies := []model.Reply{}
	if err := db.Where("thread_id = ?", t.ID).Order("created_at ASC, id ASC").Find(&replies).Error; err != nil {
		return nil, err
	}
	return &model.ThreadDetail{Thread: *t, Replies: replies}, nil
}

func (s *ThreadService) List(ctx context.Context, kind model.ThreadKind, f ThreadFilter) ([]model.Thread, int64, error) {
	var items []model.Thread
	var total int64
	tx := s.db.WithContext(ctx).Model(&model.Thread{}).Where("kind = ?", kind)
	if f.OwnerUserID != "" {
		tx = tx.Where("owner_user_id = ?", f.OwnerUserID)
	}
	if f.ResponderID != "" {
		tx = tx.Where("responder_id = ?", f.ResponderID)
	}
	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		tx = tx.Where("priority = ?", f.Priority)
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit > 0 {
		tx = tx.Limit(f.Limit)
	}
	if f.Offset > 0 {
		tx = tx.Offset(f.Offset)
	}
	if err := tx.Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ReplyAsResponder добавляет официальный ответ и ставит шлюз в keepOpen.
func (s *ThreadService) ReplyAsResponder(ctx context.Context, kind model.ThreadKind, id uint64, responderID, content string, keepOpen bool) (*ReplyOutcome, error) {
	r := &model.Reply{
		AuthorID:             responderID,
		AuthorRole:           model.AuthorRoleResponder,
		Content:              content,
		IsOfficial:           true,
		KeepConversationOpen: &keepOpen,
	}
	return s.reply(ctx, kind, id, r, nil)
}

// ReplyAsOwner добавляет ответ владельца. Только владелец обращения и только при открытом шлюзе.
func (s *ThreadService) ReplyAsOwner(ctx context.Context, kind model.ThreadKind, id uint64, ownerID, content string) (*ReplyOutcome, error) {
	r := &model.Reply{
		AuthorID:   ownerID,
		AuthorRole: model.AuthorRoleOwner,
		Content:    content,
	}
	return s.reply(ctx, kind, id, r, func(t *model.Thread) error {
		if t.OwnerUserID != ownerID {
			return fmt.Errorf("%w: not the thread owner", errs.ErrForbidden)
		}
		return nil
	})
}

func (s *ThreadService) reply(ctx context.Context, kind model.ThreadKind, id uint64, r *model.Reply, authorize func(*model.Thread) error) (*ReplyOutcome, error) {
	var out *ReplyOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var from, to gate.State
		t, err := s.mutateThread(tx, kind, id, func(t *model.Thread) (map[string]interface{}, error) {
			if authorize != nil {
				if err := authorize(t); err != nil {
					return nil, err
				}
			}
			from = gate.Of(t)
			next, err := gate.Apply(from, *r)
			if err != nil {
				return nil, err
			}
			to = next
			updates := map[string]interface{}{
				"status":               to.Status,
				"is_conversation_open": to.Open,
			}
			if to.Open {
				updates["closed_at"] = nil
			} else if from.Open || t.ClosedAt == nil {
				updates["closed_at"] = s.now()
			}
			if r.AuthorRole == model.AuthorRoleResponder {
				updates["responder_id"] = r.AuthorID
			}
			return updates, nil
		})
		if err != nil {
			return err
		}

		r.ThreadID = t.ID
		r.Content = strings.TrimSpace(r.Content)
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		out = &ReplyOutcome{Thread: t, Reply: r, From: from, To: to}
		return nil
	})
	if err != nil {
		metrics.RecordRejectedReply(string(kind), string(r.AuthorRole), rejectReason(err))
		return nil, err
	}
	metrics.RecordReply(string(kind), string(r.AuthorRole), gate.Transition(out.From, out.To))
	return out, nil
}

func (s *ThreadService) Assign(ctx context.Context, kind model.ThreadKind, id uint64, responderID string) (*model.Thread, error) {
	if strings.TrimSpace(responderID) == "" {
		return nil, fmt.Errorf("%w: responder is required", errs.ErrForbidden)
	}
	var out *model.Thread
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := s.mutateThread(tx, kind, id, func(t *model.Thread) (map[string]interface{}, error) {
			st, err := gate.Assign(gate.Of(t))
			if err != nil {
				return nil, err
			}
			return map[string]interface{}{
				"status":       st.Status,
				"responder_id": responderID,
			}, nil
		})
		if err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// maxGateAttempts: сколько раз перечитываем обращение, если шлюз поменяли между чтением и записью.
const maxGateAttempts = 3

// mutateThread читает обращение под блокировкой строки, строит изменения через step и пишет
// только эти колонки, при условии что статус и шлюз остались такими, какими step их видел.
// Если условие не выполнилось, step вызывается заново на свежем состоянии.
// Возвращает обращение, перечитанное после записи.
func (s *ThreadService) mutateThread(tx *gorm.DB, kind model.ThreadKind, id uint64, step func(t *model.Thread) (map[string]interface{}, error)) (*model.Thread, error) {
	for attempt := 0; attempt < maxGateAttempts; attempt++ {
		t, err := findThread(tx.Clauses(clause.Locking{Strength: "UPDATE"}), kind, id)
		if err != nil {
			return nil, err
		}
		updates, err := step(t)
		if err != nil {
			return nil, err
		}
		res := tx.Model(&model.Thread{}).
			Where("id = ? AND status = ? AND is_conversation_open = ?", t.ID, t.Status, t.IsConversationOpen).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return findThread(tx, kind, id)
		}
	}
	return nil, errs.ErrThreadChanged
}

func (s *ThreadService) UpdatePriority(ctx context.Context, kind model.ThreadKind, id uint64, p model.Priority) (*model.Thread, error) {
	if !p.Valid() {
		return nil, errs.ErrInvalidPriority
	}
	db := s.db.WithContext(ctx)
	t, err := findThread(db, kind, id)
	if err != nil {
		return nil, err
	}
	if err := db.Model(t).Update("priority", p).Error; err != nil {
		return nil, err
	}
	t.Priority = p
	return t, nil
}

func findThread(db *gorm.DB, kind model.ThreadKind, id uint64) (*model.Thread, error) {
	var t model.Thread
	if err := db.Where("kind = ?", kind).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrThreadNotFound
		}
		return nil, err
	}
	return &t, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, errs.ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, errs.ErrConversationClosed):
		return "conversation_closed"
	case errors.Is(err, errs.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errs.ErrThreadNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrThreadChanged):
		return "conflict"
	}
	return "error"
}
