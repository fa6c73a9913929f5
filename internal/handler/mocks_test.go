package handler_test

import (
	"context"
	"sync"

	"github.com/psds-microservice/consultation-service/internal/content"
	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/internal/service"
)

type mockThreadService struct {
	createFn           func(ctx context.Context, t *model.Thread) error
	getByIDFn          func(ctx context.Context, kind model.ThreadKind, id uint64) (*model.Thread, error)
	detailFn           func(ctx context.Context, kind model.ThreadKind, id uint64) (*model.ThreadDetail, error)
	listFn             func(ctx context.Context, kind model.ThreadKind, f service.ThreadFilter) ([]model.Thread, int64, error)
	replyAsResponderFn func(ctx context.Context, kind model.ThreadKind, id uint64, responderID, content string, keepOpen bool) (*service.ReplyOutcome, error)
	replyAsOwnerFn     func(ctx context.Context, kind model.ThreadKind, id uint64, ownerID, content string) (*service.ReplyOutcome, error)
	assignFn           func(ctx context.Context, kind model.ThreadKind, id uint64, responderID string) (*model.Thread, error)
	updatePriorityFn   func(ctx context.Context, kind model.ThreadKind, id uint64, p model.Priority) (*model.Thread, error)
	replyCalls         int
}

func (m *mockThreadService) Create(ctx context.Context, t *model.Thread) error {
	if m.createFn != nil {
		return m.createFn(ctx, t)
	}
	return nil
}

func (m *mockThreadService) GetByID(ctx context.Context, kind model.ThreadKind, id uint64) (*model.Thread, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, kind, id)
	}
	return nil, nil
}

func (m *mockThreadService) Detail(ctx context.Context, kind model.ThreadKind, id uint64) (*model.ThreadDetail, error) {
	if m.detailFn != nil {
		return m.detailFn(ctx, kind, id)
	}
	return &model.ThreadDetail{}, nil
}

func (m *mockThreadService) List(ctx context.Context, kind model.ThreadKind, f service.ThreadFilter) ([]model.Thread, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, kind, f)
	}
	return []model.Thread{}, 0, nil
}

func (m *mockThreadService) ReplyAsResponder(ctx context.Context, kind model.ThreadKind, id uint64, responderID, content string, keepOpen bool) (*service.ReplyOutcome, error) {
	m.replyCalls++
	if m.replyAsResponderFn != nil {
		return m.replyAsResponderFn(ctx, kind, id, responderID, content, keepOpen)
	}
	return nil, nil
}

func (m *mockThreadService) ReplyAsOwner(ctx context.Context, kind model.ThreadKind, id uint64, ownerID, content string) (*service.ReplyOutcome, error) {
	m.replyCalls++
	if m.replyAsOwnerFn != nil {
		return m.replyAsOwnerFn(ctx, kind, id, ownerID, content)
	}
	return nil, nil
}

func (m *mockThreadService) Assign(ctx context.Context, kind model.ThreadKind, id uint64, responderID string) (*model.Thread, error) {
	if m.assignFn != nil {
		return m.assignFn(ctx, kind, id, responderID)
	}
	return &model.Thread{}, nil
}

func (m *mockThreadService) UpdatePriority(ctx context.Context, kind model.ThreadKind, id uint64, p model.Priority) (*model.Thread, error) {
	if m.updatePriorityFn != nil {
		return m.updatePriorityFn(ctx, kind, id, p)
	}
	return &model.Thread{}, nil
}

type mockContentService struct {
	createFn func(ctx context.Context, t content.Type, raw []byte) (*content.Item, error)
	getFn    func(ctx context.Context, id uint64) (*content.Item, error)
	listFn   func(ctx context.Context, t content.Type, limit, offset int) ([]content.Item, int64, error)
}

func (m *mockContentService) Create(ctx context.Context, t content.Type, raw []byte) (*content.Item, error) {
	if m.createFn != nil {
		return m.createFn(ctx, t, raw)
	}
	return &content.Item{}, nil
}

func (m *mockContentService) Get(ctx context.Context, id uint64) (*content.Item, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &content.Item{}, nil
}

func (m *mockContentService) List(ctx context.Context, t content.Type, limit, offset int) ([]content.Item, int64, error) {
	if m.listFn != nil {
		return m.listFn(ctx, t, limit, offset)
	}
	return []content.Item{}, 0, nil
}

type recordedEvent struct {
	name    string
	payload map[string]interface{}
}

type mockProducer struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (m *mockProducer) ProduceThreadEvent(_ context.Context, event string, payload map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{name: event, payload: payload})
}

func (m *mockProducer) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.name)
	}
	return out
}

type mockIndexer struct {
	mu      sync.Mutex
	indexed []uint64
}

func (m *mockIndexer) IndexThreadAsync(t *model.Thread) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed = append(m.indexed, t.ID)
}

func (m *mockIndexer) ids() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uint64(nil), m.indexed...)
}
