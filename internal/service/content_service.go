package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/psds-microservice/consultation-service/internal/content"
	"github.com/psds-microservice/consultation-service/internal/errs"
	"github.com/psds-microservice/consultation-service/internal/model"
	"gorm.io/gorm"
)

type ContentServicer interface {
	Create(ctx context.Context, t content.Type, raw []byte) (*content.Item, error)
	Get(ctx context.Context, id uint64) (*content.Item, error)
	List(ctx context.Context, t content.Type, limit, offset int) ([]content.Item, int64, error)
}

// ContentService хранит записи контент-менеджера в исходном виде и отдаёт их нормализованными.
type ContentService struct {
	db *gorm.DB
}

func NewContentService(db *gorm.DB) *ContentService {
	return &ContentService{db: db}
}

func (s *ContentService) Create(ctx context.Context, t content.Type, raw []byte) (*content.Item, error) {
	rec, err := content.Decode(t, raw)
	if err != nil {
		return nil, err
	}
	row := &model.ContentItem{Type: string(t), Payload: string(raw)}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	item := content.Normalize(rec)
	item.ID = row.ID
	item.CreatedAt = row.CreatedAt
	return &item, nil
}

func (s *ContentService) Get(ctx context.Context, id uint64) (*content.Item, error) {
	var row model.ContentItem
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrContentNotFound
		}
		return nil, err
	}
	item, err := normalizeRow(row)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List отдаёт нормализованные записи, новые первыми. Пустой t означает все типы.
func (s *ContentService) List(ctx context.Context, t content.Type, limit, offset int) ([]content.Item, int64, error) {
	var rows []model.ContentItem
	var total int64
	tx := s.db.WithContext(ctx).Model(&model.ContentItem{})
	if t != "" {
		tx = tx.Where("type = ?", t)
	}
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if offset > 0 {
		tx = tx.Offset(offset)
	}
	if err := tx.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	items := make([]content.Item, 0, len(rows))
	for _, row := range rows {
		item, err := normalizeRow(row)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, nil
}

func normalizeRow(row model.ContentItem) (content.Item, error) {
	t, err := content.ParseType(row.Type)
	if err != nil {
		return content.Item{}, fmt.Errorf("content item %d: %w", row.ID, err)
	}
	rec, err := content.Decode(t, []byte(row.Payload))
	if err != nil {
		return content.Item{}, fmt.Errorf("content item %d: %w", row.ID, err)
	}
	item := content.Normalize(rec)
	item.ID = row.ID
	item.CreatedAt = row.CreatedAt
	return item, nil
}
