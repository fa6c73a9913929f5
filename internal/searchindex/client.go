package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

// Indexer — то, что нужно хендлерам от индексатора (подменяется в тестах).
type Indexer interface {
	IndexThreadAsync(t *model.Thread)
}

// Client отправляет обращения в search-service для индексации (best-effort, не блокирует API).
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient возвращает клиент. Если baseURL пустой, вызовы IndexThread — no-op.
func NewClient(baseURL string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		log: logger.OrGlobal(log),
	}
}

// IndexThreadPayload — тело POST /search/index/thread.
type IndexThreadPayload struct {
	ThreadID    int64  `json:"thread_id"`
	Kind        string `json:"kind"`
	OwnerUserID string `json:"owner_user_id"`
	ResponderID string `json:"responder_id"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// IndexThread отправляет обращение в search-service. Возвращает false, если индексация не удалась.
func (c *Client) IndexThread(ctx context.Context, t *model.Thread) bool {
	if c.baseURL == "" {
		return false
	}
	payload := IndexThreadPayload{
		ThreadID:    int64(t.ID),
		Kind:        string(t.Kind),
		OwnerUserID: t.OwnerUserID,
		ResponderID: t.ResponderID,
		Subject:     t.Subject,
		Body:        t.Body,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn("searchindex: marshal", zap.Error(err))
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search/index/thread", bytes.NewReader(body))
	if err != nil {
		c.log.Warn("searchindex: new request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("searchindex: request", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("searchindex: unexpected status", zap.Int("status", resp.StatusCode), zap.Uint64("thread_id", t.ID))
		return false
	}
	return true
}

// IndexThreadAsync вызывает IndexThread в отдельной горутине (не блокирует ответ API).
func (c *Client) IndexThreadAsync(t *model.Thread) {
	if c.baseURL == "" || t == nil {
		return
	}
	snapshot := *t
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		c.IndexThread(ctx, &snapshot)
	}()
}
