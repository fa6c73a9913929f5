package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/internal/session"
)

// HTTPClient ходит в API консультаций от имени одной сессии.
// Своего таймаута у клиента нет, отмена через ctx.
type HTTPClient struct {
	baseURL    string
	sess       session.Session
	token      string
	httpClient *http.Client
}

type HTTPOption func(*HTTPClient)

// WithToken отправляет Bearer-токен вместо заголовков X-Caller-*.
func WithToken(token string) HTTPOption {
	return func(c *HTTPClient) { c.token = token }
}

func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) { c.httpClient = hc }
}

func NewHTTPClient(baseURL string, s session.Session, opts ...HTTPOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		sess:       s,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type replyBody struct {
	Content              string `json:"content"`
	IsOfficial           bool   `json:"is_official,omitempty"`
	KeepConversationOpen *bool  `json:"keep_conversation_open,omitempty"`
}

type replyResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Thread  *model.Thread `json:"thread"`
	Reply   *model.Reply  `json:"reply"`
}

func (c *HTTPClient) ReplyToThread(ctx context.Context, req ReplyRequest) (*Result, error) {
	keep := req.KeepConversationOpen
	return c.reply(ctx, threadPath(req.Kind, req.ThreadID)+"/replies", replyBody{
		Content:              req.Content,
		IsOfficial:           req.IsOfficial,
		KeepConversationOpen: &keep,
	})
}

func (c *HTTPClient) OwnerReplyToThread(ctx context.Context, req OwnerReplyRequest) (*Result, error) {
	return c.reply(ctx, threadPath(req.Kind, req.ThreadID)+"/owner-replies", replyBody{Content: req.Content})
}

func (c *HTTPClient) GetThreadDetail(ctx context.Context, kind model.ThreadKind, id uint64) (*model.ThreadDetail, error) {
	var detail model.ThreadDetail
	if err := c.do(ctx, http.MethodGet, threadPath(kind, id), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *HTTPClient) reply(ctx context.Context, path string, body replyBody) (*Result, error) {
	var resp replyResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &RemoteError{Message: resp.Message}
	}
	return &Result{Success: true, Message: resp.Message, Thread: resp.Thread, Reply: resp.Reply}, nil
}

func threadPath(kind model.ThreadKind, id uint64) string {
	return "/api/v1/" + kind.Plural() + "/" + strconv.FormatUint(id, 10)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteError{Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RemoteError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &failure)
		return &RemoteError{StatusCode: resp.StatusCode, Message: failure.Message}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &RemoteError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
		return
	}
	req.Header.Set("X-Caller-Id", c.sess.UserID)
	req.Header.Set("X-Caller-Role", string(c.sess.Role))
	if c.sess.VetMode {
		req.Header.Set("X-Vet-Mode", "true")
	}
}
