package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/pkg/logger"
)

// События обращений.
const (
	EventThreadCreated  = "thread.created"
	EventThreadReplied  = "thread.replied"
	EventThreadAssigned = "thread.assigned"
	EventThreadUpdated  = "thread.updated"
)

// ThreadEventProducer — интерфейс для отправки событий обращения в Kafka (для подмены моком в тестах).
type ThreadEventProducer interface {
	ProduceThreadEvent(ctx context.Context, event string, payload map[string]interface{})
}

// Producer пишет события обращений в топик Kafka (best-effort, не блокирует API).
type Producer struct {
	writer *kafka.Writer
	topic  string
	log    *logger.Logger
}

// NewProducer создаёт продюсер. Если brokers пустой или topic пустой — методы no-op.
func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	log = logger.OrGlobal(log)
	if len(brokers) == 0 || topic == "" {
		return &Producer{log: log}
	}
	return &Producer{
		topic: topic,
		log:   log,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Enabled: уходят ли события из процесса на самом деле.
func (p *Producer) Enabled() bool {
	return p.writer != nil
}

// ProduceThreadEvent отправляет событие в топик; ключ сообщения — id обращения, чтобы события одного обращения шли по порядку.
func (p *Producer) ProduceThreadEvent(ctx context.Context, event string, payload map[string]interface{}) {
	if p.writer == nil {
		return
	}
	msg := map[string]interface{}{"event": event}
	for k, v := range payload {
		msg[k] = v
	}
	body, err := json.Marshal(msg)
	if err != nil {
		p.log.Warn("kafka: marshal thread event", zap.String("event", event), zap.Error(err))
		return
	}
	var key []byte
	if id, ok := payload["thread_id"]; ok {
		key, _ = json.Marshal(id)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: body}); err != nil {
		p.log.Warn("kafka: write thread event", zap.String("event", event), zap.Error(err))
	}
}

// Close закрывает writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// ThreadEventPayload — общее тело события: поля обращения, по которым индексирует search-service.
func ThreadEventPayload(t *model.Thread) map[string]interface{} {
	if t == nil {
		return nil
	}
	return map[string]interface{}{
		"thread_id":            int64(t.ID),
		"kind":                 string(t.Kind),
		"owner_user_id":        t.OwnerUserID,
		"responder_id":         t.ResponderID,
		"subject":              t.Subject,
		"body":                 t.Body,
		"status":               string(t.Status),
		"priority":             string(t.Priority),
		"is_conversation_open": t.IsConversationOpen,
	}
}

// ReplyEventPayload дополняет тело события ответом, который его вызвал.
func ReplyEventPayload(t *model.Thread, r *model.Reply) map[string]interface{} {
	out := ThreadEventPayload(t)
	if out == nil || r == nil {
		return out
	}
	out["reply_id"] = int64(r.ID)
	out["author_role"] = string(r.AuthorRole)
	out["is_official"] = r.IsOfficial
	return out
}
