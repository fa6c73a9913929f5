// Package client: сторона вызывающего в сценарии ответа. Формы ответа
// сотрудника и владельца и HTTP-привязка, через которую они отправляют.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/psds-microservice/consultation-service/internal/model"
)

// Remote: RPC-граница API консультаций.
type Remote interface {
	ReplyToThread(ctx context.Context, req ReplyRequest) (*Result, error)
	OwnerReplyToThread(ctx context.Context, req OwnerReplyRequest) (*Result, error)
	GetThreadDetail(ctx context.Context, kind model.ThreadKind, id uint64) (*model.ThreadDetail, error)
}

// ReplyRequest: официальный ответ сотрудника.
type ReplyRequest struct {
	Kind                 model.ThreadKind
	ThreadID             uint64
	Content              string
	IsOfficial           bool
	KeepConversationOpen bool
}

// OwnerReplyRequest не несёт флага шлюза: владелец не управляет перепиской.
type OwnerReplyRequest struct {
	Kind     model.ThreadKind
	ThreadID uint64
	Content  string
}

type Result struct {
	Success bool
	Message string
	Thread  *model.Thread
	Reply   *model.Reply
}

// ErrSubmitInProgress возвращается, пока предыдущий Submit той же формы ждёт ответа сервера.
var ErrSubmitInProgress = errors.New("submission already in progress")

// ValidationError: локальный отказ, запрос не отправлялся.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// RemoteError: неудачный вызов сервера. Message содержит текст сервера и
// пуст при транспортных ошибках.
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("remote %d: %s", e.StatusCode, e.Message)
	case e.Message != "":
		return "remote: " + e.Message
	case e.Err != nil:
		return "remote: " + e.Err.Error()
	}
	return fmt.Sprintf("remote %d", e.StatusCode)
}

func (e *RemoteError) Unwrap() error { return e.Err }
