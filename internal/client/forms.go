package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/psds-microservice/consultation-service/internal/errs"
	"github.com/psds-microservice/consultation-service/internal/model"
	"github.com/psds-microservice/consultation-service/internal/session"
)

type AlertLevel string

const (
	AlertError   AlertLevel = "error"
	AlertSuccess AlertLevel = "success"
	AlertInfo    AlertLevel = "info"
)

type Alert struct {
	Level   AlertLevel
	Title   string
	Message string
}

// Alerter показывает уведомления пользователю.
type Alerter interface {
	Alert(a Alert)
}

type AlerterFunc func(a Alert)

func (f AlerterFunc) Alert(a Alert) { f(a) }

type formOptions struct {
	alerter   Alerter
	msgs      Messages
	onSuccess func(*Result)
}

type FormOption func(*formOptions)

func WithAlerter(a Alerter) FormOption {
	return func(o *formOptions) { o.alerter = a }
}

func WithMessages(m Messages) FormOption {
	return func(o *formOptions) { o.msgs = m }
}

// OnSuccess вызывается после успешной отправки, например чтобы перечитать переписку.
func OnSuccess(fn func(*Result)) FormOption {
	return func(o *formOptions) { o.onSuccess = fn }
}

func newFormOptions(opts []FormOption) formOptions {
	o := formOptions{
		alerter: AlerterFunc(func(Alert) {}),
		msgs:    MessagesFor(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o formOptions) fail(message string) {
	o.alerter.Alert(Alert{Level: AlertError, Title: o.msgs.ErrorTitle, Message: message})
}

func (o formOptions) succeed(message string) {
	o.alerter.Alert(Alert{Level: AlertSuccess, Title: o.msgs.SuccessTitle, Message: message})
}

func (o formOptions) busy() error {
	o.alerter.Alert(Alert{Level: AlertInfo, Message: o.msgs.SubmitInProgress})
	return ErrSubmitInProgress
}

// remoteMessage: текст сервера как есть, иначе локализованный fallback.
func (o formOptions) remoteMessage(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return o.msgs.RemoteFallback
}

func emptyContent() error {
	return &ValidationError{Field: "content", Err: errs.ErrEmptyContent}
}

// ResponderForm: форма официального ответа сотрудника. Одна отправка за раз.
type ResponderForm struct {
	remote   Remote
	kind     model.ThreadKind
	threadID uint64
	opts     formOptions

	mu         sync.Mutex
	draft      string
	keepOpen   bool
	submitting bool
}

// NewResponderForm возвращает errs.ErrForbidden, если s не может отвечать официально.
func NewResponderForm(remote Remote, s session.Session, kind model.ThreadKind, threadID uint64, opts ...FormOption) (*ResponderForm, error) {
	if !s.IsResponder() {
		return nil, errs.ErrForbidden
	}
	return &ResponderForm{
		remote:   remote,
		kind:     kind,
		threadID: threadID,
		opts:     newFormOptions(opts),
	}, nil
}

func (f *ResponderForm) SetDraft(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = text
}

func (f *ResponderForm) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *ResponderForm) SetKeepOpen(keep bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keepOpen = keep
}

func (f *ResponderForm) KeepOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.keepOpen
}

func (f *ResponderForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit отправляет черновик. При ошибке черновик и выбор keep-open
// сохраняются, чтобы тот же ответ можно было отправить повторно.
func (f *ResponderForm) Submit(ctx context.Context) (*Result, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, f.opts.busy()
	}
	content := strings.TrimSpace(f.draft)
	if content == "" {
		f.mu.Unlock()
		f.opts.fail(f.opts.msgs.EmptyContent)
		return nil, emptyContent()
	}
	keep := f.keepOpen
	f.submitting = true
	f.mu.Unlock()

	res, err := f.remote.ReplyToThread(ctx, ReplyRequest{
		Kind:                 f.kind,
		ThreadID:             f.threadID,
		Content:              content,
		IsOfficial:           true,
		KeepConversationOpen: keep,
	})

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.draft = ""
		f.keepOpen = false
	}
	f.mu.Unlock()

	if err != nil {
		f.opts.fail(f.opts.remoteMessage(err))
		return nil, err
	}
	open := keep
	if res.Thread != nil {
		open = res.Thread.IsConversationOpen
	}
	if open {
		f.opts.succeed(f.opts.msgs.ConversationOpen)
	} else {
		f.opts.succeed(f.opts.msgs.ConversationClosed)
	}
	if f.opts.onSuccess != nil {
		f.opts.onSuccess(res)
	}
	return res, nil
}

// OwnerView: что показывать владельцу под перепиской.
type OwnerView struct {
	Locked       bool
	Notice       string
	InputEnabled bool
}

// OwnerForm: форма ответа владельца. Пока переписка закрыта, ввода нет.
type OwnerForm struct {
	remote Remote
	opts   formOptions

	mu         sync.Mutex
	thread     model.Thread
	draft      string
	submitting bool
}

// NewOwnerForm возвращает errs.ErrForbidden, если s не владелец t.
func NewOwnerForm(remote Remote, s session.Session, t *model.Thread, opts ...FormOption) (*OwnerForm, error) {
	if t == nil || s.UserID == "" || t.OwnerUserID != s.UserID {
		return nil, errs.ErrForbidden
	}
	return &OwnerForm{
		remote: remote,
		opts:   newFormOptions(opts),
		thread: *t,
	}, nil
}

func (f *OwnerForm) SetDraft(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = text
}

func (f *OwnerForm) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// SetThread заменяет состояние обращения, например после перечитывания.
func (f *OwnerForm) SetThread(t *model.Thread) {
	if t == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.thread = *t
}

func (f *OwnerForm) Thread() model.Thread {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.thread
}

// Refresh перечитывает обращение и обновляет состояние шлюза.
func (f *OwnerForm) Refresh(ctx context.Context) (*model.ThreadDetail, error) {
	t := f.Thread()
	detail, err := f.remote.GetThreadDetail(ctx, t.Kind, t.ID)
	if err != nil {
		return nil, err
	}
	f.SetThread(&detail.Thread)
	return detail, nil
}

func (f *OwnerForm) View() OwnerView {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.thread.IsConversationOpen {
		return OwnerView{Locked: true, Notice: f.opts.msgs.ConversationLocked}
	}
	return OwnerView{InputEnabled: !f.submitting}
}

func (f *OwnerForm) Submit(ctx context.Context) (*Result, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, f.opts.busy()
	}
	if !f.thread.IsConversationOpen {
		f.mu.Unlock()
		f.opts.fail(f.opts.msgs.ConversationLocked)
		return nil, errs.ErrConversationClosed
	}
	content := strings.TrimSpace(f.draft)
	if content == "" {
		f.mu.Unlock()
		f.opts.fail(f.opts.msgs.EmptyContent)
		return nil, emptyContent()
	}
	req := OwnerReplyRequest{Kind: f.thread.Kind, ThreadID: f.thread.ID, Content: content}
	f.submitting = true
	f.mu.Unlock()

	res, err := f.remote.OwnerReplyToThread(ctx, req)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.draft = ""
		if res.Thread != nil {
			f.thread = *res.Thread
		}
	}
	f.mu.Unlock()

	if err != nil {
		f.opts.fail(f.opts.remoteMessage(err))
		return nil, err
	}
	f.opts.succeed(f.opts.msgs.ReplySent)
	if f.opts.onSuccess != nil {
		f.opts.onSuccess(res)
	}
	return res, nil
}
