package errs

import "errors"

// Ошибки домена. Хендлеры мапят их в HTTP-статусы через errors.Is.
var (
	ErrThreadNotFound     = errors.New("thread not found")
	ErrContentNotFound    = errors.New("content item not found")
	ErrEmptyContent       = errors.New("content is required")
	ErrConversationClosed = errors.New("conversation is closed")
	ErrThreadChanged      = errors.New("thread was changed concurrently, try again")
	ErrOwnerCannotSetGate = errors.New("owner replies cannot set keep_conversation_open")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidKind        = errors.New("invalid thread kind")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrInvalidContent     = errors.New("invalid content payload")
	ErrUnknownContentType = errors.New("unknown content type")
)
