package model

import (
	"strings"
	"time"
)

// ThreadKind: вопрос в поддержку или ветеринарная консультация.
type ThreadKind string

const (
	ThreadKindInquiry      ThreadKind = "inquiry"
	ThreadKindConsultation ThreadKind = "consultation"
)

// ThreadKinds: все поддерживаемые типы в порядке регистрации маршрутов.
var ThreadKinds = []ThreadKind{ThreadKindInquiry, ThreadKindConsultation}

// ParseThreadKind принимает и единственное число, и множественное из URL ("inquiries").
func ParseThreadKind(s string) (ThreadKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inquiry", "inquiries":
		return ThreadKindInquiry, true
	case "consultation", "consultations":
		return ThreadKindConsultation, true
	}
	return "", false
}

// Plural: сегмент коллекции в маршрутах /api/v1.
func (k ThreadKind) Plural() string {
	if k == ThreadKindInquiry {
		return "inquiries"
	}
	return string(k) + "s"
}

type ThreadStatus string

const (
	ThreadStatusPending  ThreadStatus = "pending"
	ThreadStatusAssigned ThreadStatus = "assigned"
	ThreadStatusAnswered ThreadStatus = "answered"
	ThreadStatusClosed   ThreadStatus = "closed"
)

func (s ThreadStatus) Valid() bool {
	switch s {
	case ThreadStatusPending, ThreadStatusAssigned, ThreadStatusAnswered, ThreadStatusClosed:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// AuthorRole показывает, кто написал ответ: сотрудник (responder) или владелец обращения.
type AuthorRole string

const (
	AuthorRoleResponder AuthorRole = "responder"
	AuthorRoleOwner     AuthorRole = "owner"
)

type Thread struct {
	ID                 uint64       `gorm:"primaryKey" json:"id"`
	Kind               ThreadKind   `gorm:"type:varchar(32);index;not null" json:"kind"`
	OwnerUserID        string       `gorm:"index;not null" json:"owner_user_id"`
	ResponderID        string       `gorm:"index" json:"responder_id,omitempty"`
	Subject            string       `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body               string       `gorm:"type:text;not null" json:"body"`
	Category           string       `gorm:"type:varchar(64)" json:"category,omitempty"`
	PetName            string       `gorm:"type:varchar(128)" json:"pet_name,omitempty"`
	Status             ThreadStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	Priority           Priority     `gorm:"type:varchar(32);index;not null" json:"priority"`
	IsConversationOpen bool         `gorm:"not null" json:"is_conversation_open"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func (Thread) TableName() string {
	return "threads"
}

// Reply после сохранения не меняется. KeepConversationOpen есть только у ответов сотрудника.
type Reply struct {
	ID                   uint64     `gorm:"primaryKey" json:"id"`
	ThreadID             uint64     `gorm:"index;not null" json:"thread_id"`
	AuthorID             string     `gorm:"index;not null" json:"author_id"`
	AuthorRole           AuthorRole `gorm:"type:varchar(32);not null" json:"author_role"`
	Content              string     `gorm:"type:text;not null" json:"content"`
	IsOfficial           bool       `gorm:"not null" json:"is_official"`
	KeepConversationOpen *bool      `json:"keep_conversation_open,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

func (Reply) TableName() string {
	return "replies"
}

// ThreadDetail: ответ getThreadDetail, ответы в порядке создания.
type ThreadDetail struct {
	Thread  Thread  `json:"thread"`
	Replies []Reply `json:"replies"`
}
