// Package gate описывает шлюз переписки обращения: может ли владелец ещё
// отвечать и в какой статус ответ переводит обращение.
//
// Пакет без побочных эффектов. Вызывающий загружает State, вызывает Apply и
// сохраняет результат сам.
package gate

import (
	"fmt"
	"strings"

	"github.com/psds-microservice/consultation-service/internal/errs"
	"github.com/psds-microservice/consultation-service/internal/model"
)

type State struct {
	Status model.ThreadStatus
	Open   bool
}

// Initial: состояние нового обращения, ждёт первого ответа сотрудника.
func Initial() State {
	return State{Status: model.ThreadStatusPending, Open: true}
}

// Of читает состояние шлюза из обращения.
func Of(t *model.Thread) State {
	return State{Status: t.Status, Open: t.IsConversationOpen}
}

// Label: "open" или "closed".
func (s State) Label() string {
	if s.Open {
		return "open"
	}
	return "closed"
}

// Transition форматирует смену шлюза для метрик и логов, например "open->closed".
func Transition(from, to State) string {
	return from.Label() + "->" + to.Label()
}

// Apply возвращает состояние после добавления r к обращению в состоянии s.
//
// Ответ сотрудника из любого состояния ставит шлюз в KeepConversationOpen
// (false, если не задан); только так закрытое обращение открывается снова.
// Ответ владельца при закрытом шлюзе отклоняется, шлюз не трогает и
// возвращает обращение в pending.
func Apply(s State, r model.Reply) (State, error) {
	if strings.TrimSpace(r.Content) == "" {
		return s, errs.ErrEmptyContent
	}
	switch r.AuthorRole {
	case model.AuthorRoleResponder:
		if r.KeepConversationOpen != nil && *r.KeepConversationOpen {
			return State{Status: model.ThreadStatusAnswered, Open: true}, nil
		}
		return State{Status: model.ThreadStatusClosed, Open: false}, nil
	case model.AuthorRoleOwner:
		if r.KeepConversationOpen != nil {
			return s, errs.ErrOwnerCannotSetGate
		}
		if !s.Open {
			return s, errs.ErrConversationClosed
		}
		return State{Status: model.ThreadStatusPending, Open: true}, nil
	default:
		return s, fmt.Errorf("gate: unknown author role %q", r.AuthorRole)
	}
}

// Assign помечает ожидающее обращение как взятое сотрудником. Остальные открытые статусы не меняются.
func Assign(s State) (State, error) {
	if !s.Open {
		return s, errs.ErrConversationClosed
	}
	if s.Status == model.ThreadStatusPending {
		s.Status = model.ThreadStatusAssigned
	}
	return s, nil
}
