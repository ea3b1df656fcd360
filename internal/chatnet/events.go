package chatnet

import (
	"context"

	"go.uber.org/zap"
)

type EventType string

const (
	EventChatCreated         EventType = "CHAT_CREATED"
	EventMemberCreated       EventType = "MEMBER_CREATED"
	EventMemberStatusChanged EventType = "MEMBER_STATUS_CHANGED"
	EventMessageSent         EventType = "MESSAGE_SENT"
	EventMessageDeleted      EventType = "MESSAGE_DELETED"
)

// Event is published after the transaction that produced it commits
type Event struct {
	Type    EventType    `json:"type"`
	Chat    Ref          `json:"chat"`
	Subject Ref          `json:"subject"`
	Status  MemberStatus `json:"status,omitempty"`
	Actor   string       `json:"actor"`
}

type Emitter interface {
	Emit(ctx context.Context, e Event)
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, Event) {}

// LogEmitter writes every event to a zap logger
type LogEmitter struct {
	Logger *zap.SugaredLogger
}

func (l LogEmitter) Emit(_ context.Context, e Event) {
	l.Logger.Infow("event",
		"type", e.Type,
		"chat", e.Chat.String(),
		"subject", e.Subject.String(),
		"status", e.Status,
		"actor", e.Actor,
	)
}

// MultiEmitter fans an event out to each emitter in order
type MultiEmitter []Emitter

func (m MultiEmitter) Emit(ctx context.Context, e Event) {
	for _, em := range m {
		em.Emit(ctx, e)
	}
}
