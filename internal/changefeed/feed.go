// Package changefeed delivers coarse "records changed" notifications for the messaging tables.
// Events carry no row payload; subscribers are expected to re-read whatever they derive.
package changefeed

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Table string

const (
	TableMessages      Table = "messages"
	TableConversations Table = "conversations"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

type Event struct {
	ID             string    `json:"id"`
	Table          Table     `json:"table"`
	Op             Op        `json:"op"`
	ConversationID uint64    `json:"conversationId,omitempty"`
	Participants   []string  `json:"participants"`
	At             time.Time `json:"at"`
}

func NewEvent(table Table, op Op, convID uint64, participants ...string) Event {
	return Event{
		ID:             uuid.NewString(),
		Table:          table,
		Op:             op,
		ConversationID: convID,
		Participants:   participants,
		At:             time.Now().UTC(),
	}
}

// Filter selects events by table and operation. Empty fields match everything.
type Filter struct {
	Tables []Table
	Ops    []Op
}

// ConversationChanges matches every insert, update and delete on messages and conversations.
var ConversationChanges = Filter{
	Tables: []Table{TableMessages, TableConversations},
	Ops:    []Op{OpInsert, OpUpdate, OpDelete},
}

func (f Filter) Match(e Event) bool {
	if len(f.Tables) > 0 && !slices.Contains(f.Tables, e.Table) {
		return false
	}
	if len(f.Ops) > 0 && !slices.Contains(f.Ops, e.Op) {
		return false
	}
	return true
}

type Subscription interface {
	Unsubscribe() error
}

// Feed publishes change events and fans them out to subscribers. The scope of a subscription is a
// user uid: an event reaches a scope only if that uid is one of the event's participants.
type Feed interface {
	Publish(ctx context.Context, e Event) error
	Subscribe(scope string, filter Filter, onEvent func(Event)) (Subscription, error)
}
