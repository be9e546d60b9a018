package changefeed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilter_Match(t *testing.T) {
	insert := NewEvent(TableMessages, OpInsert, 1, "a", "b")
	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty matches all", Filter{}, true},
		{"conversation changes", ConversationChanges, true},
		{"other table", Filter{Tables: []Table{TableConversations}}, false},
		{"other op", Filter{Ops: []Op{OpDelete}}, false},
		{"table and op", Filter{Tables: []Table{TableMessages}, Ops: []Op{OpInsert}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.filter.Match(insert))
		})
	}
}

func TestNewEvent(t *testing.T) {
	req := require.New(t)
	a := NewEvent(TableConversations, OpDelete, 9, "buyer", "seller")
	b := NewEvent(TableConversations, OpDelete, 9, "buyer", "seller")
	req.NotEmpty(a.ID)
	req.NotEqual(a.ID, b.ID)
	req.EqualValues(9, a.ConversationID)
	req.Equal([]string{"buyer", "seller"}, a.Participants)
	req.False(a.At.IsZero())
}

func TestMemoryFeed_DeliversToParticipantsOnly(t *testing.T) {
	req := require.New(t)
	feed := NewMemoryFeed()

	var buyer, seller, outsider []Event
	_, err := feed.Subscribe("buyer", ConversationChanges, func(e Event) { buyer = append(buyer, e) })
	req.NoError(err)
	_, err = feed.Subscribe("seller", Filter{Ops: []Op{OpDelete}}, func(e Event) { seller = append(seller, e) })
	req.NoError(err)
	_, err = feed.Subscribe("outsider", Filter{}, func(e Event) { outsider = append(outsider, e) })
	req.NoError(err)

	ctx := context.Background()
	req.NoError(feed.Publish(ctx, NewEvent(TableMessages, OpInsert, 1, "buyer", "seller")))
	req.NoError(feed.Publish(ctx, NewEvent(TableConversations, OpDelete, 1, "buyer", "seller")))

	req.Len(buyer, 2)
	req.Len(seller, 1)
	req.Equal(OpDelete, seller[0].Op)
	req.Empty(outsider)
}

func TestMemoryFeed_Unsubscribe(t *testing.T) {
	req := require.New(t)
	feed := NewMemoryFeed()

	calls := 0
	sub, err := feed.Subscribe("buyer", Filter{}, func(Event) { calls++ })
	req.NoError(err)
	req.Equal(1, feed.Subscribers())

	req.NoError(sub.Unsubscribe())
	req.NoError(sub.Unsubscribe())
	req.Zero(feed.Subscribers())

	req.NoError(feed.Publish(context.Background(), NewEvent(TableMessages, OpInsert, 1, "buyer")))
	req.Zero(calls)
}

func TestMemoryFeed_RejectsEmptyScope(t *testing.T) {
	_, err := NewMemoryFeed().Subscribe("", Filter{}, func(Event) {})
	require.ErrorIs(t, err, ErrEmptyScope)
}
