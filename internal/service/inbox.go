package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shinyyama/estate-backend/internal/cache"
	"github.com/shinyyama/estate-backend/internal/changefeed"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
)

type Deps struct {
	Conversations repository.ConversationRepository
	Messages      repository.MessageRepository
	Profiles      repository.ProfileRepository
	Notifications repository.NotificationRepository
	Cache         cache.Cache
	CacheTTL      time.Duration
	Feed          changefeed.Feed
	Logger        *slog.Logger
}

// Messaging wires the resolver, tracker, store and pipeline together and hands out per-user inboxes.
type Messaging struct {
	Resolver *ParticipantResolver
	Tracker  *UnreadTracker
	Store    *ConversationStore
	Pipeline *MutationPipeline

	convs    repository.ConversationRepository
	messages repository.MessageRepository
	feed     changefeed.Feed
	logger   *slog.Logger
}

func NewMessaging(d Deps) *Messaging {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	feed := d.Feed
	if feed == nil {
		feed = changefeed.NewMemoryFeed()
	}
	resolver := NewParticipantResolver(d.Profiles)
	tracker := NewUnreadTracker(d.Conversations, d.Messages, d.Notifications, logger)
	store := NewConversationStore(d.Conversations, d.Messages, resolver, tracker, d.Cache, d.CacheTTL, logger)
	pipeline := NewMutationPipeline(d.Conversations, d.Messages, logger)

	notifier := &changeNotifier{store: store, feed: feed, logger: logger}
	tracker.notifier = notifier
	pipeline.notifier = notifier

	return &Messaging{
		Resolver: resolver,
		Tracker:  tracker,
		Store:    store,
		Pipeline: pipeline,
		convs:    d.Conversations,
		messages: d.Messages,
		feed:     feed,
		logger:   logger,
	}
}

// Inbox returns a façade for uid without a realtime subscription.
func (m *Messaging) Inbox(uid string) *Inbox {
	return &Inbox{m: m, uid: uid}
}

// OpenSession returns an inbox kept in sync through the change feed until Close is called.
// onChange may be nil.
func (m *Messaging) OpenSession(uid string, onChange ChangeHandler) (*Inbox, error) {
	if uid == "" {
		return nil, ErrInvalidInput
	}
	in := m.Inbox(uid)
	in.bridge = NewRealtimeBridge(m.feed, m.Store, m.logger)
	err := in.bridge.Attach(uid, func(list *model.ConversationList, err error) {
		in.apply(list, err)
		if onChange != nil {
			onChange(list, err)
		}
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}

// Messages lists a conversation's messages oldest first, for participants only.
func (m *Messaging) Messages(ctx context.Context, uid string, convID uint64) ([]model.Message, error) {
	if _, err := loadForParticipant(ctx, m.convs, convID, uid); err != nil {
		return nil, err
	}
	return m.messages.ListByConversation(ctx, convID)
}

// Participant resolves a single uid's display identity. It returns ErrNotFound when no name
// can be derived.
func (m *Messaging) Participant(ctx context.Context, uid string) (*model.Participant, error) {
	res, err := m.Resolver.Resolve(ctx, []string{uid})
	if err != nil {
		return nil, err
	}
	p := res[uid]
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// Inbox is the per-user surface used by handlers: derived state plus every mutation.
// Reads of derived state return the last successful fetch; Err reports the last fetch failure.
type Inbox struct {
	m      *Messaging
	uid    string
	bridge *RealtimeBridge

	mu   sync.RWMutex
	list *model.ConversationList
	err  error
}

func (i *Inbox) CurrentUserID() string { return i.uid }

func (i *Inbox) Conversations() []model.ConversationWithDetails {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.list == nil {
		return nil
	}
	return i.list.Active
}

func (i *Inbox) ArchivedConversations() []model.ConversationWithDetails {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.list == nil {
		return nil
	}
	return i.list.Archived
}

func (i *Inbox) TotalUnread() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.list == nil {
		return 0
	}
	return i.list.TotalUnread
}

func (i *Inbox) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

func (i *Inbox) apply(list *model.ConversationList, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err != nil {
		i.err = err
		return
	}
	i.list, i.err = list, nil
}

func (i *Inbox) FetchConversations(ctx context.Context) (*model.ConversationList, error) {
	list, err := i.m.Store.Fetch(ctx, i.uid)
	i.apply(list, err)
	return list, err
}

// refetch follows a successful mutation; its failure is recorded but does not fail the mutation.
func (i *Inbox) refetch(ctx context.Context) {
	list, err := i.m.Store.Fetch(ctx, i.uid)
	i.apply(list, err)
}

func (i *Inbox) SendMessage(ctx context.Context, convID uint64, content string, typ model.MessageType) (*model.Message, error) {
	msg, err := i.m.Pipeline.SendMessage(ctx, i.uid, convID, content, typ)
	if err != nil {
		return msg, err
	}
	i.refetch(ctx)
	return msg, nil
}

func (i *Inbox) CreateConversationAndSendMessage(ctx context.Context, propertyID uint64, sellerUID, content, propertyTitle string, typ model.MessageType) (*model.Conversation, *model.Message, error) {
	cv, msg, err := i.m.Pipeline.CreateConversationAndSendMessage(ctx, i.uid, propertyID, sellerUID, content, propertyTitle, typ)
	if err != nil {
		return cv, msg, err
	}
	i.refetch(ctx)
	return cv, msg, nil
}

func (i *Inbox) MarkAsRead(ctx context.Context, convID uint64) error {
	if err := i.m.Tracker.MarkAsRead(ctx, convID, i.uid); err != nil {
		return err
	}
	i.refetch(ctx)
	return nil
}

func (i *Inbox) MarkAsUnread(ctx context.Context, convID uint64) error {
	if err := i.m.Tracker.MarkAsUnread(ctx, convID, i.uid); err != nil {
		return err
	}
	i.refetch(ctx)
	return nil
}

func (i *Inbox) ArchiveConversation(ctx context.Context, convID uint64) error {
	if err := i.m.Pipeline.ArchiveConversation(ctx, i.uid, convID); err != nil {
		return err
	}
	i.refetch(ctx)
	return nil
}

func (i *Inbox) UnarchiveConversation(ctx context.Context, convID uint64) error {
	if err := i.m.Pipeline.UnarchiveConversation(ctx, i.uid, convID); err != nil {
		return err
	}
	i.refetch(ctx)
	return nil
}

func (i *Inbox) DeleteConversation(ctx context.Context, convID uint64) error {
	if err := i.m.Pipeline.DeleteConversation(ctx, i.uid, convID); err != nil {
		return err
	}
	i.refetch(ctx)
	return nil
}

func (i *Inbox) DeleteMessages(ctx context.Context, ids []uint64) error {
	if err := i.m.Pipeline.DeleteMessages(ctx, i.uid, ids); err != nil {
		return err
	}
	i.refetch(ctx)
	return nil
}

// Close releases the realtime subscription, if any.
func (i *Inbox) Close() error {
	if i.bridge == nil {
		return nil
	}
	return i.bridge.Detach()
}
