package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shinyyama/estate-backend/internal/changefeed"
	"github.com/shinyyama/estate-backend/internal/model"
)

// ChangeHandler receives the list re-derived after a change, or the error that prevented it.
type ChangeHandler func(list *model.ConversationList, err error)

// RealtimeBridge holds one change-feed subscription for one signed-in user. Any matching event
// triggers a full invalidate-and-refetch of that user's list; events that arrive while a refetch
// runs collapse into a single follow-up refetch.
type RealtimeBridge struct {
	feed   changefeed.Feed
	store  *ConversationStore
	logger *slog.Logger

	mu   sync.Mutex
	uid  string
	sub  changefeed.Subscription
	stop chan struct{}
}

func NewRealtimeBridge(feed changefeed.Feed, store *ConversationStore, logger *slog.Logger) *RealtimeBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &RealtimeBridge{feed: feed, store: store, logger: logger}
}

// Attach subscribes for uid. Attaching a different uid releases the previous subscription first;
// attaching the same uid again is a no-op.
func (b *RealtimeBridge) Attach(uid string, onChange ChangeHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil && b.uid == uid {
		return nil
	}
	if err := b.detachLocked(); err != nil {
		b.logger.Warn("releasing previous subscription failed", "uid", b.uid, "error", err)
	}

	wake := make(chan struct{}, 1)
	sub, err := b.feed.Subscribe(uid, changefeed.ConversationChanges, func(changefeed.Event) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	stop := make(chan struct{})
	go b.run(uid, wake, stop, onChange)

	b.uid, b.sub, b.stop = uid, sub, stop
	b.logger.Debug("realtime subscription attached", "uid", uid)
	return nil
}

func (b *RealtimeBridge) run(uid string, wake <-chan struct{}, stop <-chan struct{}, onChange ChangeHandler) {
	ctx := context.Background()
	for {
		select {
		case <-stop:
			return
		case <-wake:
		}
		select {
		case <-stop:
			return
		default:
		}
		b.store.Invalidate(ctx, uid)
		list, err := b.store.Refresh(ctx, uid)
		if err != nil {
			b.logger.Warn("realtime refetch failed", "uid", uid, "error", err)
		}
		if onChange != nil {
			onChange(list, err)
		}
	}
}

// Detach unsubscribes. A refetch already running may still report once afterwards.
func (b *RealtimeBridge) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.detachLocked()
}

func (b *RealtimeBridge) detachLocked() error {
	if b.sub == nil {
		return nil
	}
	err := b.sub.Unsubscribe()
	close(b.stop)
	b.logger.Debug("realtime subscription released", "uid", b.uid)
	b.uid, b.sub, b.stop = "", nil, nil
	return err
}

// UserID returns the uid currently attached, or "".
func (b *RealtimeBridge) UserID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uid
}
