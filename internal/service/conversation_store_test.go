package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend unavailable")

// flakyConversations counts FindByUser calls and can block or fail them on demand.
type flakyConversations struct {
	repository.ConversationRepository
	calls    atomic.Int32
	failures atomic.Int32
	gate     chan struct{}
}

func (f *flakyConversations) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return nil, errBackend
	}
	return f.ConversationRepository.FindByUser(ctx, uid)
}

func newFlakyEnv(t *testing.T) (*testEnv, *flakyConversations) {
	t.Helper()
	env := newTestEnv(t)
	flaky := &flakyConversations{ConversationRepository: env.deps.Conversations}
	deps := env.deps
	deps.Conversations = flaky
	env.msg = NewMessaging(deps)
	env.msg.Pipeline.now = steppingClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	return env, flaky
}

func TestConversationStore_OrdersByLastMessage(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	env.seedProfiles(t)

	older := env.openConversation(t, 1001, sellerUID, "first")
	newer := env.openConversation(t, 0, proUID, "need a survey")
	env.send(t, sellerUID, older.ID, "bump")

	list := env.fetch(t, buyerUID)
	req.Len(list.Active, 2)
	req.Equal(older.ID, list.Active[0].ID)
	req.Equal(newer.ID, list.Active[1].ID)

	pro := findDetails(list.Active, newer.ID)
	req.Equal(model.SenderTypeProfessional, pro.SenderType)
	req.Equal("Carol Surveys", pro.OtherParticipant.Name)
	req.Equal(model.SenderTypeBuyer, findDetails(list.Active, older.ID).SenderType)
}

func TestConversationStore_ServesCacheUntilInvalidated(t *testing.T) {
	req := require.New(t)
	env, flaky := newFlakyEnv(t)
	ctx := context.Background()

	env.openConversation(t, 1001, sellerUID, "hello")
	store := env.msg.Store

	store.Invalidate(ctx, sellerUID)
	base := flaky.calls.Load()
	_, err := store.Fetch(ctx, sellerUID)
	req.NoError(err)
	_, err = store.Fetch(ctx, sellerUID)
	req.NoError(err)
	req.Equal(base+1, flaky.calls.Load())

	store.Invalidate(ctx, sellerUID)
	_, err = store.Fetch(ctx, sellerUID)
	req.NoError(err)
	req.Equal(base+2, flaky.calls.Load())

	_, err = store.Refresh(ctx, sellerUID)
	req.NoError(err)
	req.Equal(base+3, flaky.calls.Load())
}

func TestConversationStore_DeduplicatesConcurrentLoads(t *testing.T) {
	req := require.New(t)
	env, flaky := newFlakyEnv(t)
	env.openConversation(t, 1001, sellerUID, "hello")

	store := env.msg.Store
	store.Invalidate(context.Background(), sellerUID)
	flaky.gate = make(chan struct{})
	base := flaky.calls.Load()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*model.ConversationList, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			list, err := store.Fetch(context.Background(), sellerUID)
			if err == nil {
				results[i] = list
			}
		}(i)
	}
	req.Eventually(func() bool { return flaky.calls.Load() == base+1 }, time.Second, 5*time.Millisecond)
	// let the remaining callers join the in-flight load
	time.Sleep(50 * time.Millisecond)
	close(flaky.gate)
	wg.Wait()

	req.Equal(base+1, flaky.calls.Load())
	for _, list := range results {
		req.NotNil(list)
		req.Equal(1, list.TotalUnread)
	}
}

func TestConversationStore_RetriesOnce(t *testing.T) {
	req := require.New(t)
	env, flaky := newFlakyEnv(t)
	env.openConversation(t, 1001, sellerUID, "hello")

	store := env.msg.Store
	store.Invalidate(context.Background(), sellerUID)
	flaky.failures.Store(1)

	list, err := store.Fetch(context.Background(), sellerUID)
	req.NoError(err)
	req.Len(list.Active, 1)
}

func TestConversationStore_FailureKeepsLastGood(t *testing.T) {
	req := require.New(t)
	env, flaky := newFlakyEnv(t)
	ctx := context.Background()
	env.openConversation(t, 1001, sellerUID, "hello")

	store := env.msg.Store
	good, err := store.Fetch(ctx, sellerUID)
	req.NoError(err)

	store.Invalidate(ctx, sellerUID)
	flaky.failures.Store(2)
	base := flaky.calls.Load()

	list, err := store.Fetch(ctx, sellerUID)
	req.Nil(list)
	var fetchErr *FetchError
	req.ErrorAs(err, &fetchErr)
	req.Equal(sellerUID, fetchErr.UserID)
	req.ErrorIs(err, errBackend)
	req.Equal(base+2, flaky.calls.Load(), "exactly one retry")

	req.Same(good, store.LastGood(sellerUID))

	// nothing partial was cached: the next read loads again and succeeds
	list, err = store.Fetch(ctx, sellerUID)
	req.NoError(err)
	req.Equal(1, list.TotalUnread)
}

func TestConversationStore_StaleLoadIsNotCached(t *testing.T) {
	req := require.New(t)
	env, flaky := newFlakyEnv(t)
	ctx := context.Background()
	cv := env.openConversation(t, 1001, sellerUID, "hello")

	store := env.msg.Store
	store.Invalidate(ctx, sellerUID)
	flaky.gate = make(chan struct{})
	base := flaky.calls.Load()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = store.Fetch(ctx, sellerUID)
	}()
	req.Eventually(func() bool { return flaky.calls.Load() == base+1 }, time.Second, 5*time.Millisecond)
	store.Invalidate(ctx, sellerUID)
	close(flaky.gate)
	<-done

	_, ok, err := store.cache.Get(ctx, sellerUID)
	req.NoError(err)
	req.False(ok, "load that predates the invalidation must not be cached")
	req.Nil(store.LastGood(sellerUID))

	flaky.gate = nil
	env.send(t, buyerUID, cv.ID, "second")
	list, err := store.Fetch(ctx, sellerUID)
	req.NoError(err)
	req.Equal(2, list.TotalUnread)
}

func TestConversationStore_RejectsEmptyUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.msg.Store.Fetch(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidInput)
}
