package service

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shinyyama/estate-backend/internal/cache"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
	"golang.org/x/sync/singleflight"
)

// ConversationStore derives and caches each user's conversation list.
//
// Every Invalidate bumps the user's generation. Loads are deduplicated per (uid, generation), so
// callers arriving after an invalidation never join a load that may predate the change, and a load
// whose generation went stale does not write its result back.
type ConversationStore struct {
	convs    repository.ConversationRepository
	messages repository.MessageRepository
	resolver *ParticipantResolver
	tracker  *UnreadTracker
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
	now      func() time.Time

	group    singleflight.Group
	mu       sync.Mutex
	gens     map[string]uint64
	lastGood map[string]*model.ConversationList
}

func NewConversationStore(
	convs repository.ConversationRepository,
	messages repository.MessageRepository,
	resolver *ParticipantResolver,
	tracker *UnreadTracker,
	c cache.Cache,
	ttl time.Duration,
	logger *slog.Logger,
) *ConversationStore {
	if c == nil {
		c = cache.NewMemory()
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationStore{
		convs:    convs,
		messages: messages,
		resolver: resolver,
		tracker:  tracker,
		cache:    c,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		gens:     make(map[string]uint64),
		lastGood: make(map[string]*model.ConversationList),
	}
}

// Fetch returns the cached list when fresh, otherwise loads it.
func (s *ConversationStore) Fetch(ctx context.Context, uid string) (*model.ConversationList, error) {
	if uid == "" {
		return nil, &FetchError{Err: ErrInvalidInput}
	}
	list, ok, err := s.cache.Get(ctx, uid)
	if err != nil {
		s.logger.Warn("conversation cache read failed", "uid", uid, "error", err)
	} else if ok {
		return list, nil
	}
	return s.load(ctx, uid)
}

// Refresh bypasses the cache and loads the list again.
func (s *ConversationStore) Refresh(ctx context.Context, uid string) (*model.ConversationList, error) {
	if uid == "" {
		return nil, &FetchError{Err: ErrInvalidInput}
	}
	return s.load(ctx, uid)
}

// Invalidate drops the cached list so the next read hits the database.
func (s *ConversationStore) Invalidate(ctx context.Context, uid string) {
	if uid == "" {
		return
	}
	s.mu.Lock()
	s.gens[uid]++
	s.mu.Unlock()
	if err := s.cache.Delete(ctx, uid); err != nil {
		s.logger.Warn("conversation cache delete failed", "uid", uid, "error", err)
	}
}

// LastGood returns the most recent successfully derived list, even if expired.
func (s *ConversationStore) LastGood(uid string) *model.ConversationList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastGood[uid]
}

func (s *ConversationStore) generation(uid string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[uid]
}

func (s *ConversationStore) load(ctx context.Context, uid string) (*model.ConversationList, error) {
	gen := s.generation(uid)
	key := uid + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := s.group.Do(key, func() (any, error) {
		// shared by every waiter; one caller going away must not fail the others
		lctx := context.WithoutCancel(ctx)
		list, err := s.build(lctx, uid)
		if err != nil {
			s.logger.Warn("conversation list load failed, retrying", "uid", uid, "error", err)
			list, err = s.build(lctx, uid)
		}
		if err != nil {
			s.logger.Error("conversation list load failed", "uid", uid, "error", err)
			return nil, err
		}
		s.commit(lctx, uid, gen, list)
		return list, nil
	})
	if err != nil {
		return nil, &FetchError{UserID: uid, Err: err}
	}
	return v.(*model.ConversationList), nil
}

func (s *ConversationStore) commit(ctx context.Context, uid string, gen uint64, list *model.ConversationList) {
	s.mu.Lock()
	current := s.gens[uid] == gen
	if current {
		s.lastGood[uid] = list
	}
	s.mu.Unlock()
	if !current {
		return
	}
	if err := s.cache.Set(ctx, uid, list, s.ttl); err != nil {
		s.logger.Warn("conversation cache write failed", "uid", uid, "error", err)
		return
	}
	// an invalidation may have landed while writing
	if s.generation(uid) != gen {
		_ = s.cache.Delete(ctx, uid)
	}
}

func (s *ConversationStore) build(ctx context.Context, uid string) (*model.ConversationList, error) {
	convs, err := s.convs.FindByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	ids := lo.Map(convs, func(c model.Conversation, _ int) uint64 { return c.ID })
	others := lo.Map(convs, func(c model.Conversation, _ int) string { return c.OtherParticipant(uid) })

	participants, err := s.resolver.Resolve(ctx, others)
	if err != nil {
		return nil, err
	}
	latest, err := s.messages.LatestByConversations(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.tracker.Counts(ctx, ids, uid)
	if err != nil {
		return nil, err
	}

	list := &model.ConversationList{
		UserID:    uid,
		Active:    make([]model.ConversationWithDetails, 0, len(convs)),
		Archived:  make([]model.ConversationWithDetails, 0),
		FetchedAt: s.now().UTC(),
	}
	for _, cv := range convs {
		other := participants[cv.OtherParticipant(uid)]
		d := model.ConversationWithDetails{
			Conversation:     cv,
			UnreadCount:      counts[cv.ID],
			OtherParticipant: other,
			SenderType:       SenderTypeFor(other),
		}
		if m, ok := latest[cv.ID]; ok {
			d.LastMessage = &m
			d.IsArchived = m.IsArchived
		}
		if d.IsArchived {
			list.Archived = append(list.Archived, d)
		} else {
			list.Active = append(list.Active, d)
		}
	}
	list.TotalUnread = TotalUnread(list.Active)
	return list, nil
}
