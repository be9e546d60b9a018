package service

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shinyyama/estate-backend/internal/changefeed"
	"github.com/shinyyama/estate-backend/internal/db"
	"github.com/shinyyama/estate-backend/internal/model"
	"github.com/shinyyama/estate-backend/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	buyerUID  = "buyer-a"
	sellerUID = "seller-b"
	proUID    = "pro-c"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), db.GormConfig())
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// one connection keeps the in-memory database alive and serializes access
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

type testEnv struct {
	db   *gorm.DB
	feed *changefeed.MemoryFeed
	msg  *Messaging
	deps Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := newTestDB(t)
	feed := changefeed.NewMemoryFeed()
	deps := Deps{
		Conversations: repository.NewConversationRepository(gdb),
		Messages:      repository.NewMessageRepository(gdb),
		Profiles:      repository.NewProfileRepository(gdb),
		Notifications: repository.NewNotificationRepository(gdb),
		CacheTTL:      time.Minute,
		Feed:          feed,
	}
	env := &testEnv{db: gdb, feed: feed, deps: deps, msg: NewMessaging(deps)}
	env.msg.Pipeline.now = steppingClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	return env
}

// steppingClock returns a clock that advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Second)
		return cur
	}
}

func (e *testEnv) seedProfiles(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	profiles := repository.NewProfileRepository(e.db)
	name := "Bob Seller"
	require.NoError(t, profiles.UpsertProfile(ctx, &model.Profile{UID: buyerUID, Email: "alice.buyer@example.com"}))
	require.NoError(t, profiles.UpsertProfile(ctx, &model.Profile{UID: sellerUID, DisplayName: &name, Email: "bob@example.com"}))
	require.NoError(t, profiles.UpsertProfile(ctx, &model.Profile{UID: proUID, Email: "carol@example.com"}))
	require.NoError(t, profiles.UpsertProfessional(ctx, &model.Professional{
		UID: proUID, BusinessName: "Carol Surveys", ServiceType: "surveyor", IsVerified: true,
	}))
}

// openConversation has buyer contact seller about propertyID and returns the conversation.
func (e *testEnv) openConversation(t *testing.T, propertyID uint64, seller, content string) *model.Conversation {
	t.Helper()
	cv, _, err := e.msg.Inbox(buyerUID).CreateConversationAndSendMessage(context.Background(),
		propertyID, seller, content, "Flat", model.MessageTypeBuyerToSeller)
	require.NoError(t, err)
	return cv
}

func (e *testEnv) send(t *testing.T, from string, convID uint64, content string) *model.Message {
	t.Helper()
	msg, err := e.msg.Inbox(from).SendMessage(context.Background(), convID, content, model.MessageTypeBuyerToSeller)
	require.NoError(t, err)
	return msg
}

func (e *testEnv) fetch(t *testing.T, uid string) *model.ConversationList {
	t.Helper()
	list, err := e.msg.Inbox(uid).FetchConversations(context.Background())
	require.NoError(t, err)
	return list
}

func findDetails(list []model.ConversationWithDetails, id uint64) *model.ConversationWithDetails {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

func uintString(v uint64) string {
	return strconv.FormatUint(v, 10)
}
