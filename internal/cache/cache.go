// Package cache stores derived conversation lists per user with a short time-to-live.
package cache

import (
	"context"
	"time"

	"github.com/shinyyama/estate-backend/internal/model"
)

const DefaultTTL = 30 * time.Second

type Cache interface {
	// Get reports a miss with ok == false; an expired entry is a miss.
	Get(ctx context.Context, uid string) (list *model.ConversationList, ok bool, err error)
	Set(ctx context.Context, uid string, list *model.ConversationList, ttl time.Duration) error
	Delete(ctx context.Context, uid string) error
}
