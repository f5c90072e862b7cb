package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockPrefix = "assistant:lock:conversation:"

	// DefaultLockTTL bounds how long a crashed holder can block a conversation.
	DefaultLockTTL   = 30 * time.Second
	lockPollInterval = 25 * time.Millisecond
)

// releaseLock deletes the lock only while it still carries the holder's token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func lockKey(vendorID uuid.UUID, conversationID string) string {
	return lockPrefix + vendorID.String() + ":" + conversationID
}

// Lock takes the conversation's lock with SET NX PX, polling until it is free.
func (r *ConversationRepository) Lock(ctx context.Context, vendorID uuid.UUID, conversationID string) (func(), error) {
	k := lockKey(vendorID, conversationID)
	token := uuid.NewString()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("lock conversation: %w", err)
		}
		if ok {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseLock.Run(releaseCtx, r.rdb, []string{k}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock conversation: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
