package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/entity"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "assistant:conversation:"

// ConversationRepository stores conversations as JSON with a sliding TTL, so
// several API instances share conversation state.
type ConversationRepository struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

func NewConversationRepository(rdb *redis.Client, ttl time.Duration) *ConversationRepository {
	return &ConversationRepository{rdb: rdb, ttl: ttl, lockTTL: DefaultLockTTL}
}

func key(vendorID uuid.UUID, conversationID string) string {
	return keyPrefix + vendorID.String() + ":" + conversationID
}

func (r *ConversationRepository) Get(ctx context.Context, vendorID uuid.UUID, conversationID string) (*entity.Conversation, error) {
	raw, err := r.rdb.Get(ctx, key(vendorID, conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	var conversation entity.Conversation
	if err := json.Unmarshal(raw, &conversation); err != nil {
		return nil, fmt.Errorf("decode conversation: %w", err)
	}
	return &conversation, nil
}

func (r *ConversationRepository) Save(ctx context.Context, conversation *entity.Conversation) error {
	conversation.UpdatedAt = time.Now()
	raw, err := json.Marshal(conversation)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if err := r.rdb.Set(ctx, key(conversation.VendorId, conversation.Id), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, vendorID uuid.UUID, conversationID string) error {
	return r.rdb.Del(ctx, key(vendorID, conversationID)).Err()
}
