package memory

import (
	"context"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/entity"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type ConversationRepository struct {
	cache *cache.Cache
}

// NewConversationRepository keeps conversations for ttl after their last
// save. Expired entries are purged every reapInterval.
func NewConversationRepository(ttl, reapInterval time.Duration) *ConversationRepository {
	return &ConversationRepository{
		cache: cache.New(ttl, reapInterval),
	}
}

func key(vendorID uuid.UUID, conversationID string) string {
	return vendorID.String() + ":" + conversationID
}

func (r *ConversationRepository) Get(ctx context.Context, vendorID uuid.UUID, conversationID string) (*entity.Conversation, error) {
	if x, found := r.cache.Get(key(vendorID, conversationID)); found {
		return x.(*entity.Conversation).Clone(), nil
	}
	return nil, nil
}

func (r *ConversationRepository) Save(ctx context.Context, conversation *entity.Conversation) error {
	conversation.UpdatedAt = time.Now()
	r.cache.Set(key(conversation.VendorId, conversation.Id), conversation.Clone(), cache.DefaultExpiration)
	return nil
}

func (r *ConversationRepository) Delete(ctx context.Context, vendorID uuid.UUID, conversationID string) error {
	r.cache.Delete(key(vendorID, conversationID))
	return nil
}

// Count reports live conversations, expired ones included until reaped.
func (r *ConversationRepository) Count() int {
	return r.cache.ItemCount()
}
