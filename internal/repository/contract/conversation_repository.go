package contract

import (
	"context"

	"github.com/ruuig/tienda-online-sub002/internal/entity"

	"github.com/google/uuid"
)

// ConversationRepository stores assistant conversations keyed by
// (vendor, conversation id). Entries expire after a period of inactivity.
type ConversationRepository interface {
	// Get returns nil, nil when the conversation does not exist or expired.
	Get(ctx context.Context, vendorID uuid.UUID, conversationID string) (*entity.Conversation, error)
	Save(ctx context.Context, conversation *entity.Conversation) error
	Delete(ctx context.Context, vendorID uuid.UUID, conversationID string) error
}

// ConversationLocker is implemented by stores shared between processes. Lock
// blocks until no other process holds the conversation or ctx ends.
type ConversationLocker interface {
	Lock(ctx context.Context, vendorID uuid.UUID, conversationID string) (unlock func(), err error)
}
