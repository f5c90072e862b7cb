package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/pkg/events"
	pktNats "github.com/ruuig/tienda-online-sub002/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// CatalogInvalidator drops cached product snapshots.
type CatalogInvalidator interface {
	Invalidate(vendorID uuid.UUID)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	rag        IRagService
	jobs       IPublisherService
	catalogs   CatalogInvalidator
	events     *pktNats.Subscriber
	logger     logger.ILogger
}

// NewConsumerService consumes indexing jobs from the in-process queue and,
// when eventSubscriber is not nil, store events from NATS.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	rag IRagService,
	jobs IPublisherService,
	catalogs CatalogInvalidator,
	eventSubscriber *pktNats.Subscriber,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		rag:        rag,
		jobs:       jobs,
		catalogs:   catalogs,
		events:     eventSubscriber,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	if cs.events != nil {
		if err := cs.events.Subscribe(ctx, events.TypeCatalogUpdated, "assistant-catalog", cs.handleCatalogUpdated); err != nil {
			return err
		}
		if err := cs.events.Subscribe(ctx, events.TypeDocumentChanged, "assistant-documents", cs.handleDocumentChanged); err != nil {
			return err
		}
	}

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IndexDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal indexing job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // invalid payloads would fail forever
		return
	}

	details := map[string]interface{}{
		"vendor_id":   payload.VendorId.String(),
		"document_id": payload.DocumentId.String(),
	}

	res, err := cs.rag.IndexDocument(ctx, payload.VendorId, payload.DocumentId)
	if err != nil {
		details["error"] = err.Error()
		if apperror.IsKind(err, apperror.KindNotFound) {
			cs.logger.Warn("CONSUMER", "Document no longer exists, dropping job", details)
			msg.Ack()
			return
		}
		cs.logger.Error("CONSUMER", "Indexing job failed", details)
		msg.Nack()
		return
	}

	details["indexed"] = len(res.Indexed)
	details["failed"] = len(res.Failed)
	details["chunks"] = res.Stats.IndexedChunks
	cs.logger.Info("CONSUMER", "Indexing job done", details)
	msg.Ack()
}

func (cs *consumerService) handleCatalogUpdated(ctx context.Context, event events.Event) error {
	vendorId, err := payloadUUID(event, "vendorId")
	if err != nil {
		cs.dropEvent(event, err)
		return nil
	}
	cs.catalogs.Invalidate(vendorId)
	return nil
}

func (cs *consumerService) handleDocumentChanged(ctx context.Context, event events.Event) error {
	vendorId, err := payloadUUID(event, "vendorId")
	if err != nil {
		cs.dropEvent(event, err)
		return nil
	}
	documentId, err := payloadUUID(event, "documentId")
	if err != nil {
		cs.dropEvent(event, err)
		return nil
	}
	return cs.jobs.PublishIndexDocument(ctx, dto.IndexDocumentMessage{VendorId: vendorId, DocumentId: documentId})
}

func (cs *consumerService) dropEvent(event events.Event, err error) {
	cs.logger.Warn("CONSUMER", "Dropping malformed event", map[string]interface{}{
		"type":  event.EventType(),
		"error": err.Error(),
	})
}

func payloadUUID(event events.Event, field string) (uuid.UUID, error) {
	raw, _ := event.Payload()[field].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("event %s: invalid %s %q: %w", event.EventType(), field, raw, err)
	}
	return id, nil
}
