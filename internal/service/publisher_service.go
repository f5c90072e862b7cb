package service

import (
	"context"
	"encoding/json"

	"github.com/ruuig/tienda-online-sub002/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	PublishIndexDocument(ctx context.Context, payload dto.IndexDocumentMessage) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) PublishIndexDocument(ctx context.Context, payload dto.IndexDocumentMessage) error {
	payloadJson, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payloadJson)
	msg.SetContext(ctx)
	return ps.publisher.Publish(ps.topicName, msg)
}
