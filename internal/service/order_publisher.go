package service

import (
	"context"

	"github.com/ruuig/tienda-online-sub002/pkg/cart"
	"github.com/ruuig/tienda-online-sub002/pkg/events"
)

// orderPublisher hands confirmed checkouts to the order service over the bus.
type orderPublisher struct {
	events events.Publisher
}

func NewOrderPublisher(publisher events.Publisher) cart.OrderPlacer {
	return &orderPublisher{events: publisher}
}

func (p *orderPublisher) PlaceOrder(ctx context.Context, order cart.Order) error {
	return p.events.Publish(ctx, events.NewOrderRequested(
		order.ConversationID,
		order.VendorID.String(),
		order.UserID,
		order.Items,
		order.Total,
	))
}
