package cart

import (
	"context"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/metrics"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/repository/contract"
	"github.com/ruuig/tienda-online-sub002/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultCatalogTTL = 10 * time.Minute

// Order is what a confirmed checkout hands to order creation.
type Order struct {
	ConversationID string            `json:"conversationId"`
	VendorID       uuid.UUID         `json:"vendorId"`
	UserID         string            `json:"userId,omitempty"`
	Items          []entity.CartItem `json:"items"`
	Total          float64           `json:"total"`
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order Order) error
}

type StepResult struct {
	Reply    string
	Phase    entity.CartPhase
	Items    []entity.CartItem
	Total    float64
	Effects  []Effect
	Rejected bool
}

type Engine struct {
	conversations contract.ConversationRepository
	products      contract.ProductRepository
	orders        OrderPlacer
	catalogs      *cache.Cache
	locks         *KeyedMutex
	logger        logger.ILogger
}

func NewEngine(conversations contract.ConversationRepository, products contract.ProductRepository, orders OrderPlacer, catalogTTL time.Duration, log logger.ILogger) *Engine {
	if catalogTTL <= 0 {
		catalogTTL = DefaultCatalogTTL
	}
	return &Engine{
		conversations: conversations,
		products:      products,
		orders:        orders,
		catalogs:      cache.New(catalogTTL, 2*catalogTTL),
		locks:         NewKeyedMutex(),
		logger:        log,
	}
}

// Initialize replaces the vendor's searchable product snapshot. Inactive
// products are left out.
func (e *Engine) Initialize(vendorID uuid.UUID, products []*entity.Product) {
	snapshot := make([]entity.CartProduct, 0, len(products))
	for _, p := range products {
		if p.Status != entity.ProductStatusActive {
			continue
		}
		snapshot = append(snapshot, entity.NewCartProduct(p))
	}
	e.catalogs.Set(vendorID.String(), snapshot, cache.DefaultExpiration)

	e.logger.Debug("CART", "Catalog snapshot initialized", map[string]interface{}{
		"vendor_id": vendorID.String(),
		"products":  len(snapshot),
	})
}

func (e *Engine) catalog(ctx context.Context, vendorID uuid.UUID) ([]entity.CartProduct, error) {
	if x, ok := e.catalogs.Get(vendorID.String()); ok {
		return x.([]entity.CartProduct), nil
	}

	products, err := e.products.FindAll(ctx,
		specification.ByVendorID{VendorID: vendorID},
		specification.ProductByStatus{Status: entity.ProductStatusActive},
	)
	if err != nil {
		return nil, err
	}
	e.Initialize(vendorID, products)

	x, _ := e.catalogs.Get(vendorID.String())
	snapshot, _ := x.([]entity.CartProduct)
	return snapshot, nil
}

// Open locks the conversation and loads it, creating it when absent. The
// caller must Close the session. Sessions of different conversations run
// in parallel. Stores shared between processes also lock across them.
func (e *Engine) Open(ctx context.Context, vendorID uuid.UUID, conversationID, userID string) (*Session, error) {
	unlock := e.locks.Lock(vendorID.String() + ":" + conversationID)

	if locker, ok := e.conversations.(contract.ConversationLocker); ok {
		release, err := locker.Lock(ctx, vendorID, conversationID)
		if err != nil {
			unlock()
			return nil, err
		}
		local := unlock
		unlock = func() {
			release()
			local()
		}
	}

	conv, err := e.conversations.Get(ctx, vendorID, conversationID)
	if err != nil {
		unlock()
		return nil, err
	}
	if conv == nil {
		conv = entity.NewConversation(vendorID, conversationID, userID)
	}
	if conv.UserId == "" {
		conv.UserId = userID
	}

	return &Session{engine: e, conv: conv, unlock: unlock}, nil
}

type Session struct {
	engine *Engine
	conv   *entity.Conversation
	unlock func()
	closed bool
}

func (s *Session) Conversation() *entity.Conversation {
	return s.conv
}

// Active reports a purchase flow in progress.
func (s *Session) Active() bool {
	return s.conv.Cart.Active()
}

// Step feeds one utterance to the purchase flow. From idle it starts a new
// search with the utterance.
func (s *Session) Step(ctx context.Context, utterance string) (*StepResult, error) {
	e := s.engine
	vendorID := s.conv.VendorId

	products, err := e.catalog(ctx, vendorID)
	if err != nil {
		e.logger.Error("CART", "Failed to load catalog snapshot", map[string]interface{}{
			"vendor_id": vendorID.String(),
			"error":     err.Error(),
		})
		return nil, err
	}

	from := s.conv.Cart.Phase
	if from == "" {
		from = entity.CartPhaseIdle
	}

	out := Transition(s.conv.Cart, Input{
		Utterance: utterance,
		Lookup: func(message string) []entity.CartProduct {
			return FindProductInMessage(message, products)
		},
	})

	if out.Conflict != nil {
		e.logger.Debug("CART", "Input rejected, re-prompting", map[string]interface{}{
			"conversation_id": s.conv.Id,
			"phase":           string(from),
			"error":           out.Conflict.Error(),
		})
	}

	for _, effect := range out.Effects {
		if effect.Kind != EffectPlaceOrder {
			continue
		}
		order := Order{
			ConversationID: s.conv.Id,
			VendorID:       vendorID,
			UserID:         s.conv.UserId,
			Items:          effect.Items,
			Total:          effect.Total,
		}
		if err := e.orders.PlaceOrder(ctx, order); err != nil {
			e.logger.Error("CART", "Failed to place order", map[string]interface{}{
				"conversation_id": s.conv.Id,
				"vendor_id":       vendorID.String(),
				"error":           err.Error(),
			})
			return &StepResult{
				Reply:    "No pude registrar tu pedido en este momento. Intenta confirmar de nuevo en unos minutos.",
				Phase:    s.conv.Cart.Phase,
				Items:    s.conv.Cart.Items,
				Total:    s.conv.Cart.Total(),
				Rejected: true,
			}, nil
		}
		e.logger.Info("CART", "Order placed", map[string]interface{}{
			"conversation_id": s.conv.Id,
			"vendor_id":       vendorID.String(),
			"items":           len(order.Items),
			"total":           order.Total,
		})
	}

	metrics.CartTransitions.WithLabelValues(string(from), string(out.Next.Phase)).Inc()

	result := &StepResult{
		Reply:    out.Reply,
		Phase:    out.Next.Phase,
		Items:    out.Next.Items,
		Total:    out.Next.Total(),
		Effects:  out.Effects,
		Rejected: out.Conflict != nil,
	}

	s.conv.Cart = out.Next
	if out.Next.Phase == entity.CartPhaseConfirmed {
		s.conv.Cart = entity.CartState{Phase: entity.CartPhaseIdle}
	}
	return result, nil
}

// Close stores the conversation and releases its lock.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	defer s.unlock()
	return s.engine.conversations.Save(context.WithoutCancel(ctx), s.conv)
}

// Invalidate drops the vendor's product snapshot; the next step reloads it.
func (e *Engine) Invalidate(vendorID uuid.UUID) {
	e.catalogs.Delete(vendorID.String())
}
