package service

import (
	"context"
	"strings"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/metrics"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/pkg/cart"
	"github.com/ruuig/tienda-online-sub002/pkg/catalog"
	"github.com/ruuig/tienda-online-sub002/pkg/intent"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"
	"github.com/ruuig/tienda-online-sub002/pkg/rag"

	"github.com/google/uuid"
)

type IAssistantService interface {
	ProcessMessage(ctx context.Context, request *dto.ProcessMessageRequest) (*dto.ProcessMessageResponse, error)
}

// Answerer answers knowledge-base questions.
type Answerer interface {
	Answer(ctx context.Context, req rag.Request) (*rag.Answer, error)
}

type assistantService struct {
	engine        *cart.Engine
	classifier    intent.Classifier
	composer      *catalog.Composer
	answerer      Answerer
	historyWindow int
	logger        logger.ILogger
}

func NewAssistantService(
	engine *cart.Engine,
	classifier intent.Classifier,
	composer *catalog.Composer,
	answerer Answerer,
	historyWindow int,
	log logger.ILogger,
) IAssistantService {
	if historyWindow <= 0 {
		historyWindow = catalog.DefaultHistoryWindow
	}
	return &assistantService{
		engine:        engine,
		classifier:    classifier,
		composer:      composer,
		answerer:      answerer,
		historyWindow: historyWindow,
		logger:        log,
	}
}

// ProcessMessage answers one customer message. A purchase flow in progress
// takes the message before intent classification; otherwise the intent
// decides between refusal, catalog, knowledge base and purchase.
func (s *assistantService) ProcessMessage(ctx context.Context, request *dto.ProcessMessageRequest) (*dto.ProcessMessageResponse, error) {
	text := strings.TrimSpace(request.Text)
	if text == "" {
		return nil, apperror.Validation("text is required", "")
	}
	if request.VendorId == uuid.Nil {
		return nil, apperror.Validation("vendor is required", "")
	}

	sess, err := s.engine.Open(ctx, request.VendorId, request.ConversationId, request.UserId)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sess.Close(ctx); err != nil {
			s.logger.Error("ASSISTANT", "Failed to save conversation", map[string]interface{}{
				"conversation_id": request.ConversationId,
				"error":           err.Error(),
			})
		}
	}()

	var reply *dto.AssistantMessage
	if sess.Active() {
		reply, err = s.purchase(ctx, sess, text, nil)
	} else {
		reply, err = s.route(ctx, sess, request, text)
	}
	if err != nil {
		return nil, err
	}

	sess.Conversation().AppendHistory(2*s.historyWindow,
		entity.ConversationMessage{Role: llm.RoleUser, Content: text},
		entity.ConversationMessage{Role: llm.RoleAssistant, Content: reply.Content},
	)

	return &dto.ProcessMessageResponse{Success: true, Message: *reply}, nil
}

func (s *assistantService) route(ctx context.Context, sess *cart.Session, request *dto.ProcessMessageRequest, text string) (*dto.AssistantMessage, error) {
	classification, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return nil, err
	}
	metrics.IntentDecisions.WithLabelValues(string(classification.Intent)).Inc()

	route := classification.Intent.Route()
	s.logger.Debug("ASSISTANT", "Intent classified", map[string]interface{}{
		"conversation_id": request.ConversationId,
		"intent":          string(classification.Intent),
		"confidence":      classification.Confidence,
		"route":           route.String(),
	})

	metadata := map[string]interface{}{
		"intent":     string(classification.Intent),
		"confidence": classification.Confidence,
		"route":      route.String(),
		"refusal":    false,
	}

	switch route {
	case intent.RouteRefuse:
		metrics.Refusals.Inc()
		metadata["refusal"] = true
		return &dto.AssistantMessage{Content: intent.Refusal(text), Metadata: metadata}, nil

	case intent.RoutePurchase:
		return s.purchase(ctx, sess, text, metadata)

	case intent.RouteKnowledge:
		answer, err := s.answerer.Answer(ctx, rag.Request{Question: text, VendorID: request.VendorId})
		if err != nil {
			return s.fallback(err, metadata)
		}
		metadata["sources"] = answer.Sources
		metadata["fallback"] = answer.Fallback
		return &dto.AssistantMessage{Content: answer.Text, Metadata: metadata}, nil

	default:
		result, err := s.composer.Compose(ctx, catalog.ComposeRequest{
			Message:  text,
			VendorID: request.VendorId,
			History:  toLLMHistory(sess.Conversation().History),
			Products: toProducts(request.Products, request.VendorId),
		})
		if err != nil {
			return s.fallback(err, metadata)
		}
		metadata["products"] = toProductDTOs(result.Products)
		metadata["productsCount"] = result.ProductsCount
		return &dto.AssistantMessage{Content: result.Reply, Metadata: metadata}, nil
	}
}

func (s *assistantService) purchase(ctx context.Context, sess *cart.Session, text string, metadata map[string]interface{}) (*dto.AssistantMessage, error) {
	if metadata == nil {
		metadata = map[string]interface{}{"route": intent.RoutePurchase.String(), "refusal": false}
	}

	result, err := sess.Step(ctx, text)
	if err != nil {
		return nil, err
	}

	metadata["cart"] = map[string]interface{}{
		"phase": string(result.Phase),
		"items": result.Items,
		"total": result.Total,
	}
	return &dto.AssistantMessage{Content: result.Reply, Metadata: metadata}, nil
}

// fallback turns provider failures that survived the retry into a user-safe
// reply. Other errors propagate.
func (s *assistantService) fallback(err error, metadata map[string]interface{}) (*dto.AssistantMessage, error) {
	if !apperror.IsKind(err, apperror.KindProvider) {
		return nil, err
	}
	s.logger.Error("ASSISTANT", "Provider failed, answering with fallback", map[string]interface{}{
		"route": metadata["route"],
		"error": err.Error(),
	})
	metadata["fallback"] = true
	return &dto.AssistantMessage{Content: rag.FallbackMessage, Metadata: metadata}, nil
}

func toLLMHistory(history []entity.ConversationMessage) []llm.Message {
	out := make([]llm.Message, len(history))
	for i, m := range history {
		out[i] = llm.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// toProducts keeps nil distinct from empty: nil means "search the catalog".
func toProducts(products []dto.ProductDTO, vendorID uuid.UUID) []*entity.Product {
	if products == nil {
		return nil
	}
	out := make([]*entity.Product, len(products))
	for i, p := range products {
		out[i] = &entity.Product{
			Id:          p.Id,
			VendorId:    vendorID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Price:       p.Price,
			Stock:       p.Stock,
			Status:      entity.ProductStatusActive,
		}
	}
	return out
}

func toProductDTOs(products []*entity.Product) []dto.ProductDTO {
	out := make([]dto.ProductDTO, len(products))
	for i, p := range products {
		out[i] = dto.ProductDTO{
			Id:          p.Id,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			Price:       p.Price,
			Stock:       p.Stock,
		}
	}
	return out
}
