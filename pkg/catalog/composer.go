package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"

	"github.com/google/uuid"
)

const (
	DefaultHistoryWindow = 10

	// OnlyListedInstruction keeps catalog answers to the injected products.
	OnlyListedInstruction = "Only mention the products listed below; do not invent or reference any other product."
	onlyListedSpanish     = "Solo menciona los productos listados abajo; no inventes ni hagas referencia a ningún otro producto."
)

type ComposeRequest struct {
	Message  string
	VendorID uuid.UUID
	History  []llm.Message
	// Products, when non-nil, is used as-is and the catalog is not queried.
	Products []*entity.Product
}

type ComposeResult struct {
	Reply         string
	Products      []*entity.Product
	ProductsCount int
}

type Composer struct {
	searcher      *Searcher
	llm           llm.LLMProvider
	limit         int
	historyWindow int
	logger        logger.ILogger
}

func NewComposer(searcher *Searcher, provider llm.LLMProvider, limit, historyWindow int, log logger.ILogger) *Composer {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if historyWindow < 0 {
		historyWindow = DefaultHistoryWindow
	}
	return &Composer{
		searcher:      searcher,
		llm:           provider,
		limit:         limit,
		historyWindow: historyWindow,
		logger:        log,
	}
}

func (c *Composer) Compose(ctx context.Context, req ComposeRequest) (*ComposeResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperror.Validation("message is required", "")
	}

	products := req.Products
	if products == nil {
		found, err := c.searcher.SearchProductsForMessage(ctx, message, req.VendorID, c.limit)
		if err != nil {
			return nil, err
		}
		products = found
	}

	messages := make([]llm.Message, 0, c.historyWindow+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: BuildSystemPrompt(products)})
	messages = append(messages, window(req.History, c.historyWindow)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	reply, err := c.llm.Chat(ctx, messages, llm.WithTemperature(0.3))
	if err != nil {
		c.logger.Error("CATALOG", "Product answer generation failed", map[string]interface{}{
			"vendor_id": req.VendorID.String(),
			"products":  len(products),
			"error":     err.Error(),
		})
		return nil, err
	}

	return &ComposeResult{
		Reply:         strings.TrimSpace(reply),
		Products:      products,
		ProductsCount: len(products),
	}, nil
}

// BuildSystemPrompt lists products verbatim under the strict instruction.
func BuildSystemPrompt(products []*entity.Product) string {
	var sb strings.Builder

	sb.WriteString("Eres el asistente de ventas de una tienda en línea. Ayudas a los clientes a encontrar productos del catálogo.\n\n")
	sb.WriteString("Reglas:\n")
	sb.WriteString("- " + onlyListedSpanish + "\n")
	sb.WriteString("- " + OnlyListedInstruction + "\n")
	sb.WriteString("- Usa exactamente los nombres y precios tal como aparecen.\n")
	sb.WriteString("- Si ningún producto responde a la pregunta, dilo y ofrece ayuda para buscar otra cosa.\n")
	sb.WriteString("- Responde en español, de forma breve y amable.\n\n")

	if len(products) == 0 {
		sb.WriteString("Productos disponibles: ninguno coincide con la consulta.\n")
		return sb.String()
	}

	sb.WriteString("Productos disponibles:\n")
	for i, p := range products {
		fmt.Fprintf(&sb, "%d. %s | Categoría: %s | Precio: $%.2f | Stock: %d\n", i+1, p.Name, p.Category, p.Price, p.Stock)
		if d := strings.TrimSpace(p.Description); d != "" {
			fmt.Fprintf(&sb, "   %s\n", d)
		}
	}
	return sb.String()
}

// window keeps the last n user and assistant turns.
func window(history []llm.Message, n int) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			out = append(out, m)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}
