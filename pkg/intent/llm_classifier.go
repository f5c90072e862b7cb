package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/pkg/llm"

	"github.com/xeipuuv/gojsonschema"
)

const classifierPrompt = `Clasifica el mensaje de un cliente de una tienda en línea.
Intenciones posibles:
- saludo: saludos sin otra petición
- consulta_producto: preguntas sobre productos, precios, disponibilidad
- compra: quiere comprar o agregar algo al carrito
- soporte: problemas con un pedido o producto
- informacion_tienda: horarios, ubicación, envíos, formas de pago
- consulta_documentos: políticas, garantías, devoluciones, manuales
- otra: cualquier tema ajeno a la tienda

Responde SOLO con JSON: {"intent": "<intención>", "confidence": <número entre 0 y 1>}

Mensaje: %s`

var resultSchema = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"intent", "confidence"},
	"properties": map[string]interface{}{
		"intent": map[string]interface{}{
			"type": "string",
			"enum": intentEnum(),
		},
		"confidence": map[string]interface{}{
			"type":    "number",
			"minimum": 0,
			"maximum": 1,
		},
	},
}

func intentEnum() []interface{} {
	out := make([]interface{}, len(All))
	for i, v := range All {
		out[i] = string(v)
	}
	return out
}

// LLMClassifier asks the generation provider for a JSON classification and
// validates it against a schema. Any failure falls back to keywords, so
// classification never blocks a message.
type LLMClassifier struct {
	provider llm.LLMProvider
	logger   logger.ILogger
}

func NewLLMClassifier(provider llm.LLMProvider, log logger.ILogger) *LLMClassifier {
	return &LLMClassifier{provider: provider, logger: log}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string) (Result, error) {
	raw, err := c.provider.Generate(ctx, fmt.Sprintf(classifierPrompt, message), llm.WithTemperature(0), llm.WithMaxTokens(60))
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.logger.Warn("INTENT", "LLM classification failed, using keywords", map[string]interface{}{
			"error": err.Error(),
		})
		return ClassifyKeywords(message), nil
	}

	result, err := parseResult(raw)
	if err != nil {
		c.logger.Warn("INTENT", "Invalid LLM classification, using keywords", map[string]interface{}{
			"error": err.Error(),
			"raw":   raw,
		})
		return ClassifyKeywords(message), nil
	}
	return result, nil
}

func parseResult(raw string) (Result, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Result{}, fmt.Errorf("no JSON object in response")
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err != nil {
		return Result{}, fmt.Errorf("decode classification: %w", err)
	}

	validation, err := gojsonschema.Validate(gojsonschema.NewGoLoader(resultSchema), gojsonschema.NewGoLoader(data))
	if err != nil {
		return Result{}, fmt.Errorf("validation error: %w", err)
	}
	if !validation.Valid() {
		errs := make([]string, len(validation.Errors()))
		for i, desc := range validation.Errors() {
			errs[i] = desc.String()
		}
		return Result{}, fmt.Errorf("classification failed schema: %v", errs)
	}

	return Result{
		Intent:     Intent(data["intent"].(string)),
		Confidence: data["confidence"].(float64),
	}, nil
}
