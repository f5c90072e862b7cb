package intent

import (
	"context"
	"math"
	"strings"

	"github.com/ruuig/tienda-online-sub002/pkg/utils"
)

// Keywords are normalized (lowercase, no accents). Single words also match
// their plural.
var keywords = map[Intent][]string{
	Saludo: {
		"hola", "buenos dias", "buenas tardes", "buenas noches", "buenas", "que tal", "saludos", "hey", "hello", "hi",
	},
	Compra: {
		"comprar", "compro", "quiero comprar", "me lo llevo", "agregar al carrito", "anadir al carrito", "carrito",
		"pedido", "ordenar", "quiero pedir", "checkout", "pagar",
	},
	ConsultaProducto: {
		"producto", "precio", "cuanto cuesta", "cuesta", "cuestan", "tienen", "tienes", "disponible", "stock",
		"modelo", "marca", "oferta", "descuento", "catalogo", "venden", "busco", "recomienda", "recomiendas",
		"laptop", "computadora", "celular", "telefono", "tablet", "audifono", "monitor", "teclado", "mouse",
		"camara", "consola", "reloj", "impresora", "bocina", "televisor", "accesorio",
	},
	Soporte: {
		"ayuda", "problema", "no funciona", "falla", "reclamo", "queja", "reembolso", "cancelar pedido",
		"no llego", "danado", "roto", "soporte",
	},
	InformacionTienda: {
		"horario", "direccion", "ubicacion", "donde estan", "sucursal", "envio", "metodos de pago",
		"formas de pago", "contacto", "whatsapp", "correo", "tienda", "abren", "cierran",
	},
	ConsultaDocumentos: {
		"politica", "terminos", "condiciones", "manual", "garantia", "devolucion", "devoluciones",
		"documento", "guia", "instrucciones", "preguntas frecuentes", "faq", "privacidad",
	},
}

// priority breaks ties: a purchase beats a question about the same product,
// and a greeting only wins when nothing else matched.
var priority = []Intent{Compra, Soporte, ConsultaDocumentos, ConsultaProducto, InformacionTienda, Saludo}

// KeywordClassifier is deterministic and needs no provider.
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (c *KeywordClassifier) Classify(ctx context.Context, message string) (Result, error) {
	return ClassifyKeywords(message), nil
}

func ClassifyKeywords(message string) Result {
	text := utils.NormalizeText(message)
	if text == "" {
		return Result{Intent: Otra, Confidence: 1}
	}
	words := strings.Fields(text)

	hits := make(map[Intent]int)
	total := 0
	for intent, kws := range keywords {
		for _, kw := range kws {
			if matchKeyword(text, words, kw) {
				hits[intent]++
				total++
			}
		}
	}

	if total == 0 {
		return Result{Intent: Otra, Confidence: 0.6}
	}

	best := Otra
	for _, intent := range priority {
		if hits[intent] > 0 && (best == Otra || hits[intent] > hits[best]) {
			best = intent
		}
	}

	// Share of matched keywords, lifted by absolute evidence.
	share := float64(hits[best]) / float64(total)
	confidence := math.Min(0.95, 0.4+0.35*share+0.1*float64(hits[best]))
	return Result{Intent: best, Confidence: math.Round(confidence*100) / 100}
}

func matchKeyword(text string, words []string, kw string) bool {
	if strings.Contains(kw, " ") {
		return utils.ContainsPhrase(text, kw)
	}
	for _, w := range words {
		if utils.SameWord(w, kw) {
			return true
		}
	}
	return false
}
