// Package intent classifies inbound chat messages and decides whether the
// assistant answers them at all.
package intent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Intent is a closed set. Otra marks anything outside the store's scope.
type Intent string

const (
	Saludo             Intent = "saludo"
	ConsultaProducto   Intent = "consulta_producto"
	Compra             Intent = "compra"
	Soporte            Intent = "soporte"
	InformacionTienda  Intent = "informacion_tienda"
	ConsultaDocumentos Intent = "consulta_documentos"
	Otra               Intent = "otra"
)

// All lists every intent, Otra last.
var All = []Intent{Saludo, ConsultaProducto, Compra, Soporte, InformacionTienda, ConsultaDocumentos, Otra}

func (i Intent) Valid() bool {
	for _, v := range All {
		if v == i {
			return true
		}
	}
	return false
}

type Route int

const (
	RouteRefuse Route = iota
	RouteCatalog
	RouteKnowledge
	RoutePurchase
)

func (r Route) String() string {
	switch r {
	case RouteCatalog:
		return "catalog"
	case RouteKnowledge:
		return "knowledge"
	case RoutePurchase:
		return "purchase"
	default:
		return "refuse"
	}
}

// Route maps an intent to the component that answers it.
func (i Intent) Route() Route {
	switch i {
	case Saludo, ConsultaProducto, InformacionTienda:
		return RouteCatalog
	case Soporte, ConsultaDocumentos:
		return RouteKnowledge
	case Compra:
		return RoutePurchase
	default:
		return RouteRefuse
	}
}

// Result is a classification. Confidence is reported in metadata only; routing
// depends on the intent alone.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

type Classifier interface {
	Classify(ctx context.Context, message string) (Result, error)
}

const refusalSubjectMaxRunes = 80

// Refusal is the canned answer for off-topic messages. It states what the
// assistant covers and echoes the subject back.
func Refusal(message string) string {
	subject := strings.Join(strings.Fields(message), " ")
	if utf8.RuneCountInString(subject) > refusalSubjectMaxRunes {
		subject = string([]rune(subject)[:refusalSubjectMaxRunes]) + "…"
	}
	return fmt.Sprintf(
		"Lo siento, solo puedo ayudarte con temas de nuestra tienda: productos, precios, compras, envíos, soporte y políticas. "+
			"No puedo ayudarte con \"%s\". ¿Hay algo de la tienda en lo que te pueda ayudar?", subject)
}
