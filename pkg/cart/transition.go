package cart

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/apperror"
	"github.com/ruuig/tienda-online-sub002/pkg/utils"

	"github.com/google/uuid"
)

// MaxCandidates bounds the options offered in one selection prompt.
const MaxCandidates = 5

// Lookup finds catalog products mentioned in an utterance.
type Lookup func(message string) []entity.CartProduct

type Input struct {
	Utterance string
	Lookup    Lookup
}

type EffectKind string

const (
	EffectAddItem    EffectKind = "add_item"
	EffectPlaceOrder EffectKind = "place_order"
)

// Effect is a side effect the caller runs after storing the next state.
type Effect struct {
	Kind  EffectKind
	Item  entity.CartItem
	Items []entity.CartItem
	Total float64
}

type Outcome struct {
	Next    entity.CartState
	Reply   string
	Effects []Effect
	// Conflict is set when the utterance was not valid for the phase. The
	// state is unchanged and Reply re-prompts.
	Conflict error
}

var (
	cancelWords   = []string{"cancelar", "cancela", "cancelo", "olvidalo", "ya no quiero", "ya no", "salir", "detener"}
	confirmWords  = []string{"si", "confirmo", "confirmar", "confirma", "dale", "ok", "de acuerdo", "claro", "adelante", "yes"}
	declineWords  = []string{"no", "mejor no", "nop"}
	checkoutWords = []string{"finalizar", "finalizar compra", "pagar", "checkout", "proceder", "terminar", "es todo", "confirmar", "listo"}
	continueWords = []string{"seguir", "sigo", "continuar", "seguir comprando", "otro producto", "otra cosa", "agregar mas", "algo mas", "mas productos"}

	numberPattern = regexp.MustCompile(`-?\d+`)
	// 1.5, 2,5 and 1/2 are not whole quantities.
	fractionPattern = regexp.MustCompile(`\d\s*[.,/]\s*\d`)
	fractionWords   = []string{"medio", "media", "mitad", "cuarto", "tercio"}

	numberWords = map[string]int{
		"un": 1, "una": 1, "uno": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5,
		"seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10, "docena": 12,
	}
	ordinalWords = map[string]int{
		"primero": 1, "primera": 1, "primer": 1, "segundo": 2, "segunda": 2,
		"tercero": 3, "tercera": 3, "tercer": 3, "cuarto": 4, "cuarta": 4,
		"quinto": 5, "quinta": 5,
	}
)

// Transition computes the next cart state for one utterance. It has no side
// effects: item additions are applied to Next and also reported as effects,
// order placement is only reported.
func Transition(state entity.CartState, in Input) Outcome {
	switch state.Phase {
	case "":
		state.Phase = entity.CartPhaseIdle
	case entity.CartPhaseConfirmed:
		state = entity.CartState{Phase: entity.CartPhaseIdle}
	}

	text := utils.NormalizeText(in.Utterance)

	switch state.Phase {
	case entity.CartPhaseCheckout:
		return checkout(state, text)
	case entity.CartPhaseIdle:
		return search(state, in)
	}

	if hasAny(text, cancelWords) {
		next := entity.CartState{Phase: entity.CartPhaseIdle, Items: state.Items}
		return Outcome{Next: next, Reply: "Listo, cancelé la compra en curso." + keptCartNote(next)}
	}

	switch state.Phase {
	case entity.CartPhaseSearching:
		return search(state, in)
	case entity.CartPhaseAwaitingSelection:
		return selectCandidate(state, in)
	case entity.CartPhaseAwaitingQuantity:
		return setQuantity(state, in.Utterance)
	case entity.CartPhaseReviewingCart:
		return review(state, text)
	}
	return Outcome{Next: state, Conflict: apperror.StateConflict(string(state.Phase), in.Utterance)}
}

func search(state entity.CartState, in Input) Outcome {
	var found []entity.CartProduct
	if in.Lookup != nil {
		found = in.Lookup(in.Utterance)
	}

	next := entity.CartState{Items: state.Items}
	switch len(found) {
	case 0:
		next.Phase = entity.CartPhaseSearching
		return Outcome{Next: next, Reply: "No encontré ese producto en nuestro catálogo. ¿Qué producto te gustaría comprar?"}
	case 1:
		selected := found[0]
		next.Phase = entity.CartPhaseAwaitingQuantity
		next.Selected = &selected
		return Outcome{Next: next, Reply: fmt.Sprintf("Encontré %s a %s. ¿Cuántas unidades quieres?", selected.Name, money(selected.Price))}
	default:
		if len(found) > MaxCandidates {
			found = found[:MaxCandidates]
		}
		next.Phase = entity.CartPhaseAwaitingSelection
		next.Candidates = append([]entity.CartProduct(nil), found...)
		return Outcome{Next: next, Reply: "Encontré varias opciones:\n" + listCandidates(found) + "¿Cuál te interesa? Responde con el número."}
	}
}

func selectCandidate(state entity.CartState, in Input) Outcome {
	picked, ok := parseSelection(in.Utterance, state.Candidates)
	if !ok {
		return Outcome{
			Next:     state,
			Reply:    "No identifiqué la opción. Elige un número de la lista:\n" + listCandidates(state.Candidates),
			Conflict: apperror.StateConflict(string(state.Phase), in.Utterance),
		}
	}

	next := entity.CartState{Phase: entity.CartPhaseAwaitingQuantity, Selected: &picked, Items: state.Items}
	return Outcome{Next: next, Reply: fmt.Sprintf("Elegiste %s a %s. ¿Cuántas unidades quieres?", picked.Name, money(picked.Price))}
}

func setQuantity(state entity.CartState, utterance string) Outcome {
	selected := state.Selected
	if selected == nil {
		next := entity.CartState{Phase: entity.CartPhaseSearching, Items: state.Items}
		return Outcome{Next: next, Reply: "¿Qué producto te gustaría comprar?", Conflict: apperror.StateConflict(string(state.Phase), utterance)}
	}

	quantity, ok := parseQuantity(utterance)
	if !ok {
		return Outcome{
			Next:     state,
			Reply:    fmt.Sprintf("Indica una cantidad válida de %s (un número mayor a cero).", selected.Name),
			Conflict: apperror.StateConflict(string(state.Phase), utterance),
		}
	}
	if quantity+quantityInCart(state.Items, selected.Id) > selected.Stock {
		return Outcome{
			Next:     state,
			Reply:    fmt.Sprintf("Solo tenemos %d unidades de %s disponibles. ¿Cuántas quieres?", selected.Stock-quantityInCart(state.Items, selected.Id), selected.Name),
			Conflict: apperror.StateConflict(string(state.Phase), utterance),
		}
	}

	item := entity.CartItem{ProductId: selected.Id, Name: selected.Name, UnitPrice: selected.Price, Quantity: quantity}
	next := entity.CartState{Phase: entity.CartPhaseReviewingCart, Items: addItem(state.Items, item)}

	reply := fmt.Sprintf("Agregué %d x %s a tu carrito.\n%s¿Deseas finalizar la compra o seguir comprando?", quantity, selected.Name, Summary(next))
	return Outcome{Next: next, Reply: reply, Effects: []Effect{{Kind: EffectAddItem, Item: item}}}
}

func review(state entity.CartState, text string) Outcome {
	switch {
	case hasAny(text, continueWords):
		next := entity.CartState{Phase: entity.CartPhaseIdle, Items: state.Items}
		return Outcome{Next: next, Reply: "Perfecto, ¿qué otro producto te gustaría agregar?"}
	case hasAny(text, checkoutWords):
		next := entity.CartState{Phase: entity.CartPhaseCheckout, Items: state.Items}
		return Outcome{Next: next, Reply: "Resumen de tu pedido:\n" + Summary(next) + "¿Confirmas el pedido? (sí/no)"}
	}
	return Outcome{
		Next:     state,
		Reply:    "¿Deseas finalizar la compra o seguir comprando?",
		Conflict: apperror.StateConflict(string(state.Phase), text),
	}
}

func checkout(state entity.CartState, text string) Outcome {
	switch {
	case hasAny(text, cancelWords) || hasAny(text, declineWords):
		next := entity.CartState{Phase: entity.CartPhaseIdle, Items: state.Items}
		return Outcome{Next: next, Reply: "Pedido cancelado, no se realizó ningún cargo." + keptCartNote(next)}
	case hasAny(text, confirmWords):
		items := append([]entity.CartItem(nil), state.Items...)
		next := entity.CartState{Phase: entity.CartPhaseConfirmed, Items: items}
		return Outcome{
			Next:    next,
			Reply:   fmt.Sprintf("¡Pedido confirmado! Total: %s. Te contactaremos para coordinar el pago y el envío.", money(next.Total())),
			Effects: []Effect{{Kind: EffectPlaceOrder, Items: items, Total: next.Total()}},
		}
	}
	return Outcome{
		Next:     state,
		Reply:    "¿Confirmas el pedido? Responde sí o no.",
		Conflict: apperror.StateConflict(string(state.Phase), text),
	}
}

// Summary renders the cart lines and total.
func Summary(state entity.CartState) string {
	var sb strings.Builder
	for _, item := range state.Items {
		fmt.Fprintf(&sb, "- %d x %s (%s c/u) = %s\n", item.Quantity, item.Name, money(item.UnitPrice), money(item.Subtotal()))
	}
	fmt.Fprintf(&sb, "Total: %s\n", money(state.Total()))
	return sb.String()
}

// parseQuantity accepts a positive whole number, written as digits or as a
// Spanish number word. Fractions are rejected rather than truncated.
func parseQuantity(utterance string) (int, bool) {
	if fractionPattern.MatchString(utterance) {
		return 0, false
	}
	for _, w := range utils.Words(utterance) {
		for _, f := range fractionWords {
			if w == f {
				return 0, false
			}
		}
	}
	if m := numberPattern.FindString(utterance); m != "" {
		n, err := strconv.Atoi(m)
		return n, err == nil && n > 0
	}
	for _, w := range utils.Words(utterance) {
		if n, ok := numberWords[w]; ok {
			return n, true
		}
	}
	return 0, false
}

func parseSelection(utterance string, candidates []entity.CartProduct) (entity.CartProduct, bool) {
	if m := numberPattern.FindString(utterance); m != "" {
		if n, err := strconv.Atoi(m); err == nil && n >= 1 && n <= len(candidates) {
			return candidates[n-1], true
		}
	}
	words := utils.Words(utterance)
	for _, w := range words {
		if n, ok := ordinalWords[w]; ok && n <= len(candidates) {
			return candidates[n-1], true
		}
		if (w == "ultimo" || w == "ultima") && len(candidates) > 0 {
			return candidates[len(candidates)-1], true
		}
	}
	if found := FindProductInMessage(utterance, candidates); len(found) == 1 {
		return found[0], true
	}
	return entity.CartProduct{}, false
}

func addItem(items []entity.CartItem, item entity.CartItem) []entity.CartItem {
	out := append([]entity.CartItem(nil), items...)
	for i := range out {
		if out[i].ProductId == item.ProductId {
			out[i].Quantity += item.Quantity
			return out
		}
	}
	return append(out, item)
}

func quantityInCart(items []entity.CartItem, id uuid.UUID) int {
	for _, item := range items {
		if item.ProductId == id {
			return item.Quantity
		}
	}
	return 0
}

func listCandidates(candidates []entity.CartProduct) string {
	var sb strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, c.Name, money(c.Price))
	}
	return sb.String()
}

func keptCartNote(state entity.CartState) string {
	if len(state.Items) == 0 {
		return ""
	}
	return fmt.Sprintf(" Tu carrito sigue guardado (%d productos, total %s).", len(state.Items), money(state.Total()))
}

func hasAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if utils.ContainsPhrase(text, p) {
			return true
		}
	}
	return false
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
