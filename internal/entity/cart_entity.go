package entity

import "github.com/google/uuid"

type CartPhase string

const (
	CartPhaseIdle              CartPhase = "idle"
	CartPhaseSearching         CartPhase = "searching"
	CartPhaseAwaitingSelection CartPhase = "awaiting_selection"
	CartPhaseAwaitingQuantity  CartPhase = "awaiting_quantity"
	CartPhaseReviewingCart     CartPhase = "reviewing_cart"
	CartPhaseCheckout          CartPhase = "checkout"
	CartPhaseConfirmed         CartPhase = "confirmed"
)

// CartProduct is the part of a product the purchase flow needs. It is copied
// into conversation state so the flow survives catalog changes mid-purchase.
type CartProduct struct {
	Id       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Price    float64   `json:"price"`
	Stock    int       `json:"stock"`
}

func NewCartProduct(p *Product) CartProduct {
	return CartProduct{Id: p.Id, Name: p.Name, Category: p.Category, Price: p.Price, Stock: p.Stock}
}

// CartItem is a line in a conversational cart.
type CartItem struct {
	ProductId uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	UnitPrice float64   `json:"unitPrice"`
	Quantity  int       `json:"quantity"`
}

func (i CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

type CartState struct {
	Phase      CartPhase     `json:"phase"`
	Candidates []CartProduct `json:"candidates,omitempty"`
	Selected   *CartProduct  `json:"selected,omitempty"`
	Items      []CartItem    `json:"items,omitempty"`
}

func (s CartState) Active() bool {
	return s.Phase != "" && s.Phase != CartPhaseIdle
}

func (s CartState) Total() float64 {
	total := 0.0
	for _, item := range s.Items {
		total += item.Subtotal()
	}
	return total
}
