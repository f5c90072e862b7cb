// Package cart runs the conversational purchase flow: find a product, pick
// one, set a quantity, review and confirm.
package cart

import (
	"github.com/ruuig/tienda-online-sub002/internal/entity"
	"github.com/ruuig/tienda-online-sub002/pkg/catalog"
	"github.com/ruuig/tienda-online-sub002/pkg/utils"
)

// FindProductInMessage returns the products the message refers to. A full
// product name in the message wins (the longest one when names nest);
// otherwise products are ranked by how many message words appear in their
// name or category and the best-scoring ones are returned in catalog order.
func FindProductInMessage(message string, products []entity.CartProduct) []entity.CartProduct {
	text := utils.NormalizeText(message)
	if text == "" {
		return nil
	}

	var exact []entity.CartProduct
	longest := 0
	for _, p := range products {
		name := utils.NormalizeText(p.Name)
		if name == "" || !utils.ContainsPhrase(text, name) {
			continue
		}
		switch {
		case len(name) > longest:
			longest = len(name)
			exact = []entity.CartProduct{p}
		case len(name) == longest:
			exact = append(exact, p)
		}
	}
	if len(exact) > 0 {
		return exact
	}

	tokens := catalog.Tokens(message)
	if len(tokens) == 0 {
		return nil
	}

	var best []entity.CartProduct
	bestScore := 0
	for _, p := range products {
		score := overlap(tokens, p)
		switch {
		case score == 0:
		case score > bestScore:
			bestScore = score
			best = []entity.CartProduct{p}
		case score == bestScore:
			best = append(best, p)
		}
	}
	return best
}

func overlap(tokens []string, p entity.CartProduct) int {
	words := make(map[string]struct{})
	for _, w := range utils.Words(p.Name) {
		words[catalog.Singular(w)] = struct{}{}
	}
	for _, w := range utils.Words(p.Category) {
		words[catalog.Singular(w)] = struct{}{}
	}

	score := 0
	for _, t := range tokens {
		if _, ok := words[t]; ok {
			score++
		}
	}
	return score
}
