// Package catalog grounds store answers in the vendor's product catalog.
package catalog

import (
	"strings"

	"github.com/ruuig/tienda-online-sub002/pkg/utils"
)

// Category is the canonical value stored in products.category.
type Category string

const (
	CategoryLaptop     Category = "laptop"
	CategoryDesktop    Category = "computadora"
	CategoryPhone      Category = "celular"
	CategoryTablet     Category = "tablet"
	CategoryAudio      Category = "audio"
	CategoryMonitor    Category = "monitor"
	CategoryPeripheral Category = "periferico"
	CategoryCamera     Category = "camara"
	CategoryGaming     Category = "videojuegos"
	CategoryWearable   Category = "reloj"
	CategoryPrinter    Category = "impresora"
	CategoryTV         Category = "television"
	CategoryAccessory  Category = "accesorio"
	CategoryOther      Category = "otro"
)

// vocabulary maps normalized singular words to a category. Lookups go
// through Singular, so plurals need no entry.
var vocabulary = map[string]Category{
	"laptop": CategoryLaptop, "notebook": CategoryLaptop, "portatil": CategoryLaptop, "ultrabook": CategoryLaptop, "macbook": CategoryLaptop,
	"computadora": CategoryDesktop, "computador": CategoryDesktop, "pc": CategoryDesktop, "desktop": CategoryDesktop, "ordenador": CategoryDesktop,
	"celular": CategoryPhone, "telefono": CategoryPhone, "smartphone": CategoryPhone, "movil": CategoryPhone, "phone": CategoryPhone, "iphone": CategoryPhone,
	"tablet": CategoryTablet, "tableta": CategoryTablet, "ipad": CategoryTablet,
	"audifono": CategoryAudio, "auricular": CategoryAudio, "headphone": CategoryAudio, "bocina": CategoryAudio, "parlante": CategoryAudio, "speaker": CategoryAudio,
	"monitor": CategoryMonitor, "pantalla": CategoryMonitor, "display": CategoryMonitor,
	"teclado": CategoryPeripheral, "keyboard": CategoryPeripheral, "mouse": CategoryPeripheral, "raton": CategoryPeripheral, "periferico": CategoryPeripheral,
	"camara": CategoryCamera, "camera": CategoryCamera, "webcam": CategoryCamera,
	"consola": CategoryGaming, "videojuego": CategoryGaming, "playstation": CategoryGaming, "xbox": CategoryGaming, "nintendo": CategoryGaming, "gamer": CategoryGaming,
	"reloj": CategoryWearable, "smartwatch": CategoryWearable, "watch": CategoryWearable,
	"impresora": CategoryPrinter, "printer": CategoryPrinter,
	"televisor": CategoryTV, "television": CategoryTV, "tv": CategoryTV, "tele": CategoryTV,
	"accesorio": CategoryAccessory, "cargador": CategoryAccessory, "cable": CategoryAccessory, "funda": CategoryAccessory, "mochila": CategoryAccessory,
}

// stopwords carry no product meaning and never reach the text match.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a al algo algun alguna alguno algunos alguien ahi aqui asi
		bien buen buena buenas buenos busco
		como con cual cuales cuanto cuanta cuantos cuantas
		de del desde donde dame
		el ella ellos en entre es esa ese eso esta estan estas este esto estos
		hay hola hey hi hello
		la las le les lo los
		me mi mis muy
		necesito ni no nos
		o otra otro
		para pero por porfa porfavor puedo puedes
		que quiero quisiera
		se si sin sobre son su sus
		tal tambien tiene tienen tienes tengo todo todos tu tus
		un una unas uno unos usted ustedes
		vender venden ver
		y ya yo
		comprar compra compro llevar llevo agregar anadir carrito pedir ordenar gustaria
		disponible disponibles precio precios producto productos stock
		the and for with what have any do you
	`) {
		stopwords[w] = struct{}{}
	}
}

// Singular strips a Spanish or English plural ending from a normalized word.
func Singular(word string) string {
	n := len(word)
	if n > 3 && strings.HasSuffix(word, "s") {
		if _, ok := vocabulary[word[:n-1]]; ok {
			return word[:n-1]
		}
	}
	switch {
	case n > 4 && strings.HasSuffix(word, "es") && strings.IndexByte("rlndzj", word[n-3]) >= 0 && strings.IndexByte("aeiou", word[n-4]) >= 0:
		return word[:n-2]
	case n > 3 && strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		return word[:n-1]
	}
	return word
}

// Tokens returns the meaningful words of message, singular and deduplicated,
// in order of appearance.
func Tokens(message string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, w := range utils.Words(message) {
		if _, stop := stopwords[w]; stop {
			continue
		}
		if len([]rune(w)) < 2 {
			continue
		}
		s := Singular(w)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// DetectCategories returns the categories named by tokens, without
// duplicates and in order of appearance.
func DetectCategories(tokens []string) []Category {
	var out []Category
	seen := make(map[Category]struct{})
	for _, t := range tokens {
		c, ok := vocabulary[t]
		if !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
