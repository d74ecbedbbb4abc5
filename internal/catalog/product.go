package catalog

import "strings"

// Product is one selectable surface. Code is the opaque value sent to the
// generation service; SKU and Name are derived from it for display.
type Product struct {
	Code string `json:"code"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// ParseProduct splits a code such as "C1012 Glacier White" into its SKU and
// name.
func ParseProduct(code string) Product {
	code = strings.TrimSpace(code)
	sku, name, _ := strings.Cut(code, " ")
	return Product{Code: code, SKU: sku, Name: strings.TrimSpace(name)}
}

var defaultCodes = []string{
	"C1012 Glacier White", "C1026 Polar", "C3269 Ash Grey",
	"C3168 Silver Wave", "C1005 Milky White", "C2103 Onyx Carrara",
	"C2104 Massa", "C3105 Casla Cloudy", "C3146 Casla Nova",
	"C2240 Marquin", "C2262 Concrete (Honed)", "C3311 Calacatta Sky",
	"C3346 Massimo", "C4143 Mario", "C4145 Marina",
	"C4202 Calacatta Gold", "C1205 Casla Everest", "C4211 Calacatta Supreme",
	"C4204 Calacatta Classic", "C1102 Super White", "C4246 Casla Mystery",
	"C4345 Oro", "C4346 Luxe", "C4342 Casla Eternal",
	"C4221 Athena", "C4255 Calacatta Extra",
}

// Default returns the built-in product line in display order.
func Default() []Product {
	out := make([]Product, 0, len(defaultCodes))
	for _, c := range defaultCodes {
		out = append(out, ParseProduct(c))
	}
	return out
}

// normalize fills SKU and Name from Code where missing and drops blank or
// repeated codes, keeping first occurrence order.
func normalize(in []Product) []Product {
	seen := make(map[string]struct{}, len(in))
	out := make([]Product, 0, len(in))
	for _, p := range in {
		parsed := ParseProduct(p.Code)
		if parsed.Code == "" {
			continue
		}
		if _, dup := seen[parsed.Code]; dup {
			continue
		}
		seen[parsed.Code] = struct{}{}
		if s := strings.TrimSpace(p.SKU); s != "" {
			parsed.SKU = s
		}
		if n := strings.TrimSpace(p.Name); n != "" {
			parsed.Name = n
		}
		out = append(out, parsed)
	}
	return out
}
