package handlers

import "net/http"

type catalogResponse struct {
	Products []catalogItem `json:"products"`
}

type catalogItem struct {
	Code string `json:"code"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

func (a *App) ListCatalog(w http.ResponseWriter, r *http.Request) {
	products := a.Catalog.Products(r.Context())
	out := catalogResponse{Products: make([]catalogItem, 0, len(products))}
	for _, p := range products {
		out.Products = append(out.Products, catalogItem{Code: p.Code, SKU: p.SKU, Name: p.Name})
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	a.json(w, http.StatusOK, out)
}
