package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"caslastudio/internal/infra"
	"caslastudio/internal/sqlinline"
)

// Source loads the product list from somewhere.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
}

// StaticSource serves a fixed list.
type StaticSource []Product

func (s StaticSource) Products(ctx context.Context) ([]Product, error) {
	return normalize(s), nil
}

// FileSource reads a JSON file holding either a list of code strings or a
// list of product objects.
type FileSource struct {
	Path string
}

func (f FileSource) Products(ctx context.Context) ([]Product, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", f.Path, err)
	}
	products, err := decodeProducts(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", f.Path, err)
	}
	return products, nil
}

func decodeProducts(raw []byte) ([]Product, error) {
	raw = bytes.TrimSpace(raw)
	var codes []string
	if err := json.Unmarshal(raw, &codes); err == nil {
		out := make([]Product, 0, len(codes))
		for _, c := range codes {
			out = append(out, Product{Code: c})
		}
		return normalize(out), nil
	}
	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, err
	}
	return normalize(products), nil
}

// PostgresSource reads active rows of the products table.
type PostgresSource struct {
	sql infra.SQLExecutor
}

func NewPostgresSource(sql infra.SQLExecutor) *PostgresSource {
	return &PostgresSource{sql: sql}
}

func (s *PostgresSource) Products(ctx context.Context) ([]Product, error) {
	var raw []byte
	if err := s.sql.QueryRow(ctx, sqlinline.QSelectActiveProducts).Scan(&raw); err != nil {
		return nil, fmt.Errorf("catalog: select products: %w", err)
	}
	products, err := decodeProducts(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog: decode products: %w", err)
	}
	return products, nil
}

// Sync upserts products in order and deactivates every other row.
func (s *PostgresSource) Sync(ctx context.Context, products []Product) (int, error) {
	products = normalize(products)
	if len(products) == 0 {
		return 0, errors.New("catalog: refusing to sync an empty product list")
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QEnsureProductsTable); err != nil {
		return 0, fmt.Errorf("catalog: ensure table: %w", err)
	}
	codes := make([]string, 0, len(products))
	for i, p := range products {
		if _, err := s.sql.Exec(ctx, sqlinline.QUpsertProduct, p.Code, p.SKU, p.Name, i); err != nil {
			return i, fmt.Errorf("catalog: upsert %q: %w", p.Code, err)
		}
		codes = append(codes, p.Code)
	}
	if _, err := s.sql.Exec(ctx, sqlinline.QDeactivateProductsExcept, codes); err != nil {
		return len(products), fmt.Errorf("catalog: deactivate stale products: %w", err)
	}
	return len(products), nil
}
