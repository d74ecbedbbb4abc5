package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"caslastudio/internal/catalog"
	"caslastudio/internal/infra"
)

func main() {
	_ = godotenv.Load()

	var fileFlag string
	flag.StringVar(&fileFlag, "file", "", "JSON product list to load (defaults to the built-in product line)")
	flag.Parse()

	products := catalog.Default()
	if path := strings.TrimSpace(fileFlag); path != "" {
		var err error
		products, err = catalog.FileSource{Path: path}.Products(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read products: %v\n", err)
			os.Exit(1)
		}
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "catalogseed").Logger()
	source := catalog.NewPostgresSource(infra.NewSQLRunner(pool, logger))

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelExec()
	n, err := source.Sync(ctxExec, products)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sync products after %d rows: %v\n", n, err)
		os.Exit(1)
	}

	logger.Info().Int("products", n).Msg("catalog synced")
	fmt.Printf("synced %d products\n", n)
}
