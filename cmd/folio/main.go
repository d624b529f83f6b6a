package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mwehr/folio"
	"github.com/mwehr/folio/ingest"
	"github.com/mwehr/folio/observer"
	"github.com/mwehr/folio/provider/resolve"
	"github.com/mwehr/folio/store/postgres"
	"github.com/mwehr/folio/store/sqlite"
)

const searchTopK = 5

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()

	// 1. Load config
	cfg, err := folio.LoadConfig(os.Getenv("FOLIO_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	// 2. Create embedding provider, shared per model id
	providers := folio.NewProviderCache(resolve.Loader(resolve.Config{
		Provider:   cfg.Embedding.Provider,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	}))
	embedding, err := providers.Get(cfg.Embedding.Model)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.Embedding.RequestsPerMinute > 0 || cfg.Embedding.TextsPerMinute > 0 {
		embedding = folio.WithRateLimit(embedding,
			folio.RPM(cfg.Embedding.RequestsPerMinute),
			folio.TextsPerMinute(cfg.Embedding.TextsPerMinute))
	}
	embedding = folio.WithRetry(embedding)

	// 3. Observability
	var inst *observer.Instruments
	if cfg.Observability.Enabled {
		var shutdown func(context.Context) error
		inst, shutdown, err = observer.Init(ctx)
		if err != nil {
			log.Fatal(err)
		}
		defer shutdown(ctx)
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
	}

	// 4. Create store
	var store folio.ChunkStore
	if cfg.Database.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.PostgresURL)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		store = postgres.New(pool, postgres.WithEmbeddingDimension(cfg.Embedding.Dimensions))
	} else {
		store = sqlite.New(cfg.Database.Path)
	}
	if inst != nil {
		store = observer.WrapStore(store, inst)
	}
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// 5. Dispatch
	switch os.Args[1] {
	case "ingest":
		err = runIngest(ctx, cfg, store, embedding, os.Args[2:])
	case "search":
		err = runSearch(ctx, cfg, store, embedding, os.Args[2:])
	case "books":
		err = runBooks(ctx, store)
	case "delete":
		err = runDelete(ctx, store, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runIngest(ctx context.Context, cfg folio.Config, store folio.ChunkStore, emb folio.EmbeddingProvider, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: folio ingest <file>")
	}
	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ing, err := ingest.New(store, emb, ingest.WithChunking(cfg.Chunking))
	if err != nil {
		return err
	}

	start := time.Now()
	name := filepath.Base(path)
	var res ingest.IngestResult
	if prev, ok := bookBySource(ctx, store, name); ok {
		// Same source already indexed: replace its chunk set in place.
		res, err = ing.ReingestFile(ctx, prev.ID, content, name)
	} else {
		res, err = ing.IngestFile(ctx, content, name)
	}
	if err != nil {
		return err
	}
	fmt.Printf("ingested %q (%s): %d sections, %d parents, %d children in %s\n",
		res.Book.Title, res.Book.ID, res.SectionCount, res.ParentCount, res.ChildCount,
		time.Since(start).Round(time.Millisecond))
	for _, f := range res.Failed {
		fmt.Printf("  section %d failed: %v\n", f.SectionIndex, f.Unwrap())
	}
	return nil
}

func bookBySource(ctx context.Context, store folio.ChunkStore, source string) (folio.Book, bool) {
	books, err := store.ListBooks(ctx, 1000)
	if err != nil {
		return folio.Book{}, false
	}
	for _, b := range books {
		if b.Source == source {
			return b, true
		}
	}
	return folio.Book{}, false
}

func runSearch(ctx context.Context, cfg folio.Config, store folio.ChunkStore, emb folio.EmbeddingProvider, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: folio search <query>")
	}
	query := args[0]

	vecs, err := emb.Embed(ctx, []string{query})
	if err != nil {
		return err
	}
	matches, err := store.SearchChildren(ctx, vecs[0], searchTopK)
	if err != nil {
		return err
	}

	expander := folio.NewExpander(store,
		folio.WithSiblingWindow(cfg.Query.SiblingWindow),
		folio.WithExpandTimeout(cfg.Query.Timeout()),
	)
	exp, err := expander.Expand(ctx, matches, cfg.Query.Mode)
	if err != nil {
		return err
	}

	fmt.Printf("%d matches (%s mode)\n", len(exp.Matches), exp.Mode)
	if exp.Degraded {
		fmt.Println("warning: some matches served without hierarchy context")
	}
	for i, m := range exp.Matches {
		fmt.Printf("\n[%d] score %.3f  chunk %s\n%s\n", i+1, m.Child.Score, m.Child.ID, m.Child.Text)
		for _, s := range m.Siblings {
			if s.ID == m.Child.ID {
				continue
			}
			fmt.Printf("  ~ sibling %d: %s\n", s.SequenceIndex, s.Text)
		}
	}
	for _, p := range exp.Parents {
		fmt.Printf("\n== %s ==\n%s\n", p.SectionTitle, p.FullText)
	}
	return nil
}

func runBooks(ctx context.Context, store folio.ChunkStore) error {
	books, err := store.ListBooks(ctx, 100)
	if err != nil {
		return err
	}
	for _, b := range books {
		fmt.Printf("%s  %s  (%s)\n", b.ID, b.Title, b.Source)
	}
	return nil
}

func runDelete(ctx context.Context, store folio.ChunkStore, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: folio delete <book-id>")
	}
	if err := store.DeleteBook(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println("deleted", args[0])
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: folio <command> [args]

commands:
  ingest <file>     chunk and index a book (txt, md, html, pdf)
  search <query>    similarity search with context expansion
  books             list indexed books
  delete <book-id>  remove a book and its chunks

config file path is read from FOLIO_CONFIG; FOLIO_* env vars override.`)
}
