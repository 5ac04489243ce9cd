package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"

	ingestapp "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/application"
	"github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/infrastructure/excel"
	ingestpg "github.com/irtellezg/TrustonicReporting-Dashboard/internal/ingest/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn     string
	file    string
	dir     string
	brand   string
	migrate bool
	verbose bool
}

func main() {
	_ = godotenv.Load()
	cfg := parseFlags()

	if cfg.dsn == "" {
		log.Fatal("PG_DSN or DATABASE_URL is required")
	}
	if cfg.file == "" && cfg.dir == "" {
		log.Fatal("-file or -dir is required")
	}

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("ping db: %v", err)
	}

	ctx := context.Background()
	if cfg.migrate {
		if err := ingestpg.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("ensure schema: %v", err)
		}
		log.Printf("schema ensured")
	}

	var logger *log.Logger
	if cfg.verbose {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	processor := ingestapp.NewProcessor(
		excel.NewReader(),
		ingestpg.NewReportStore(db),
		ingestpg.NewFileStore(db),
		ingestpg.NewErrorStore(db),
		nil,
		logger,
	)

	paths, err := collectPaths(cfg)
	if err != nil {
		log.Fatalf("collect files: %v", err)
	}
	if len(paths) == 0 {
		log.Fatal("no workbook files found")
	}

	started := time.Now()
	failed := 0
	for _, path := range paths {
		result, err := processor.Process(ctx, path, cfg.brand)
		if err != nil {
			log.Printf("%s: error: %v", filepath.Base(path), err)
			failed++
			continue
		}
		if result.Unchanged {
			log.Printf("%s: unchanged, skipped", filepath.Base(path))
			continue
		}
		log.Printf("%s: inserted=%d updated=%d skipped=%d parse_errors=%d duration=%s",
			filepath.Base(path), result.Inserted, result.Updated, result.Skipped,
			len(result.Errors), result.Duration.Round(time.Millisecond))
	}

	log.Printf("importer finished: files=%d failed=%d elapsed=%s",
		len(paths), failed, time.Since(started).Round(time.Millisecond))
	if failed > 0 {
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.dsn, "dsn", envOrDefault("PG_DSN", envOrDefault("DATABASE_URL", "")), "Postgres DSN")
	flag.StringVar(&cfg.file, "file", "", "single workbook to process")
	flag.StringVar(&cfg.dir, "dir", "", "directory of workbooks to process")
	flag.StringVar(&cfg.brand, "brand", "", "brand override applied to every record (default: from file name)")
	flag.BoolVar(&cfg.migrate, "migrate", false, "ensure the reporting schema before processing")
	flag.BoolVar(&cfg.verbose, "v", false, "log pipeline events")
	flag.Parse()
	return cfg
}

func collectPaths(cfg config) ([]string, error) {
	if cfg.file != "" {
		return []string{cfg.file}, nil
	}

	entries, err := os.ReadDir(cfg.dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, "~$") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".xlsx" && ext != ".xlsm" {
			continue
		}
		paths = append(paths, filepath.Join(cfg.dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
