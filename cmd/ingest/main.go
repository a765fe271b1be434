package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/nyayasetu/nyayasetu/internal/ai"
	"github.com/nyayasetu/nyayasetu/internal/config"
	"github.com/nyayasetu/nyayasetu/internal/corpus"
	"github.com/nyayasetu/nyayasetu/internal/ingest"
	"github.com/nyayasetu/nyayasetu/internal/store"
)

func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("nyayasetu-ingest", pflag.ExitOnError)
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	zlog.Logger = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	provider := strings.ToLower(cfg.Provider)
	var clientConfig *ai.ClientConfig
	switch provider {
	case "openai":
		clientConfig = &ai.ClientConfig{
			APIKey:     cfg.APIKey,
			EmbedModel: cfg.EmbedModel,
			GenModel:   cfg.GenModel,
			Dim:        cfg.Dim,
			ProjectID:  cfg.ProjectID,
			Provider:   ai.ProviderOpenAI,
		}
	case "gemini", "google":
		clientConfig = &ai.ClientConfig{
			APIKey:     cfg.APIKey,
			EmbedModel: cfg.EmbedModel,
			GenModel:   cfg.GenModel,
			Dim:        cfg.Dim,
			ProjectID:  cfg.ProjectID,
			Location:   cfg.Location,
			Provider:   ai.ProviderGemini,
		}
	case "stub":
		clientConfig = &ai.ClientConfig{
			Dim:      cfg.Dim,
			Provider: ai.ProviderStub,
		}
	default:
		log.Fatalf("unsupported provider: %s", provider)
	}

	ctx := context.Background()

	st, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	client, err := ai.NewClient(ctx, clientConfig)
	if err != nil {
		log.Fatal(err)
	}
	if client.Dim() == 0 {
		log.Fatal("embedding dimension must be set")
	}

	if err := st.Migrate(ctx, client.Dim()); err != nil {
		log.Fatal(err)
	}

	rows, err := corpus.LoadPath(cfg.SourcePath)
	if err != nil {
		log.Fatalf("Failed to load source data from %s: %v", cfg.SourcePath, err)
	}
	if len(rows) == 0 {
		log.Fatalf("No source rows found under %s", cfg.SourcePath)
	}

	p := ingest.New(st, client)
	p.ChunkSize = cfg.ChunkSize
	p.ChunkOverlap = cfg.ChunkOverlap
	p.Workers = cfg.Workers

	report, err := p.Run(ctx, rows)
	if err != nil {
		log.Fatal(err)
	}

	total, err := st.Count(ctx)
	if err != nil {
		log.Fatal(err)
	}

	zlog.Info().
		Int("inserted", report.Inserted).
		Int("skipped_empty", report.SkippedEmpty).
		Int("skipped_duplicate", report.SkippedDuplicate).
		Int("failed", len(report.Failed)).
		Int64("corpus_size", total).
		Msg("ingestion finished")

	for _, f := range report.Failed {
		zlog.Warn().Str("section", f.Section).Str("reason", f.Reason).Msg("row failed")
	}
	if len(report.Failed) > 0 {
		os.Exit(1)
	}
}
