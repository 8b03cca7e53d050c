package main

import (
	"context"
	"fmt"
	"io"

	"github.com/PabloGalante/farum-journey/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/farum-journey/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/farum-journey/internal/adapters/storage/memory"
	redisstore "github.com/PabloGalante/farum-journey/internal/adapters/storage/redis"
	sqlitestore "github.com/PabloGalante/farum-journey/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/farum-journey/internal/adapters/textgen"
	"github.com/PabloGalante/farum-journey/internal/config"
	"github.com/PabloGalante/farum-journey/internal/domain"
	"github.com/PabloGalante/farum-journey/internal/observability"
)

type stores struct {
	journeys domain.JourneyStore
	journal  domain.JournalStore
	closers  []io.Closer
}

func (s *stores) Close() {
	for _, c := range s.closers {
		_ = c.Close()
	}
}

func buildStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	log := observability.Logger()

	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		fs, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("initializing Firestore store: %w", err)
		}
		// 1 store, implements 2 interfaces
		return &stores{journeys: fs, journal: fs, closers: []io.Closer{fs}}, nil

	case "sqlite":
		log.Info("using sqlite storage", "path", cfg.SQLitePath)
		sq, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("initializing SQLite store: %w", err)
		}
		return &stores{journeys: sq, journal: sq, closers: []io.Closer{sq}}, nil

	case "redis":
		log.Info("using redis storage", "addr", cfg.RedisAddr, "ttl", cfg.RedisTTL)
		rs, err := redisstore.NewStore(cfg.RedisAddr, cfg.RedisTTL)
		if err != nil {
			return nil, fmt.Errorf("initializing Redis store: %w", err)
		}
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		// Journal entries are small and local; redis only holds journeys.
		return &stores{journeys: rs, journal: memstore.NewJournalStore(), closers: []io.Closer{rs}}, nil

	default:
		log.Info("using in-memory storage")
		return &stores{journeys: memstore.NewJourneyStore(), journal: memstore.NewJournalStore()}, nil
	}
}

func buildLLM(ctx context.Context, cfg *config.Config) (domain.LLMClient, error) {
	log := observability.Logger()

	switch cfg.LLMProvider {
	case "vertex":
		log.Info("using vertex llm client", "model", cfg.ModelName)
		return llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
	case "openai":
		log.Info("using openai llm client", "model", cfg.OpenAIModel)
		return llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	default:
		log.Info("using mock llm client")
		return llm.NewMockLLM(), nil
	}
}

// buildSuggestionClients returns the client the journeys use and the one
// behind /api/generate. With a remote URL the journeys call it over HTTP;
// the endpoint always answers in process.
func buildSuggestionClients(ctx context.Context, cfg *config.Config) (journeys, generator domain.SuggestionClient, err error) {
	model, err := buildLLM(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	local := textgen.NewLocalClient(model)

	if cfg.TextGenURL != "" {
		observability.Logger().Info("using remote text generation", "url", cfg.TextGenURL)
		return textgen.NewHTTPClient(cfg.TextGenURL, nil), local, nil
	}
	return local, local, nil
}
