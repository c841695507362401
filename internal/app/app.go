// Package app wires configuration into the extraction and cover services.
package app

import (
	"context"
	"fmt"
	"strings"

	"shelfscan/internal/config"
	"shelfscan/internal/cover"
	"shelfscan/internal/extract"
	"shelfscan/internal/placeholder"
	"shelfscan/internal/platform/cache"
	"shelfscan/internal/platform/logging"
	"shelfscan/internal/platform/openai"
	"shelfscan/internal/platform/openlibrary"
	"shelfscan/internal/shelf"

	"github.com/rs/zerolog"
)

// App holds the constructed services. Close releases the cache and stops
// background cover loading.
type App struct {
	Config      config.Config
	Logger      zerolog.Logger
	Placeholder *placeholder.Generator
	Pipeline    *extract.Pipeline
	Resolver    *cover.Resolver
	Loader      *cover.Loader
	Library     *shelf.Library
	Service     *shelf.Service

	cache cache.Client
}

func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	gen := placeholder.New(cfg.Placeholder.BaseURL)

	coverCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	vision := extract.NewVisionClient(
		openai.NewClient(cfg.OpenAI.Endpoint, cfg.OpenAI.Timeout),
		extract.VisionConfig{
			Model:       cfg.OpenAI.Model,
			MaxTokens:   cfg.OpenAI.MaxTokens,
			Temperature: cfg.OpenAI.Temperature,
		},
		logging.Component(logger, "vision"),
	)
	parser := extract.NewParser(logging.Component(logger, "parser"))
	parser.Placeholder = gen
	pipeline := extract.NewPipeline(vision, parser, logging.Component(logger, "pipeline"))

	ol := openlibrary.NewClient(openlibrary.Options{
		BaseURL:   cfg.OpenLibrary.BaseURL,
		CoversURL: cfg.OpenLibrary.CoversURL,
		UserAgent: cfg.OpenLibrary.UserAgent,
		RPS:       cfg.OpenLibrary.RPS,
		Timeout:   cfg.OpenLibrary.Timeout,
	})
	coverLog := logging.Component(logger, "cover")
	resolver := cover.NewResolver(
		cover.NewISBNResolver(ol, coverLog),
		ol,
		cover.ResolverConfig{Placeholder: gen, Cache: coverCache, CacheTTL: cfg.Cache.TTL},
		coverLog,
	)
	loader := cover.NewLoader(resolver, cfg.Covers.MaxInFlight, coverLog)

	library := shelf.NewLibrary()
	service := shelf.NewService(pipeline, loader, library, logging.Component(logger, "shelf"))

	return &App{
		Config:      cfg,
		Logger:      logger,
		Placeholder: gen,
		Pipeline:    pipeline,
		Resolver:    resolver,
		Loader:      loader,
		Library:     library,
		Service:     service,
		cache:       coverCache,
	}, nil
}

func (a *App) Close() error {
	a.Service.Close()
	return a.cache.Close()
}

func newCache(ctx context.Context, cfg config.CacheConfig) (cache.Client, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return cache.Nop{}, nil
	case "memory":
		return cache.NewMemoryClient(cfg.MaxEntries), nil
	case "redis":
		c, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("cover cache: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("cover cache: unknown driver %q", cfg.Driver)
	}
}
