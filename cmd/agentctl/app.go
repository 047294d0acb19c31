package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KamdynS/go-swarm/agent/core"
	"github.com/KamdynS/go-swarm/chat"
	"github.com/KamdynS/go-swarm/chess"
	"github.com/KamdynS/go-swarm/config"
	"github.com/KamdynS/go-swarm/database"
	"github.com/KamdynS/go-swarm/llm"
	"github.com/KamdynS/go-swarm/llm/anthropic"
	"github.com/KamdynS/go-swarm/llm/openai"
	"github.com/KamdynS/go-swarm/memory"
	"github.com/KamdynS/go-swarm/memory/inmemory"
	redisstore "github.com/KamdynS/go-swarm/memory/redis"
	obs "github.com/KamdynS/go-swarm/observability"
	"github.com/KamdynS/go-swarm/observability/otel"
	"github.com/KamdynS/go-swarm/observability/prom"
	"github.com/KamdynS/go-swarm/router"
	"github.com/KamdynS/go-swarm/skills"
	"github.com/rs/zerolog/log"
)

// app holds the wired components shared by the commands.
type app struct {
	cfg     *config.Config
	model   llm.Client
	db      *database.DB
	metrics *prom.Exporter
	chat    *chat.Service

	closers []func(context.Context) error
}

// newApp wires the application from cfg. A nil model is built from the llm
// section of cfg.
func newApp(ctx context.Context, cfg *config.Config, model llm.Client) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.init(ctx, model); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, model llm.Client) error {
	cfg := a.cfg

	if cfg.Tracing.Enabled {
		tracer, shutdown, err := otel.Setup(ctx, otel.Config{
			ServiceName: cfg.Tracing.ServiceName,
			ProjectName: cfg.Tracing.ProjectName,
			Endpoint:    cfg.Tracing.Endpoint,
			Headers:     cfg.Tracing.Headers,
		})
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		obs.SetTracer(tracer)
		a.closers = append(a.closers, shutdown)
		log.Info().Str("endpoint", cfg.Tracing.Endpoint).Msg("tracing enabled")
	}
	if cfg.Metrics.Enabled {
		a.metrics = prom.New(cfg.Metrics.Namespace)
		obs.SetMetrics(a.metrics)
	}

	if model == nil {
		m, err := newModel(cfg.LLM)
		if err != nil {
			return err
		}
		model = m
	}
	a.model = llm.NewInstrumentedClient(model)

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })

	store, closeStore, err := newStore(ctx, cfg.Memory)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeStore)

	skillMap, err := skills.NewSkillMap(skills.Deps{Model: a.model, DB: db, Retries: cfg.Router.Retries})
	if err != nil {
		return fmt.Errorf("failed to build skills: %w", err)
	}

	var (
		r        router.Router
		spanName string
	)
	switch cfg.Router.Type {
	case config.RouterCodeBased:
		r, err = router.NewCodeBased(a.model, skillMap, cfg.Router.MaxTurns)
		spanName = chat.SpanCodeBased
	default:
		var mw []core.Middleware
		if g := cfg.Guardrails; g.Enabled {
			mw = append(mw, &core.SimpleGuardrails{
				DenySubstrings:  g.DenySubstrings,
				AllowSubstrings: g.AllowSubstrings,
				MaxInputChars:   g.MaxInputChars,
				AllowedTools:    g.AllowedTools,
			})
		}
		r, err = router.NewSwarm(router.SwarmConfig{
			Model:      a.model,
			Skills:     skillMap,
			MaxTurns:   cfg.Router.MaxTurns,
			Middleware: mw,
		})
		spanName = chat.SpanSwarm
	}
	if err != nil {
		return fmt.Errorf("failed to build %s router: %w", cfg.Router.Type, err)
	}

	a.chat = chat.NewService(r, store, spanName, chat.WithHistoryLimit(cfg.Memory.HistoryLimit))
	log.Info().Str("router", cfg.Router.Type).Str("memory", cfg.Memory.Type).Msg("application ready")
	return nil
}

// newGame starts a chess game archived to the database.
func (a *app) newGame() (*chess.Game, error) {
	r, err := chess.NewRouter(chess.RouterConfig{
		Model:       a.model,
		PlayerModel: a.cfg.Chess.Model,
		MaxTurns:    a.cfg.Chess.MaxTurns,
	})
	if err != nil {
		return nil, err
	}
	return chess.NewGame(r, chess.WithMaxPlies(a.cfg.Chess.MaxPlies), chess.WithArchive(a.db)), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}

// newModel builds a client for every configured provider. Requests go to
// the default provider unless they name a model another provider serves.
func newModel(cfg config.LLMConfig) (llm.Client, error) {
	retry := llm.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}

	clients := map[llm.Provider]llm.Client{}
	if cfg.OpenAI.APIKey != "" {
		c, err := openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAI.APIKey,
			Model:       modelFor(cfg, llm.ProviderOpenAI),
			BaseURL:     cfg.OpenAI.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			RetryConfig: retry,
		})
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		clients[llm.ProviderOpenAI] = c
	}
	if cfg.Anthropic.APIKey != "" {
		c, err := anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.Anthropic.APIKey,
			Model:       modelFor(cfg, llm.ProviderAnthropic),
			BaseURL:     cfg.Anthropic.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			RetryConfig: retry,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		clients[llm.ProviderAnthropic] = c
	}

	def, ok := clients[llm.Provider(cfg.Provider)]
	if !ok {
		return nil, fmt.Errorf("no API key configured for llm provider %q", cfg.Provider)
	}
	policy := llm.StaticPolicy{Default: def, ByModel: map[string]llm.Client{}}
	for p, c := range clients {
		for _, m := range llm.ModelsByProvider(p) {
			policy.ByModel[m.Name] = c
		}
	}
	return llm.NewRouterClient(policy), nil
}

// modelFor applies the configured model only to the provider that serves it.
func modelFor(cfg config.LLMConfig, p llm.Provider) string {
	if llm.Provider(cfg.Provider) != p {
		return ""
	}
	return cfg.Model
}

func openDatabase(ctx context.Context, cfg database.Config) (*database.DB, error) {
	if cfg.Type == "" || cfg.Type == "sqlite" {
		if dir := filepath.Dir(cfg.Connection); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := database.New(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.AutoMigrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := db.Seed(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}
	return db, nil
}

func newStore(ctx context.Context, cfg config.MemoryConfig) (memory.ConversationStore, func(context.Context) error, error) {
	if cfg.Type != "redis" {
		return inmemory.NewConversationStore(cfg.MaxMessages), func(context.Context) error { return nil }, nil
	}
	client, err := redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	store := redisstore.NewConversationStore(client, cfg.Redis.Prefix, cfg.Redis.TTL, cfg.MaxMessages)
	return store, func(context.Context) error { return client.Close() }, nil
}
