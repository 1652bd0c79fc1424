// Package app assembles the leasing assistant's components from
// configuration. Both the API server and the operator CLI start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/leasing-assistant/internal/agent"
	"github.com/capitalize-ai/leasing-assistant/internal/cache"
	"github.com/capitalize-ai/leasing-assistant/internal/config"
	"github.com/capitalize-ai/leasing-assistant/internal/events"
	"github.com/capitalize-ai/leasing-assistant/internal/llm"
	"github.com/capitalize-ai/leasing-assistant/internal/prompts"
	"github.com/capitalize-ai/leasing-assistant/internal/service"
	"github.com/capitalize-ai/leasing-assistant/internal/store"
	"github.com/capitalize-ai/leasing-assistant/internal/tools"
	"github.com/capitalize-ai/leasing-assistant/pkg/logger"
)

// ErrEventsDisabled is returned by operations that need NATS when it is off.
var ErrEventsDisabled = errors.New("NATS is disabled; set NATS_ENABLED=true")

// App holds the wired components.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Registry *tools.Registry
	Agent    *agent.Agent
	Users    *service.UserService
	Chat     *service.ChatService
	// NATS and Events are nil when NATS is disabled.
	NATS   *events.Client
	Events *events.Stream

	logger *logger.Logger
}

// OpenStore opens the configured database and seeds demo data when enabled.
func OpenStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	s, err := store.Open(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.SeedDemoData {
		if err := s.Seed(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("seeding demo data: %w", err)
		}
	}
	return s, nil
}

// NewLLMClient builds the configured completion client with its timeout.
func NewLLMClient(cfg *config.Config, log *logger.Logger) (llm.Client, error) {
	provider := llm.Provider(cfg.LLMProvider)
	opts := llm.Options{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL}
	if provider == llm.ProviderAnthropic {
		opts = llm.Options{APIKey: cfg.AnthropicAPIKey}
	}
	if opts.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %q", cfg.LLMProvider)
	}

	client, err := llm.NewClient(provider, opts)
	if err != nil {
		return nil, err
	}
	return llm.WithTimeout(client, cfg.LLMTimeout, log), nil
}

// New wires every component. The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	set, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}

	client, err := NewLLMClient(cfg, log)
	if err != nil {
		return nil, err
	}

	s, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Store: s, logger: log}

	var pub events.Publisher = events.Noop{}
	if cfg.NATSEnabled {
		nc, err := events.Connect(ctx, events.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.NATS = nc
		a.Events = events.NewStream(nc)
		if err := a.Events.EnsureStream(ctx); err != nil {
			a.Close()
			return nil, err
		}
		pub = a.Events
	}

	model := cfg.LLMModel
	if model == "" {
		model = llm.DefaultModel(llm.Provider(cfg.LLMProvider))
	}

	a.Registry = tools.NewRegistry(s)
	a.Agent = agent.New(client, a.Registry, set,
		agent.WithModel(model),
		agent.WithTemperature(cfg.LLMTemperature),
		agent.WithMaxTokens(cfg.LLMMaxTokens),
		agent.WithLogger(log.Named("agent")),
	)
	a.Users = service.NewUserService(s, log)
	a.Chat = service.NewChatService(s, a.Users, cache.New(cfg.CacheMaxPerIdentity), a.Agent, pub, log.Named("chat"),
		service.ChatOptions{
			HistoryWindow:    cfg.HistoryWindow,
			WarmLimit:        cfg.CacheWarmLimit,
			RouterFailClosed: cfg.RouterFailClosed,
		})

	log.Info("components ready",
		zap.String("db_driver", cfg.DBDriver),
		zap.String("llm_provider", client.Name()),
		zap.String("model", model),
		zap.Strings("known_models", client.Models()),
		zap.String("prompts_version", set.Version),
		zap.Bool("nats", cfg.NATSEnabled),
	)
	return a, nil
}

// Close releases the store and NATS connection.
func (a *App) Close() error {
	if a.NATS != nil {
		a.NATS.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
