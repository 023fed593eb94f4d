package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/cartography/internal/config"
	"github.com/aretw0/cartography/internal/logging"
	"github.com/aretw0/cartography/pkg/adapters/file"
	"github.com/aretw0/cartography/pkg/adapters/memory"
	"github.com/aretw0/cartography/pkg/adapters/redis"
	"github.com/aretw0/cartography/pkg/adapters/source/breaker"
	"github.com/aretw0/cartography/pkg/adapters/source/fallback"
	"github.com/aretw0/cartography/pkg/adapters/source/llm"
	"github.com/aretw0/cartography/pkg/adapters/source/mock"
	"github.com/aretw0/cartography/pkg/adapters/source/process"
	"github.com/aretw0/cartography/pkg/adapters/source/scenario"
	"github.com/aretw0/cartography/pkg/domain"
	"github.com/aretw0/cartography/pkg/graph"
	"github.com/aretw0/cartography/pkg/persistence/middleware"
	"github.com/aretw0/cartography/pkg/ports"
	"github.com/aretw0/cartography/pkg/session"
	"golang.org/x/time/rate"
)

// NewLogger builds the application logger from the log section.
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(w, level, logging.Format(cfg.Format)), nil
}

// BuildSource assembles the step source chain described by cfg.
// LLM providers are wrapped in a circuit breaker and, when enabled, fall back
// to the mock source so a visualization always animates.
func BuildSource(cfg config.SourceConfig, logger *slog.Logger) (ports.StepSource, error) {
	switch cfg.Provider {
	case config.ProviderMock, config.ProviderAuto:
		// auto resolves to an LLM in ApplyEnv when a key is present.
		return mock.New(), nil

	case config.ProviderScenario:
		f, err := scenario.Load(cfg.Scenarios)
		if err != nil {
			return nil, err
		}
		return scenario.New(f, scenario.WithScenario(cfg.Scenario), scenario.WithLogger(logger)), nil

	case config.ProviderProcess:
		agents, err := process.LoadAgents(cfg.Agents)
		if err != nil {
			return nil, err
		}
		agent, ok := agents[cfg.Agent]
		if !ok {
			return nil, fmt.Errorf("%w: agent %q not found in %s", config.ErrInvalidConfig, cfg.Agent, cfg.Agents)
		}
		return process.New(agent,
			process.WithBaseDir(filepath.Dir(cfg.Agents)),
			process.WithLogger(logger),
		), nil

	case config.ProviderGemini, config.ProviderOpenAI:
		if cfg.APIKey == "" {
			if !cfg.Fallback {
				return nil, fmt.Errorf("%w: no API key for provider %s", config.ErrInvalidConfig, cfg.Provider)
			}
			logger.Warn("no API key configured, using mock source", "provider", cfg.Provider)
			return mock.New(), nil
		}
		return buildLLM(cfg, logger), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", config.ErrInvalidConfig, cfg.Provider)
}

func buildLLM(cfg config.SourceConfig, logger *slog.Logger) ports.StepSource {
	opts := []llm.Option{
		llm.WithModel(cfg.Model),
		llm.WithLogger(logger),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Temperature > 0 {
		opts = append(opts, llm.WithTemperature(cfg.Temperature))
	}
	if cfg.RateLimit > 0 {
		opts = append(opts, llm.WithRateLimit(rate.Limit(cfg.RateLimit), 1))
	}

	var src ports.StepSource
	if cfg.Provider == config.ProviderGemini {
		src = llm.NewGemini(cfg.APIKey, opts...)
	} else {
		src = llm.New(cfg.APIKey, opts...)
	}

	if cfg.Breaker {
		src = breaker.New(src, breaker.DefaultConfig(ports.SourceName(src)), breaker.WithLogger(logger))
	}
	if cfg.Fallback {
		src = fallback.New(src, mock.New(), fallback.WithLogger(logger))
	}
	return src
}

// BuildArchive opens the run archive, wrapped with redaction and encryption
// when configured. The returned close function is never nil.
func BuildArchive(ctx context.Context, cfg config.ArchiveConfig) (ports.RunStore, func() error, error) {
	store, closeFn, err := openArchive(ctx, cfg)
	if err != nil || store == nil {
		return store, closeFn, err
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			_ = closeFn()
			return nil, noop, fmt.Errorf("%w: archive.redact: %v", config.ErrInvalidConfig, err)
		}
		mws = append(mws, pii)
	}
	if cfg.EncryptionKey != "" {
		key, err := middleware.ParseKey(cfg.EncryptionKey)
		if err != nil {
			_ = closeFn()
			return nil, noop, fmt.Errorf("%w: archive.encryption_key: %v", config.ErrInvalidConfig, err)
		}
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = closeFn()
			return nil, noop, err
		}
		mws = append(mws, enc)
	}
	return middleware.Chain(store, mws...), closeFn, nil
}

func noop() error { return nil }

func openArchive(ctx context.Context, cfg config.ArchiveConfig) (ports.RunStore, func() error, error) {
	switch cfg.Backend {
	case config.ArchiveNone, "":
		return nil, noop, nil
	case config.ArchiveMemory:
		return memory.NewStore(), noop, nil
	case config.ArchiveFile:
		dir := cfg.Dir
		if dir == "" {
			dir = file.DefaultDir
		}
		return file.New(dir), noop, nil
	case config.ArchiveRedis:
		var opts []redis.Option
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		if cfg.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.TTL))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, noop, fmt.Errorf("redis archive unreachable at %s: %w", cfg.RedisAddr, err)
		}
		return store, store.Close, nil
	}
	return nil, noop, fmt.Errorf("%w: unknown archive backend %q", config.ErrInvalidConfig, cfg.Backend)
}

// ManagerOptions translates run and server settings into session manager options.
func ManagerOptions(cfg config.Config, archive ports.RunStore, logger *slog.Logger) []session.Option {
	opts := []session.Option{
		session.WithDefaultSteps(cfg.Run.Steps),
		session.WithChaining(domain.ChainPolicy(cfg.Run.Chaining)),
		session.WithMaxSessions(cfg.Server.MaxSessions),
		session.WithLogger(logger),
	}
	if strings.EqualFold(cfg.Run.NodeIDs, "sequential") {
		opts = append(opts, session.WithNodeIDs(graph.Sequential))
	}
	if archive != nil {
		opts = append(opts, session.WithArchive(archive))
	}
	return opts
}
