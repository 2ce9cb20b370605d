// Package app wires configuration into the conversation components shared
// by the HTTP server and the worker manager.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"aivy-conversation/internal/aivy/intent"
	"aivy-conversation/internal/aivy/keywords"
	"aivy-conversation/internal/aivy/llm"
	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/aivy/prioritizer"
	"aivy-conversation/internal/aivy/retrieval"
	"aivy-conversation/internal/aivy/state"
	"aivy-conversation/internal/common/config"
	"aivy-conversation/internal/common/database"
	"aivy-conversation/internal/common/logger"
)

// Check is a named dependency check for readiness endpoints.
type Check struct {
	Name  string
	Check func(ctx context.Context) error
}

// Components are the long-lived collaborators built from configuration.
type Components struct {
	Store       memory.Store
	Memory      *memory.Memory
	Recorder    *memory.Recorder
	Analytics   memory.Analytics
	Retriever   retrieval.Retriever
	Classifier  *intent.Classifier
	Prioritizer *prioritizer.Prioritizer
	Generator   llm.Generator
	Checks      []Check

	closers []func() error
}

// RetryWithBackoff runs operation up to maxRetries times, doubling the delay
// after each failure.
func RetryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// Build connects to the configured backends and assembles the components.
// Connection attempts are retried; the first unrecoverable error is returned
// after closing whatever was already opened.
func Build(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, log logger.Logger) (*Components, error) {
	c, err := build(ctx, &Components{}, cfg, zapLog, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// build fills c in place and returns it even on failure so Build can close
// what was opened.
func build(ctx context.Context, c *Components, cfg *config.Config, zapLog *zap.Logger, log logger.Logger) (*Components, error) {
	var err error

	matcher := keywords.NewMatcher(keywords.ParseMode(cfg.Conversation.KeywordMatching))
	c.Classifier = intent.NewClassifier(matcher)
	c.Prioritizer = prioritizer.New(matcher)

	var db *sql.DB
	switch cfg.Database.Driver {
	case config.StorageDriverMemory:
		store := memory.NewInMemoryStore()
		c.Store = store
		c.Analytics = store
		zapLog.Info("Using in-memory session store")
	default:
		var pg *database.PostgresClient
		err = RetryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			return c, err
		}
		c.closers = append(c.closers, pg.Close)
		c.Checks = append(c.Checks, Check{Name: "postgres", Check: pg.Ping})
		zapLog.Info("PostgreSQL connected successfully")

		db = pg.DB
		c.Store = memory.NewPostgresStore(db, log)
		c.Analytics = memory.NewPostgresAnalytics(db)
	}

	if cfg.Conversation.CacheEnabled {
		var rc *database.RedisClient
		err = RetryWithBackoff(func() error {
			var err error
			rc, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return rc.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			return c, err
		}
		c.closers = append(c.closers, rc.Close)
		c.Checks = append(c.Checks, Check{Name: "redis", Check: rc.Ping})
		zapLog.Info("Redis connected successfully")

		c.Store = cachedStore(c.Store, rc.Client, cfg, log)
	}

	llmCfg := llm.ConfigFromApp(cfg)
	client := llm.NewClient(llmCfg)
	c.Generator = llm.NewOpenAIGenerator(client, llmCfg, log)

	c.Retriever, err = buildRetriever(ctx, cfg, db, llm.NewOpenAIEmbedder(client, llmCfg), zapLog, log, c)
	if err != nil {
		return c, err
	}

	c.Memory = memory.New(c.Store, cfg.Conversation.HistoryLimit, log)
	c.Recorder = memory.NewRecorder(c.Store, state.NewUpdater(matcher), log)
	return c, nil
}

func cachedStore(inner memory.Store, rdb redis.Cmdable, cfg *config.Config, log logger.Logger) memory.Store {
	return memory.NewCachedStore(inner, rdb, config.GetDuration(cfg.Conversation.SessionCacheTTL), log)
}

func buildRetriever(ctx context.Context, cfg *config.Config, db *sql.DB, embedder retrieval.Embedder, zapLog *zap.Logger, log logger.Logger, c *Components) (retrieval.Retriever, error) {
	opts := retrieval.OptionsFromConfig(cfg.Retrieval)
	timeout := config.GetDuration(cfg.Retrieval.Timeout)

	switch cfg.Retrieval.Backend {
	case config.RetrievalBackendNone:
		zapLog.Info("Knowledge retrieval disabled")
		return retrieval.Nop{}, nil
	case config.RetrievalBackendElasticsearch:
		var es *database.ElasticsearchClient
		err := RetryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			return nil, err
		}
		c.Checks = append(c.Checks, Check{Name: "elasticsearch", Check: es.Ping})
		zapLog.Info("Elasticsearch connected successfully")
		return retrieval.WithTimeout(retrieval.NewElasticsearchRetriever(es.Client, cfg.Retrieval.Index, opts, log), timeout), nil
	default:
		if db == nil {
			return nil, fmt.Errorf("retrieval backend %q needs a postgres database", cfg.Retrieval.Backend)
		}
		return retrieval.WithTimeout(retrieval.NewVectorRetriever(db, embedder, opts, log), timeout), nil
	}
}

// Close releases every connection Build opened, in reverse order. It is
// safe on a nil receiver.
func (c *Components) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		_ = c.closers[i]()
	}
	c.closers = nil
}
