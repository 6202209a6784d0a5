package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"smartaudit/internal/ai"
	appsvc "smartaudit/internal/app"
	"smartaudit/internal/config"
	"smartaudit/internal/kv"
	"smartaudit/internal/pkg/logger"
	mysqlClient "smartaudit/internal/platform/mysql"
	rabbitmqClient "smartaudit/internal/platform/rabbitmq"
	redisClient "smartaudit/internal/platform/redis"
	sqliteClient "smartaudit/internal/platform/sqlite"
	"smartaudit/internal/repository"
	"smartaudit/internal/worker"
)

type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  kv.Store
	MQConn *amqp.Connection

	Dispatcher   *ai.Dispatcher
	ImportWorker *worker.ImportWorker

	Rules      *appsvc.RuleService
	References *appsvc.ReferenceService
	Reviews    *appsvc.ReviewService
	Distill    *appsvc.DistillService
	Settings   *appsvc.SettingsService

	StartedAt time.Time
}

// New loads the configuration and builds the application from it.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File, JSON: cfg.Log.JSON})
	if err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}
	return Build(ctx, cfg, log)
}

// Build opens the configured store and broker, wires the AI dispatcher and the
// services, and starts the import worker when the broker is enabled.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = store

	dispatcher, err := newDispatcher(ctx, cfg, log)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Dispatcher = dispatcher

	var publisher appsvc.ImportPublisher
	if cfg.RabbitMQ.Enabled {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ImportQueue)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.MQConn = mqConn
		publisher = rabbitmqClient.NewImportPublisher(mqConn, cfg.RabbitMQ.ImportQueue)
	}

	if err := a.WireServices(dispatcher, publisher); err != nil {
		_ = a.Close()
		return nil, err
	}

	if a.MQConn != nil {
		a.ImportWorker = worker.NewImportWorker(a.MQConn, a.References, cfg.RabbitMQ.ImportQueue, log.Named("import-worker"))
		if err := a.ImportWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start import worker failed: %w", err)
		}
	}

	log.Info("application ready",
		zap.String("store", cfg.Store.Driver),
		zap.Bool("async_import", a.MQConn != nil),
		zap.Bool("gemini_configured", cfg.Gemini.APIKey != ""))
	return a, nil
}

// WireServices builds the domain services on top of Store, chat and publisher.
// publisher may be nil, which disables asynchronous import.
func (a *App) WireServices(chat appsvc.Chatter, publisher appsvc.ImportPublisher) error {
	cfg := a.Config
	provider, err := ai.ParseProvider(cfg.AI.Provider)
	if err != nil {
		return fmt.Errorf("invalid ai.provider: %w", err)
	}
	language, err := ai.ParseLanguage(cfg.AI.Language)
	if err != nil {
		return fmt.Errorf("invalid ai.language: %w", err)
	}

	assistant := appsvc.NewAssistant(chat, a.Logger.Named("assistant"))
	ruleRepo := repository.NewRuleRepository(a.Store)
	refRepo := repository.NewReferenceRepository(a.Store)

	a.Settings = appsvc.NewSettingsService(repository.NewSettingsRepository(a.Store), appsvc.SettingsDefaults{
		Provider:         provider,
		Language:         language,
		DeepSeek:         ai.Credentials{APIKey: cfg.DeepSeek.APIKey, BaseURL: cfg.DeepSeek.BaseURL},
		MiniMax:          ai.Credentials{APIKey: cfg.MiniMax.APIKey, BaseURL: cfg.MiniMax.BaseURL},
		GeminiConfigured: cfg.Gemini.APIKey != "",
	})
	a.Rules = appsvc.NewRuleService(ruleRepo, assistant, a.Logger.Named("rules"))
	a.References = appsvc.NewReferenceService(refRepo, ruleRepo, a.Settings, assistant, publisher,
		cfg.Limits.ImportParallelism, a.Logger.Named("references"))
	a.Reviews = appsvc.NewReviewService(repository.NewReviewSessionRepository(a.Store), ruleRepo, refRepo,
		assistant, a.Logger.Named("reviews"))
	a.Distill = appsvc.NewDistillService(repository.NewDistillSessionRepository(a.Store), assistant,
		time.Duration(cfg.Limits.VisualInFlightTTLMS)*time.Millisecond, a.Logger.Named("distill"))
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Store.Driver {
	case "", config.StoreMemory:
		return kv.NewMemoryStore(), nil
	case config.StoreRedis:
		client, err := redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return nil, err
		}
		return kv.NewRedisStore(client, cfg.Redis.KeyPrefix), nil
	case config.StoreMySQL:
		db, err := mysqlClient.New(ctx, mysqlClient.Options{
			DSN:             cfg.MySQLDSN(),
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			ConnMaxLifetime: time.Duration(cfg.MySQL.ConnMaxLifetimeMinute) * time.Minute,
			LogSQL:          cfg.MySQL.LogSQL,
		})
		if err != nil {
			return nil, err
		}
		return kv.NewGormStore(db)
	case config.StoreSQLite:
		db, err := sqliteClient.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return kv.NewSQLiteStore(db)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

type reasoningModel interface {
	ai.Adapter
	ai.ImageGenerator
}

func newDispatcher(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ai.Dispatcher, error) {
	var gemini reasoningModel = ai.Unavailable{Err: ai.ErrGeminiNotConfigured}
	if cfg.Gemini.APIKey != "" {
		adapter, err := ai.NewGeminiAdapter(ctx, ai.GeminiConfig{
			APIKey:             cfg.Gemini.APIKey,
			BaseURL:            cfg.Gemini.BaseURL,
			HeavyModel:         cfg.Gemini.HeavyModel,
			LightModel:         cfg.Gemini.LightModel,
			ImageModel:         cfg.Gemini.ImageModel,
			ThinkingBudget:     cfg.Gemini.ThinkingBudget,
			DeepThinkingBudget: cfg.Gemini.DeepBudget,
		})
		if err != nil {
			return nil, err
		}
		gemini = adapter
	} else {
		log.Warn("gemini api key is not set, default and fallback calls will fail")
	}

	deepseekModel, minimaxModel := cfg.DeepSeek.Model, cfg.MiniMax.Model
	retrier := ai.NewRetrier(cfg.Retry.MaxRetries, cfg.InitialRetryDelay(), log.Named("retry"))
	return ai.NewDispatcher(gemini, gemini, retrier,
		ai.WithLogger(log.Named("dispatcher")),
		ai.WithPolicies(map[ai.Provider]ai.ContentPolicy{
			ai.ProviderGemini:   {MaxDocChars: cfg.Limits.GeminiDocChars, MaxContextItems: cfg.Limits.GeminiContextItems},
			ai.ProviderDeepSeek: {MaxDocChars: cfg.Limits.ChatDocChars, MaxContextItems: cfg.Limits.ChatContextItems},
			ai.ProviderMiniMax:  {MaxDocChars: cfg.Limits.ChatDocChars, MaxContextItems: cfg.Limits.ChatContextItems},
		}),
		ai.WithAdapterFactory(ai.ProviderDeepSeek, func(c ai.Credentials) ai.Adapter {
			return ai.NewDeepSeekAdapter(ai.ChatConfig{APIKey: c.APIKey, BaseURL: c.BaseURL, Model: deepseekModel}, nil)
		}),
		ai.WithAdapterFactory(ai.ProviderMiniMax, func(c ai.Credentials) ai.Adapter {
			return ai.NewMiniMaxAdapter(ai.ChatConfig{APIKey: c.APIKey, BaseURL: c.BaseURL, Model: minimaxModel}, nil)
		}),
	), nil
}

func (a *App) Close() error {
	var closeErr error
	if a.ImportWorker != nil {
		a.ImportWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
