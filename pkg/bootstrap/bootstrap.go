package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/caarlos0/env/v11"

	shared "github.com/ripixel/fitglue-community/pkg"
	"github.com/ripixel/fitglue-community/pkg/feed"
	infrapubsub "github.com/ripixel/fitglue-community/pkg/infrastructure/pubsub"
	"github.com/ripixel/fitglue-community/pkg/infrastructure/secrets"
	"github.com/ripixel/fitglue-community/pkg/pagination"
	fsstore "github.com/ripixel/fitglue-community/pkg/storage/firestore"
	"github.com/ripixel/fitglue-community/pkg/storage/sqlite"
)

const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
)

// devPageTokenKey signs page tokens for local SQLite runs with no secret configured.
const devPageTokenKey = "fitglue-dev-page-token-key"

// Config holds standard configuration for all services
type Config struct {
	ProjectID           string        `env:"GOOGLE_CLOUD_PROJECT" envDefault:"fitglue-project"`
	EnablePublish       bool          `env:"ENABLE_PUBLISH"`
	StoreBackend        string        `env:"STORE_BACKEND" envDefault:"firestore"`
	SQLitePath          string        `env:"SQLITE_PATH" envDefault:"fitglue-community.db"`
	PageSize            int           `env:"PAGE_SIZE" envDefault:"5"`
	MaxPageSize         int           `env:"MAX_PAGE_SIZE" envDefault:"50"`
	ReactionCommitDelay time.Duration `env:"REACTION_COMMIT_DELAY" envDefault:"2s"`
	PageTokenSecret     string        `env:"PAGE_TOKEN_SECRET" envDefault:"page_token_key"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	Port                string        `env:"PORT" envDefault:"8080"`
}

// Service holds initialized dependencies
type Service struct {
	DB       shared.Database
	Pub      shared.Publisher
	Secrets  shared.SecretStore
	Notifier shared.Notifier
	Feed     *feed.Service
	Config   *Config
	Logger   *slog.Logger
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no service could run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendFirestore, BackendSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendFirestore, BackendSQLite, c.StoreBackend)
	}
	if c.PageSize <= 0 || c.MaxPageSize <= 0 {
		return fmt.Errorf("page sizes must be positive (PAGE_SIZE=%d, MAX_PAGE_SIZE=%d)", c.PageSize, c.MaxPageSize)
	}
	if c.PageSize > c.MaxPageSize {
		return fmt.Errorf("PAGE_SIZE %d exceeds MAX_PAGE_SIZE %d", c.PageSize, c.MaxPageSize)
	}
	if c.ReactionCommitDelay <= 0 {
		return fmt.Errorf("REACTION_COMMIT_DELAY must be positive, got %s", c.ReactionCommitDelay)
	}
	return nil
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message.
// The component may come from the record or from a logger.With call.
type ComponentHandler struct {
	slog.Handler
	component string
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = a.Value.String()
			found = true
			return false
		}
		return true
	})

	if component != "" {
		newRecord := slog.NewRecord(r.Time, r.Level, fmt.Sprintf("[%s] %s", component, r.Message), r.PC)
		r.Attrs(func(a slog.Attr) bool {
			if !found || a.Key != "component" {
				newRecord.AddAttrs(a)
			}
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// WithAttrs lifts a component attribute out so it prefixes every message.
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	rest := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "component" {
			component = a.Value.String()
			continue
		}
		rest = append(rest, a)
	}
	return &ComponentHandler{Handler: h.Handler.WithAttrs(rest), component: component}
}

func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{Handler: h.Handler.WithGroup(name), component: h.component}
}

// ParseLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger creates a configured logger instance and makes it the default
func NewLogger(serviceName, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, GetSlogHandlerOptions(ParseLevel(level)))
	logger := slog.New(&ComponentHandler{Handler: handler})
	slog.SetDefault(logger)
	return logger.With("service", serviceName)
}

// NewService initializes all standard dependencies from the environment
func NewService(ctx context.Context) (*Service, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewServiceFromConfig(ctx, cfg)
}

// NewServiceFromConfig opens the configured store and publisher and assembles the feed service.
func NewServiceFromConfig(ctx context.Context, cfg *Config) (*Service, error) {
	logger := NewLogger("fitglue-community", cfg.LogLevel)
	logger.Info("Initializing service", "project_id", cfg.ProjectID, "store_backend", cfg.StoreBackend)

	var db shared.Database
	switch cfg.StoreBackend {
	case BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Error("SQLite init failed", "path", cfg.SQLitePath, "error", err)
			return nil, fmt.Errorf("sqlite init: %w", err)
		}
		db = store
	default:
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("Firestore init failed", "error", err)
			return nil, fmt.Errorf("firestore init: %w", err)
		}
		db = fsstore.NewStore(fsClient)
	}

	var pub shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("PubSub init failed", "error", err)
			db.Close()
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pub = infrapubsub.NewPubSubAdapter(psClient, logger)
		logger.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pub = &infrapubsub.LogPublisher{Logger: logger.With("component", "pubsub")}
		logger.Info("Pub/Sub: MOCK (LogPublisher)")
	}

	sec := &secrets.SecretsAdapter{Logger: logger, EnvOnly: cfg.StoreBackend == BackendSQLite}

	svc, err := Assemble(ctx, cfg, db, pub, sec, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return svc, nil
}

// Assemble builds the notifier, page token codec and feed service on top of
// already constructed infrastructure.
func Assemble(ctx context.Context, cfg *Config, db shared.Database, pub shared.Publisher, sec shared.SecretStore, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	key, err := sec.GetSecret(ctx, cfg.ProjectID, cfg.PageTokenSecret)
	if err != nil {
		if cfg.StoreBackend != BackendSQLite {
			return nil, fmt.Errorf("page token secret: %w", err)
		}
		logger.Warn("Page token secret unavailable, using development key", "secret", cfg.PageTokenSecret)
		key = devPageTokenKey
	}

	notifier := infrapubsub.NewEventNotifier(pub, logger)
	feedSvc := feed.NewService(db, notifier, pagination.NewTokenCodec([]byte(key)), feed.Options{
		PageSize:    cfg.PageSize,
		MaxPageSize: cfg.MaxPageSize,
		Logger:      logger,
	})

	return &Service{
		DB:       db,
		Pub:      pub,
		Secrets:  sec,
		Notifier: notifier,
		Feed:     feedSvc,
		Config:   cfg,
		Logger:   logger,
	}, nil
}

// Close releases the publisher, when it holds a client, and the store.
func (s *Service) Close() error {
	var errs []error
	if c, ok := s.Pub.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	return errors.Join(errs...)
}
