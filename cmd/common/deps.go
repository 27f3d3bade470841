// Package common wires shared dependencies for the CLI commands.
package common

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/cafecrawl/internal/browser"
	"github.com/jonesrussell/cafecrawl/internal/config"
	"github.com/jonesrussell/cafecrawl/internal/crawler"
	"github.com/jonesrussell/cafecrawl/internal/database"
	"github.com/jonesrussell/cafecrawl/internal/feed"
	"github.com/jonesrussell/cafecrawl/internal/logger"
	"github.com/jonesrussell/cafecrawl/internal/notify"
	"github.com/jonesrussell/cafecrawl/internal/session"
	"github.com/jonesrussell/cafecrawl/internal/sources"
)

// Core holds the dependencies every command starts from.
type Core struct {
	Config *config.Config
	Logger logger.Interface
}

// NewCore loads configuration and builds the logger.
func NewCore() (*Core, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.GetLoggerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &Core{Config: cfg, Logger: log}, nil
}

// OpenStore connects to Postgres, ensures the schema, and returns the post
// repository. The caller owns closing the returned DB.
func OpenStore(ctx context.Context, core *Core) (*sqlx.DB, *database.PostRepository, error) {
	db, err := database.NewPostgresConnection(core.Config.GetDatabaseConfig())
	if err != nil {
		return nil, nil, err
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	repo := database.NewPostRepository(db, core.Config.GetHarvestConfig().InsertChunkSize, core.Logger)
	return db, repo, nil
}

// LoadSources reads the configured sources file.
func LoadSources(core *Core) ([]sources.Config, error) {
	return sources.Load(core.Config.GetHarvestConfig().SourcesFile, core.Logger)
}

// NewScheduler builds the harvest scheduler and the browser driver behind
// it. The caller owns closing the returned driver.
func NewScheduler(
	core *Core,
	store database.PostStore,
	srcs []sources.Config,
) (*crawler.Scheduler, browser.Driver, error) {
	if err := core.Config.GetAuthConfig().Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid auth configuration: %w", err)
	}

	driver := browser.NewChromeDriver(core.Config.GetBrowserConfig(), core.Logger)

	sched, err := crawler.NewScheduler(crawler.Params{
		Driver:         driver,
		SessionFactory: sessionFactory(core),
		Store:          store,
		Notifier:       notify.NewWebhookNotifier(core.Config.GetNotifyConfig(), core.Logger),
		Feeds:          feed.NewClient(resty.New(), core.Logger),
		Sources:        srcs,
		Config:         core.Config.GetHarvestConfig(),
		Logger:         core.Logger,
	})
	if err != nil {
		driver.Close()
		return nil, nil, err
	}

	return sched, driver, nil
}

// sessionFactory builds per-source session managers sharing the configured
// credential set and cookie file.
func sessionFactory(core *Core) crawler.SessionFactory {
	authCfg := core.Config.GetAuthConfig()
	return func(page browser.Page, src *sources.Config) crawler.Sessioner {
		var store session.TokenStore
		if authCfg.CookieFile != "" {
			store = session.NewFileTokenStore(authCfg.CookieFile)
		}
		return session.NewManager(page, src, authCfg, store, core.Logger)
	}
}
