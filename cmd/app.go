package cmd

import (
	"database/sql"
	"fmt"

	"github.com/Doudousmyle42/mangatracker/internal/config"
	"github.com/Doudousmyle42/mangatracker/internal/database"
	"github.com/Doudousmyle42/mangatracker/internal/library"
	"github.com/Doudousmyle42/mangatracker/internal/metrics"
	"github.com/Doudousmyle42/mangatracker/internal/providers"
	"github.com/Doudousmyle42/mangatracker/internal/providers/generic"
	"github.com/Doudousmyle42/mangatracker/internal/ui"
	"github.com/Doudousmyle42/mangatracker/internal/util"
)

// app holds everything a command needs once the config is resolved.
type app struct {
	cfg     *config.Config
	log     *ui.Logger
	metrics *metrics.Metrics

	scraper  *generic.Scraper
	renderer *generic.Renderer

	db      *sql.DB
	service *library.Service
}

type appOptions struct {
	config.Options

	// withLibrary opens the database and builds the service.
	withLibrary bool
}

func newApp(opts appOptions) (*app, error) {
	opts.IgnoreConfig = flagIgnoreConfig
	opts.Debug = opts.Debug || flagDebug
	if opts.Database == "" {
		opts.Database = flagDatabase
	}

	cfg, usedPath, err := config.LoadMerged(opts.Options)
	if err != nil {
		return nil, err
	}

	log, err := ui.NewLoggerWithOptions(ui.LogOptions{Debug: cfg.Debug, File: cfg.LogFile})
	if err != nil {
		return nil, err
	}
	log.Debugf("config: %s", usedPath)

	a := &app{cfg: cfg, log: log, metrics: metrics.New()}

	session, err := util.NewSession(util.HTTPClientOptions{
		Timeout:          cfg.Timeout(),
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      log,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	a.scraper = generic.NewScraper(session, cfg.Rules, log, a.metrics)
	a.renderer = generic.NewRenderer(a.scraper, generic.RenderOptions{
		ExecPath:  cfg.Render.ExecPath,
		Headless:  cfg.Render.Headless,
		UserAgent: util.PickUserAgent(cfg.UserAgent),
		Timeout:   cfg.RenderTimeout(),
		Settle:    cfg.RenderSettle(),
	}, log)

	if !opts.withLibrary {
		return a, nil
	}

	dbCfg := database.Config{Path: cfg.Database}
	if err := database.EnsureDataDir(dbCfg); err != nil {
		a.Close()
		return nil, fmt.Errorf("cannot create data directory: %w", err)
	}

	a.db, err = database.Open(dbCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.service = library.NewService(library.NewStore(a.db), a.extractor(), log, a.metrics)

	return a, nil
}

// extractor is the static scraper, falling back to the browser when the
// page is blocked or has no usable cover and rendering is enabled.
func (a *app) extractor() providers.Extractor {
	if !a.cfg.Render.Enabled {
		return a.scraper
	}

	return providers.WithFallback(a.scraper, a.renderer, a.log)
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warnf("close database: %v", err)
		}
	}
	_ = a.log.Close()
}
