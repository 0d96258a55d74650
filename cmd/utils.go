package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/panjf2000/ants/v2"

	"github.com/rubiojr/cvsearch/pkg/config"
	"github.com/rubiojr/cvsearch/pkg/history"
	"github.com/rubiojr/cvsearch/pkg/log"
	"github.com/rubiojr/cvsearch/pkg/realtime"
	"github.com/rubiojr/cvsearch/pkg/search"
	"github.com/rubiojr/cvsearch/pkg/storage"
)

var logger = log.ForService("cli")

// engine bundles the collaborators every search command needs.
type engine struct {
	cfg      *config.Config
	store    *storage.Store
	recorder *history.Recorder
	search   *search.Service
	hub      *realtime.Hub
	pool     *ants.Pool
}

// engineOptions tunes newEngine.
type engineOptions struct {
	// live publishes recorded searches on a realtime.Hub.
	live bool
}

// openStore opens the configured database, failing when it does not exist or
// has pending migrations.
func openStore(cfg *config.Config) (*storage.Store, error) {
	dbPath := cfg.DBPath()
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database %s does not exist, run 'cvsearch init' first", dbPath)
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := store.CheckMigrations(); err != nil {
		closeStore(store)
		return nil, err
	}
	return store, nil
}

func closeStore(store *storage.Store) {
	if err := store.Close(); err != nil {
		logger.Warnf("failed to close database: %v", err)
	}
}

// loadEngine loads the configuration at configPath and wires the store, the
// history recorder and the search service. Callers must call close.
func loadEngine(configPath string, opts engineOptions) (*engine, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	e := &engine{cfg: cfg, store: store}

	recOpts := []history.Option{
		history.WithOptions(cfg.HistoryOptions()),
	}
	searchOpts := cfg.SearchOptions()
	recOpts = append(recOpts, history.WithAnalyzer(searchOpts.Analyzer))
	if opts.live {
		e.hub = realtime.NewHub(0)
		recOpts = append(recOpts, history.WithHub(e.hub))
	}
	e.recorder = history.NewRecorder(store, recOpts...)

	svcOpts := []search.Option{search.WithOptions(searchOpts)}
	if cfg.Search.Workers > 0 {
		pool, err := ants.NewPool(cfg.Search.Workers)
		if err != nil {
			closeStore(store)
			return nil, fmt.Errorf("creating scoring pool: %w", err)
		}
		e.pool = pool
		svcOpts = append(svcOpts, search.WithPool(pool))
	}
	e.search = search.NewService(store, e.recorder, svcOpts...)

	return e, nil
}

func (e *engine) close() {
	if e.pool != nil {
		e.pool.Release()
	}
	closeStore(e.store)
}

// CheckPendingMigrations fails when the configured database has migrations
// that were not applied yet. A missing database has nothing pending.
func CheckPendingMigrations(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if _, err := os.Stat(cfg.DBPath()); os.IsNotExist(err) {
		return nil
	}

	store, err := storage.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer closeStore(store)

	return store.CheckMigrations()
}

// parseCandidateID converts a --candidate flag value; empty means no filter.
func parseCandidateID(v string) (*int64, error) {
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid candidate id %q", v)
	}
	return &id, nil
}
