package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/rubiojr/cvsearch/pkg/api"
	"github.com/rubiojr/cvsearch/pkg/config"
	"github.com/rubiojr/cvsearch/pkg/maintenance"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP search API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Listen address, overrides [server] address",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("address"))
		},
	}
}

// serve runs the API until SIGINT/SIGTERM. The [search] section is reloaded
// on SIGHUP and whenever the config file changes.
func serve(ctx context.Context, configPath, address string) error {
	e, err := loadEngine(configPath, engineOptions{live: true})
	if err != nil {
		return err
	}
	defer e.close()

	if address == "" {
		address = e.cfg.Server.Address
	}

	srv := &http.Server{
		Addr:         address,
		Handler:      api.NewServer(e.search, e.recorder, e.hub, e.store).Handler(),
		ReadTimeout:  e.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: e.cfg.Server.WriteTimeout.Duration,
	}

	maint := maintenance.NewScheduler(e.store, e.cfg.Server.OptimizeInterval.Duration)
	if err := maint.Start(ctx); err != nil {
		return fmt.Errorf("starting maintenance: %w", err)
	}
	defer maint.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on http://%s (database %s)", address, e.store.Path())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			logger.Infof("watching config file for changes: %s", configPath)
		}
		events = watcher.Events
		watchErrors = watcher.Errors
	}

	for {
		select {
		case err, ok := <-errCh:
			if ok {
				return fmt.Errorf("serving: %w", err)
			}
			return nil
		case <-ctx.Done():
			return shutdown(srv, e.cfg.Server.ShutdownTimeout.Duration)
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				logger.Infof("received SIGHUP, reloading configuration")
				reloadSearchConfig(e, configPath)
			default:
				logger.Infof("shutting down")
				return shutdown(srv, e.cfg.Server.ShutdownTimeout.Duration)
			}
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			logger.Infof("config file changed: %s (event: %s)", event.Name, event.Op)

			// Editors often replace the file; watch the new one.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("config file was removed and not replaced, keeping current settings")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reloadSearchConfig(e, configPath)
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}

// reloadSearchConfig swaps in the [search] section of the config file. Other
// sections only take effect on restart. An invalid file keeps the current
// settings.
func reloadSearchConfig(e *engine, configPath string) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Errorf("failed to reload configuration: %v", err)
		return
	}

	e.search.SetOptions(cfg.SearchOptions())
	if cfg.DBPath() != e.cfg.DBPath() || cfg.Server != e.cfg.Server ||
		cfg.Analytics != e.cfg.Analytics || cfg.Search.Workers != e.cfg.Search.Workers {
		logger.Warnf("settings outside [search] changed; restart to apply them")
	}
	logger.Infof("search configuration reloaded")
}

func shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
