package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/five82/tarmac/internal/config"
	"github.com/five82/tarmac/internal/engine"
	"github.com/five82/tarmac/internal/gate"
	"github.com/five82/tarmac/internal/logging"
	"github.com/five82/tarmac/internal/metrics"
	"github.com/five82/tarmac/internal/prefs"
	"github.com/five82/tarmac/internal/ui"
)

// Options configure the tarmac application.
type Options struct {
	ConfigPath string // empty uses ~/.config/tarmac/config.toml
	PrefsPath  string // empty uses ~/.config/tarmac/prefs.toml
	EnvFile    string // empty uses .env in the working directory
}

// Run boots the console until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	log, flush, err := logging.New(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = flush() }()

	reg := metrics.New()

	records, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer records.Close()

	session, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	prompter := ui.NewSecretPrompter()
	g := gate.New(secretFor(cfg), session.store, prompter,
		gate.WithSessionKey(cfg.Gate.SessionID),
		gate.WithLogger(log),
		gate.WithMetrics(reg),
	)

	eng := engine.New(records.store, engine.WithLogger(log), engine.WithMetrics(reg))
	defer eng.Close()
	if err := eng.Subscribe(ctx); err != nil {
		log.Warnw("initial subscribe failed", "backend", records.name, "error", err)
	}

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Warnw("load prefs failed", "error", err)
	}

	log.Infow("console started",
		"backend", records.name,
		"fallback", records.fallback,
		"session", cfg.Gate.Session,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		defer cancel()
		return ui.Run(groupCtx, ui.Options{
			Context:   groupCtx,
			Engine:    eng,
			Gate:      g,
			Prompter:  prompter,
			Logger:    log,
			Backend:   records.name,
			Fallback:  records.fallback,
			LogPath:   cfg.Log.Path,
			Refresh:   cfg.UI.Refresh,
			Prefs:     userPrefs,
			PrefsPath: opts.PrefsPath,
		})
	})

	if addr := cfg.Metrics.Addr; addr != "" {
		group.Go(func() error {
			log.Infow("metrics listening", "addr", addr)
			return metrics.Serve(groupCtx, addr, metrics.Router(reg, healthFunc(eng)))
		})
	}

	err = group.Wait()
	log.Infow("console stopped", "error", err)
	return err
}

func loadConfig(opts Options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if opts.EnvFile != "" {
		cfg, err = config.LoadWithEnv(opts.ConfigPath, opts.EnvFile)
	} else {
		cfg, err = config.Load(opts.ConfigPath)
	}
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// healthFunc reports unhealthy once the push stream has failed repeatedly.
func healthFunc(eng *engine.Engine) metrics.HealthFunc {
	return func() error {
		snap := eng.Snapshot()
		if !snap.IsOffline() {
			return nil
		}
		if snap.LastError != nil {
			return snap.LastError
		}
		return errors.New("record store offline")
	}
}

func secretFor(cfg config.Config) gate.Secret {
	if cfg.Gate.SecretHash != "" {
		return gate.HashedSecret(cfg.Gate.SecretHash)
	}
	return gate.PlainSecret(cfg.Gate.Secret)
}
