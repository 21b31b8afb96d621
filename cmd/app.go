package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/lehigh-university-libraries/refer/config"
	"github.com/lehigh-university-libraries/refer/convert"
	"github.com/lehigh-university-libraries/refer/crosswalk"
	"github.com/lehigh-university-libraries/refer/discovery"
	"github.com/lehigh-university-libraries/refer/item"
	"github.com/lehigh-university-libraries/refer/store/pgstore"
	"github.com/lehigh-university-libraries/refer/virtual"
)

// app wires the configured collaborators together.
type app struct {
	cfg            *config.Config
	store          item.Store
	searcher       discovery.Searcher
	configurations discovery.ConfigurationService
	registry       *crosswalk.Registry
	close          func()
}

// storeFlags override the store section of the configuration. They are
// shared by every command that opens the store.
var storeFlags = newStoreFlags()

func newStoreFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("store", pflag.ContinueOnError)
	fs.String("store", "", "Record store driver, memory or postgres (default: store.driver)")
	fs.String("dsn", "", "PostgreSQL connection string (default: store.dsn)")
	return fs
}

func loadConfig() (*config.Config, error) {
	v := config.New()
	if err := v.BindPFlag("store.driver", storeFlags.Lookup("store")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("store.dsn", storeFlags.Lookup("dsn")); err != nil {
		return nil, err
	}
	if err := config.ReadFile(v, cfgFile); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// openStore opens the record store and its search index.
func openStore(ctx context.Context, cfg *config.Config) (item.Store, discovery.Index, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pg, err := pgstore.Open(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return pg, pg, pg.Close, nil
	default:
		ms := item.NewMemoryStore()
		if cfg.Store.Path != "" {
			loaded, err := item.LoadFile(cfg.Store.Path)
			if err != nil {
				return nil, nil, nil, err
			}
			ms = loaded
		}
		slog.Debug("loaded records", "count", ms.Len(), "path", cfg.Store.Path)
		return ms, discovery.NewMemoryIndex(ms), func() {}, nil
	}
}

func loadConfigurations(cfg *config.Config) (*discovery.Registry, error) {
	if cfg.Discovery == "" {
		return discovery.NewRegistry(), nil
	}
	return discovery.LoadFile(cfg.Discovery)
}

// buildCrosswalk creates the crosswalk described by cw.
func buildCrosswalk(cfg *config.Config, cw config.CrosswalkConfig, deps crosswalk.Deps) (*crosswalk.Crosswalk, error) {
	conv, err := convert.Build(cw.Converters)
	if err != nil {
		return nil, fmt.Errorf("crosswalk %s: %w", cw.Name, err)
	}
	post, err := convert.BuildPostProcessor(cw.PostProcessors)
	if err != nil {
		return nil, fmt.Errorf("crosswalk %s: %w", cw.Name, err)
	}
	deps.Converter = conv
	deps.PostProcessor = post
	return crosswalk.New(cfg.CrosswalkConfig(cw), deps)
}

// newApp loads the configuration and every crosswalk.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	configurations, err := loadConfigurations(cfg)
	if err != nil {
		return nil, err
	}

	store, index, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:            cfg,
		store:          store,
		searcher:       discovery.NewSearcher(index, cfg.Store.PageSize),
		configurations: configurations,
		registry:       crosswalk.NewRegistry(),
		close:          closeStore,
	}
	var errs []error
	for _, cw := range cfg.Crosswalks {
		c, err := buildCrosswalk(cfg, cw, a.deps())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := a.registry.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		closeStore()
		return nil, err
	}
	return a, nil
}

func (a *app) deps() crosswalk.Deps {
	deps := crosswalk.Deps{
		Virtual:        virtual.Default(),
		Configurations: a.configurations,
		Logger:         slog.Default(),
	}
	if a.searcher != nil {
		deps.Searcher = a.searcher
	}
	return deps
}
