package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/skill-matcher/internal/aptitude"
	"github.com/spigell/skill-matcher/internal/engine"
	"github.com/spigell/skill-matcher/internal/extraction"
	"github.com/spigell/skill-matcher/internal/index"
	"github.com/spigell/skill-matcher/internal/metrics"
	"github.com/spigell/skill-matcher/internal/secrets"
)

// buildEngine wires the engine. A nil store means the PostgreSQL aptitude store.
// The returned func releases the resources it opened.
func buildEngine(ctx context.Context, cfg *Config, log *zap.Logger, m *metrics.Metrics, store aptitude.Store) (*engine.Service, func(), error) {
	closer := func() {}

	gateway, err := newIndexClient(cfg.Index, log, m)
	if err != nil {
		return nil, closer, err
	}

	if store == nil {
		pg, err := connectAptitudes(ctx, cfg.Aptitudes, log)
		if err != nil {
			return nil, closer, err
		}
		store = pg
		closer = pg.Close
	}

	extractor := extraction.New(log.Named("extraction"), m, extraction.Options{
		TikaURL:     cfg.Extraction.TikaURL,
		MaxFileSize: cfg.Extraction.MaxFileSize,
	})

	eng, err := engine.New(engine.Config{
		IndexNamePrefix:        cfg.Index.Prefix,
		DefaultThresholdScore:  cfg.Matching.ThresholdScore,
		PercolationIndexSuffix: cfg.Index.PercolationSuffix,
		MaxHits:                cfg.Index.MaxHits,
		MaxPercolationMatches:  cfg.Index.MaxPercolationMatches,
		RescaleInIndex:         cfg.Index.Rescale,
	}, engine.Deps{
		Logger:    log.Named("engine"),
		Metrics:   m,
		Store:     store,
		Gateway:   gateway,
		Extractor: extractor,
	})
	if err != nil {
		closer()
		return nil, func() {}, err
	}

	return eng, closer, nil
}

func newIndexClient(cfg *IndexConfig, log *zap.Logger, m *metrics.Metrics) (*index.Client, error) {
	client := index.New(log.Named("index"), cfg.URL, m)
	client.UserAgent = fmt.Sprintf("%s/%s", app, version)
	client.Username = cfg.Username
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}

	password, err := secrets.Optional(secrets.Source{
		Name:  "index password",
		Value: cfg.Password,
		Env:   "ELASTIC_PASSWORD",
		File:  cfg.PasswordFile,
	})
	if err != nil {
		return nil, err
	}
	client.Password = password

	return client, nil
}

func connectAptitudes(ctx context.Context, cfg *AptitudesConfig, log *zap.Logger) (*aptitude.PostgresStore, error) {
	dsn, err := secrets.Load(secrets.Source{
		Name:  "aptitudes database url",
		Value: cfg.DatabaseURL,
		Env:   "DATABASE_URL",
		File:  cfg.DatabaseURLFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set aptitudes.database-url-file or SKILL_MATCHER_APTITUDES_DATABASE_URL)", err)
	}

	store, err := aptitude.Connect(ctx, log.Named("aptitudes"), dsn)
	if err != nil {
		return nil, err
	}

	return store, nil
}
