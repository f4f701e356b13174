package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/DoyleJ11/flags-quiz-client/internal/store"
)

// stores is the optional persistence of one run. Without --database-url
// preferences live in memory and results are not kept.
type stores struct {
	results *store.Results
	prefs   store.Prefs
	close   func() error
}

func openStores(ctx context.Context, cfg *Config, log *zap.Logger) (*stores, error) {
	if cfg.databaseURL == "" {
		return &stores{prefs: store.NewMemoryPrefs(), close: func() error { return nil }}, nil
	}

	results, err := store.NewResults(ctx, cfg.databaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := results.Migrate(ctx); err != nil {
		results.Close()
		return nil, err
	}
	prefs, err := store.OpenPrefs(cfg.databaseURL)
	if err != nil {
		results.Close()
		return nil, err
	}

	return &stores{
		results: results,
		prefs:   prefs,
		close: func() error {
			results.Close()
			return prefs.Close()
		},
	}, nil
}

// resolveUsername falls back to the remembered name when none was given.
func (s *stores) resolveUsername(ctx context.Context, cfg *Config, log *zap.Logger) {
	if cfg.username != "" {
		return
	}
	name, ok, err := s.prefs.Get(ctx, store.PrefUsername)
	if err != nil {
		log.Warn("reading remembered username", zap.Error(err))
		return
	}
	if ok {
		cfg.username = name
	}
}

func (s *stores) remember(ctx context.Context, key, value string, log *zap.Logger) {
	if err := s.prefs.Set(ctx, key, value); err != nil {
		log.Warn("saving preference", zap.String("key", key), zap.Error(err))
	}
}
