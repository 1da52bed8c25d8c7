package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/email"
	"github.com/sells-group/leadgen-cli/internal/extract"
	"github.com/sells-group/leadgen-cli/internal/pipeline"
	"github.com/sells-group/leadgen-cli/internal/store"
	"github.com/sells-group/leadgen-cli/pkg/resend"
)

// initStore opens and migrates the configured datastore.
func initStore(ctx context.Context) (store.Store, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" && cfg.Store.Driver == "sqlite" {
		dsn = "leadgen.db"
	}
	st, err := store.Open(ctx, cfg.Store.Driver, dsn, store.Options{MaxConns: cfg.Store.MaxConns})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initOptionalStore is initStore for commands that still work without a
// database: generation runs then skip persistence.
func initOptionalStore(ctx context.Context) store.Store {
	if cfg.Store.DatabaseURL == "" && cfg.Store.Driver != "sqlite" {
		zap.L().Warn("no database configured, leads will not be saved")
		return nil
	}
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("datastore unavailable, leads will not be saved", zap.Error(err))
		return nil
	}
	return st
}

// initGenerator builds a Generator over st with the production providers.
func initGenerator(st store.Store) (*pipeline.Generator, error) {
	prompts, err := extract.NewPrompts()
	if err != nil {
		return nil, eris.Wrap(err, "load prompts")
	}
	return pipeline.NewGenerator(cfg, pipeline.DefaultProviders(cfg, prompts), st), nil
}

// initSender builds the email sender from config.
func initSender() *email.Sender {
	return email.NewSender(cfg.Resend.From, cfg.Resend.Key, func(apiKey string) resend.Client {
		return resend.NewClient(apiKey, resend.WithBaseURL(cfg.Resend.BaseURL))
	})
}
