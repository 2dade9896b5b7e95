package main

import (
	"context"
	"fmt"
	"log/slog"

	basecampadapter "github.com/ericfisherdev/campnudge/internal/adapter/driven/basecamp"
	keyringadapter "github.com/ericfisherdev/campnudge/internal/adapter/driven/keyring"
	"github.com/ericfisherdev/campnudge/internal/adapter/driven/launchpad"
	sqliteadapter "github.com/ericfisherdev/campnudge/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/campnudge/internal/application"
	"github.com/ericfisherdev/campnudge/internal/config"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// runtime holds the adapters shared by every command that talks to the API.
type runtime struct {
	cfg       *config.Config
	db        *sqliteadapter.DB
	tokens    driven.TokenStore
	launchpad *launchpad.Client
	creds     *application.CredentialManager
}

// loadConfig reads configuration and checks the settings needed to reach
// Launchpad and Basecamp.
func loadConfig(configFile string) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireAPICredentials(); err != nil {
		return nil, err
	}
	slog.Info("config loaded",
		"db_path", cfg.DBPath,
		"account_id", cfg.AccountID,
		"token_backend", cfg.TokenBackend,
		"tokens_encrypted", cfg.HasSecretKey(),
	)
	return cfg, nil
}

// openDatabase opens the SQLite file and applies pending migrations.
func openDatabase(ctx context.Context, path string) (*sqliteadapter.DB, error) {
	db, err := sqliteadapter.NewDB(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		return nil, err
	}
	slog.Debug("database ready", "path", path)
	return db, nil
}

// newTokenStore selects the configured Token Store backend.
func newTokenStore(cfg *config.Config, db *sqliteadapter.DB) (driven.TokenStore, error) {
	switch cfg.TokenBackend {
	case config.TokenBackendKeyring:
		store, err := keyringadapter.Open(cfg.KeyringDir, cfg.KeyringPassphrase)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.TokenBackendSQLite:
		return sqliteadapter.NewTokenRepo(db, cfg.SecretKey), nil
	default:
		return nil, fmt.Errorf("unknown token backend %q", cfg.TokenBackend)
	}
}

// newRuntime wires the database, Token Store and Credential Manager. The
// caller must call close.
func newRuntime(ctx context.Context, configFile string) (*runtime, error) {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}

	db, err := openDatabase(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}

	tokens, err := newTokenStore(cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	lp := launchpad.NewClient(cfg.LaunchpadURL, launchpad.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	}, cfg.RequestTimeout)

	return &runtime{
		cfg:       cfg,
		db:        db,
		tokens:    tokens,
		launchpad: lp,
		creds:     application.NewCredentialManager(tokens, lp, cfg.TokenMaxAge),
	}, nil
}

// basecampClient loads the stored credential and builds the API client.
// A missing credential is fatal: run `campnudge serve` and authorize first.
func (r *runtime) basecampClient(ctx context.Context) (*basecampadapter.Client, error) {
	if err := r.creds.Load(ctx); err != nil {
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	gw, err := basecampadapter.NewGateway(r.cfg.APIBaseURL, r.cfg.AccountID, r.cfg.UserAgent, r.creds, r.cfg.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return basecampadapter.NewClient(gw), nil
}

func (r *runtime) close() {
	if err := r.db.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
