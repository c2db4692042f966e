// Package app wires configuration, storage and services together for the
// command line front ends.
package app

import (
	"context"
	"fmt"
	"log"

	"chartkit/internal/config"
	"chartkit/internal/datasource/sources"
	"chartkit/internal/dbclient"
	"chartkit/internal/render"
	"chartkit/internal/secret"
	"chartkit/internal/service"
	"chartkit/internal/storage"
)

// App holds the opened database and the services built on it.
type App struct {
	Config *config.Config

	db      *storage.DB
	secrets secret.Store

	Views     *service.ViewService
	Dashboard *service.DashboardService
	Exports   *service.ExportService
}

// Open opens the view database and builds the services.
func Open(cfg *config.Config, emitter service.EventEmitter) (*App, error) {
	db, err := storage.New(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	secrets, err := secret.New(cfg.Secrets.Backend)
	if err != nil {
		db.Close()
		return nil, err
	}
	if emitter == nil {
		emitter = service.LogEmitter{}
	}

	if cfg.HTTP.Timeout > 0 {
		sources.DefaultHTTPTimeout = cfg.HTTP.Timeout
	}
	sources.SetConnectorProvider(&connectorProvider{cfg: cfg, secrets: secrets})

	views := service.NewViewService(storage.NewViewStore(db), emitter, cfg.Locale)
	a := &App{
		Config:    cfg,
		db:        db,
		secrets:   secrets,
		Views:     views,
		Dashboard: service.NewDashboardService(views),
		Exports:   service.NewExportService(storage.NewExportStore(db), views, emitter, renderSize(cfg)),
	}
	log.Printf("[APP] using %s", cfg.DatabasePath())
	return a, nil
}

// Close stops triggered exports and closes the database.
func (a *App) Close() error {
	a.Exports.Stop()
	return a.db.Close()
}

func renderSize(cfg *config.Config) render.Size {
	return render.Size{Width: cfg.Render.Width, Height: cfg.Render.Height}
}

// ── Database connections ───────────────────────────────────

// connectorProvider opens connections named in the config file, reading
// passwords from the secret store.
type connectorProvider struct {
	cfg     *config.Config
	secrets secret.Store
}

func (p *connectorProvider) OpenConnector(ctx context.Context, name string) (dbclient.Connector, error) {
	conn, ok := p.cfg.Connection(name)
	if !ok {
		return nil, fmt.Errorf("no connection named %q in config", name)
	}
	password, err := p.secrets.Get(conn.SecretKey())
	if err != nil {
		return nil, fmt.Errorf("read password for %s: %w", name, err)
	}
	c, err := dbclient.NewConnector(conn, string(password))
	if err != nil {
		return nil, err
	}
	if err := c.TestConnection(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	return c, nil
}

// SetPassword stores the password of a configured connection. The env
// backend is read-only, so this needs the keychain backend.
func (a *App) SetPassword(name string, password []byte) error {
	w, key, err := a.secretWriter(name)
	if err != nil {
		return err
	}
	if err := w.Set(key, password); err != nil {
		return err
	}
	log.Printf("[APP] stored password for connection %s", name)
	return nil
}

// DeletePassword removes the stored password of a configured connection.
func (a *App) DeletePassword(name string) error {
	w, key, err := a.secretWriter(name)
	if err != nil {
		return err
	}
	return w.Delete(key)
}

func (a *App) secretWriter(name string) (secret.Writer, string, error) {
	conn, ok := a.Config.Connection(name)
	if !ok {
		return nil, "", fmt.Errorf("no connection named %q in config", name)
	}
	w, ok := a.secrets.(secret.Writer)
	if !ok {
		return nil, "", fmt.Errorf("secrets backend %q is read-only: set %s instead",
			a.Config.Secrets.Backend, secret.EnvName(conn.SecretKey()))
	}
	return w, conn.SecretKey(), nil
}
