package sources

import (
	"context"
	"fmt"

	"chartkit/internal/datasource"
	"chartkit/internal/dbclient"
)

// ── Database Source ────────────────────────────────────────
// Reads a table from a read query against a named connection.

// ConnectorProvider opens a connector for a configured connection name.
// The app layer implements this and injects it at startup.
type ConnectorProvider interface {
	OpenConnector(ctx context.Context, name string) (dbclient.Connector, error)
}

var connectorProvider ConnectorProvider

// SetConnectorProvider is called by the app at startup.
func SetConnectorProvider(p ConnectorProvider) { connectorProvider = p }

const fetchSize = 500

type databaseSource struct{}

func init() { datasource.RegisterSource(&databaseSource{}) }

func (s *databaseSource) Spec() datasource.SourceSpec {
	return datasource.SourceSpec{
		Type:  "database",
		Label: "Database Query",
		ConfigFields: []datasource.ConfigField{
			{Key: "connection", Label: "Connection", Type: "string", Required: true, Help: "Name of a connection from the config file"},
			{Key: "query", Label: "Query", Type: "textarea", Required: true, Help: "SELECT statement, or a JSON find/aggregate for mongodb"},
		},
	}
}

func openConnector(ctx context.Context, cfg datasource.SourceConfig) (dbclient.Connector, string, error) {
	name := cfg.String("connection")
	query := cfg.String("query")
	if name == "" || query == "" {
		return nil, "", fmt.Errorf("connection and query are required")
	}
	if connectorProvider == nil {
		return nil, "", fmt.Errorf("database provider not initialized")
	}
	conn, err := connectorProvider.OpenConnector(ctx, name)
	if err != nil {
		return nil, "", fmt.Errorf("open connection %q: %w", name, err)
	}
	return conn, query, nil
}

func (s *databaseSource) Discover(ctx context.Context, cfg datasource.SourceConfig) ([]string, error) {
	conn, query, err := openConnector(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	page, err := conn.Query(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	return page.Columns, nil
}

func (s *databaseSource) Read(ctx context.Context, cfg datasource.SourceConfig) (<-chan datasource.RawRow, <-chan error) {
	out := make(chan datasource.RawRow, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		conn, query, err := openConnector(ctx, cfg)
		if err != nil {
			errCh <- err
			return
		}
		defer conn.Close()

		page, err := conn.Query(ctx, query, fetchSize)
		if err != nil {
			errCh <- fmt.Errorf("query: %w", err)
			return
		}
		if !send(ctx, out, datasource.HeaderRow(page.Columns)) || !emitPage(ctx, out, page) {
			errCh <- ctx.Err()
			return
		}

		for page.HasMore {
			page, err = conn.FetchMore(ctx, fetchSize)
			if err != nil {
				errCh <- fmt.Errorf("fetch more: %w", err)
				return
			}
			if !emitPage(ctx, out, page) {
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return out, errCh
}

func emitPage(ctx context.Context, out chan<- datasource.RawRow, page *dbclient.QueryPage) bool {
	for _, row := range page.Rows {
		if !send(ctx, out, datasource.RawRow{Fields: page.Columns, Values: row}) {
			return false
		}
	}
	return true
}
