package dbclient

import (
	"context"
	"fmt"

	"chartkit/internal/domain"
)

// QueryPage is a batch of rows fetched from a query cursor.
type QueryPage struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	TotalFetched int      `json:"totalFetched"` // total rows fetched so far
	HasMore      bool     `json:"hasMore"`      // cursor has more rows
}

// Connector abstracts read access to an external database. Charts only
// ever read, so write statements are rejected before they reach the
// server.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Query runs a read query, opens a cursor and fetches fetchSize rows.
	Query(ctx context.Context, query string, fetchSize int) (*QueryPage, error)

	// FetchMore continues reading from the open cursor.
	FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error)

	// Close closes the connection and any open cursors.
	Close() error
}

// SupportedDriver reports whether NewConnector can open d.
func SupportedDriver(d domain.DatabaseDriver) bool {
	switch d {
	case domain.DatabaseDriverSQLite, domain.DatabaseDriverMySQL,
		domain.DatabaseDriverPostgres, domain.DatabaseDriverMongoDB:
		return true
	}
	return false
}

// NewConnector creates a Connector for the given database connection.
// The password must be provided separately (from the secret store).
func NewConnector(conn *domain.DatabaseConnection, password string) (Connector, error) {
	switch conn.Driver {
	case domain.DatabaseDriverSQLite:
		return newSQLiteConnector(conn)
	case domain.DatabaseDriverMySQL:
		return newSQLConnector("mysql", buildMySQLDSN(conn, password))
	case domain.DatabaseDriverPostgres:
		return newSQLConnector("postgres", buildPostgresDSN(conn, password))
	case domain.DatabaseDriverMongoDB:
		return newMongoConnector(conn, password)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", conn.Driver)
	}
}
