package domain

// DatabaseDriver represents the type of database engine.
type DatabaseDriver string

const (
	DatabaseDriverMySQL    DatabaseDriver = "mysql"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	DatabaseDriverMongoDB  DatabaseDriver = "mongodb"
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
)

// DatabaseConnection holds the metadata for connecting to an external
// database that a "database" source reads a table from.
// The password is stored separately in the secret store.
type DatabaseConnection struct {
	Name     string            `json:"name" yaml:"name"`
	Driver   DatabaseDriver    `json:"driver" yaml:"driver"`
	Host     string            `json:"host" yaml:"host"`         // hostname, URI (mongodb) or file path (sqlite)
	Port     int               `json:"port" yaml:"port"`         // 0 for driver default
	Database string            `json:"database" yaml:"database"` // db name or empty for sqlite
	Username string            `json:"username" yaml:"username"`
	SSLMode  string            `json:"sslMode" yaml:"ssl_mode"`
	Extra    map[string]string `json:"extra,omitempty" yaml:"extra"` // driver-specific options
}

// SecretKey is the secret store key holding this connection's password.
func (c DatabaseConnection) SecretKey() string {
	return "db:" + c.Name
}
