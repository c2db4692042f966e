package secret

import (
	"fmt"
	"os"
	"strings"
)

// Store reads sensitive values such as database passwords, keyed by
// DatabaseConnection.SecretKey().
type Store interface {
	// Get retrieves the secret value for the given key.
	// Returns nil and no error if the key does not exist.
	Get(key string) ([]byte, error)
}

// Writer is a Store that can also persist secrets.
type Writer interface {
	Store
	Set(key string, value []byte) error
	Delete(key string) error
}

// New returns the store for a configured backend name.
func New(backend string) (Store, error) {
	switch backend {
	case "", "env":
		return EnvStore{}, nil
	case "keychain":
		return NewKeychainStore(), nil
	default:
		return nil, fmt.Errorf("unknown secrets backend %q", backend)
	}
}

// EnvStore reads secrets from CHARTKIT_SECRET_* environment variables.
// It is read-only.
type EnvStore struct{}

// EnvName maps a key like "db:warehouse-1" to CHARTKIT_SECRET_DB_WAREHOUSE_1.
func EnvName(key string) string {
	var b strings.Builder
	b.WriteString("CHARTKIT_SECRET_")
	for _, r := range strings.ToUpper(key) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (EnvStore) Get(key string) ([]byte, error) {
	if env, ok := os.LookupEnv(EnvName(key)); ok {
		return []byte(env), nil
	}
	return nil, nil
}
