package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const keychainService = "chartkit"

// errSecItemNotFound is the exit status of `security` for a missing item.
const errSecItemNotFound = 44

// runFunc runs the `security` tool and returns its stdout and exit code.
type runFunc func(args ...string) (out []byte, code int, err error)

// KeychainStore keeps connection passwords in the macOS login keychain
// as generic passwords of the "chartkit" service, one account per
// connection secret key.
type KeychainStore struct {
	service string
	run     runFunc
}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{service: keychainService, run: runSecurity}
}

func runSecurity(args ...string) ([]byte, int, error) {
	out, err := exec.Command("security", args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitCode(), exitErr
	}
	return out, 0, err
}

// Get returns the password stored for key, or nil when there is none.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, code, err := k.run("find-generic-password", "-a", key, "-s", k.service, "-w")
	if code == errSecItemNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain read %s: %w", key, err)
	}
	return []byte(strings.TrimRight(string(out), "\n")), nil
}

// Set stores value for key, replacing an existing entry.
func (k *KeychainStore) Set(key string, value []byte) error {
	if _, _, err := k.run("add-generic-password", "-a", key, "-s", k.service, "-w", string(value), "-U"); err != nil {
		return fmt.Errorf("keychain write %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (k *KeychainStore) Delete(key string) error {
	_, code, err := k.run("delete-generic-password", "-a", key, "-s", k.service)
	if err != nil && code != errSecItemNotFound {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}
