package secret

import (
	"errors"
	"strings"
	"testing"
)

func TestEnvName(t *testing.T) {
	got := EnvName("db:warehouse-1")
	if got != "CHARTKIT_SECRET_DB_WAREHOUSE_1" {
		t.Errorf("expected CHARTKIT_SECRET_DB_WAREHOUSE_1, got %s", got)
	}
}

func TestEnvStore(t *testing.T) {
	t.Setenv("CHARTKIT_SECRET_DB_SALES", "from-env")
	var s EnvStore

	v, err := s.Get("db:sales")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "from-env" {
		t.Errorf("expected from-env, got %q", v)
	}

	v, err = s.Get("db:missing")
	if err != nil || v != nil {
		t.Errorf("expected nil, nil for missing key, got %q, %v", v, err)
	}
}

func TestNewBackend(t *testing.T) {
	if _, err := New("vault"); err == nil {
		t.Error("expected error for unknown backend")
	}
	s, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(Writer); ok {
		t.Error("expected env store to be read-only")
	}
	s, _ = New("keychain")
	if _, ok := s.(Writer); !ok {
		t.Errorf("expected keychain store to be writable, got %T", s)
	}
}

// fakeSecurity records calls and answers from an in-memory keychain.
type fakeSecurity struct {
	items map[string]string
	calls []string
	fail  bool
}

func (f *fakeSecurity) run(args ...string) ([]byte, int, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	if f.fail {
		return nil, 51, errors.New("exit status 51")
	}
	account := args[2]
	switch args[0] {
	case "find-generic-password":
		v, ok := f.items[account]
		if !ok {
			return nil, errSecItemNotFound, errors.New("exit status 44")
		}
		return []byte(v + "\n"), 0, nil
	case "add-generic-password":
		f.items[account] = args[6]
	case "delete-generic-password":
		if _, ok := f.items[account]; !ok {
			return nil, errSecItemNotFound, errors.New("exit status 44")
		}
		delete(f.items, account)
	}
	return nil, 0, nil
}

func TestKeychainStore(t *testing.T) {
	fake := &fakeSecurity{items: map[string]string{}}
	k := &KeychainStore{service: "chartkit-test", run: fake.run}

	v, err := k.Get("db:sales")
	if err != nil || v != nil {
		t.Fatalf("expected nil, nil for missing item, got %q, %v", v, err)
	}
	if err := k.Set("db:sales", []byte("s3cret")); err != nil {
		t.Fatal(err)
	}
	v, err = k.Get("db:sales")
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "s3cret" {
		t.Errorf("expected s3cret, got %q", v)
	}
	if !strings.Contains(fake.calls[1], "-s chartkit-test") {
		t.Errorf("expected service in call, got %q", fake.calls[1])
	}

	if err := k.Delete("db:sales"); err != nil {
		t.Fatal(err)
	}
	if err := k.Delete("db:sales"); err != nil {
		t.Errorf("expected deleting a missing item to succeed, got %v", err)
	}
}

func TestKeychainStoreReportsFailures(t *testing.T) {
	k := &KeychainStore{service: "chartkit-test", run: (&fakeSecurity{fail: true}).run}
	if _, err := k.Get("db:sales"); err == nil {
		t.Error("expected read error")
	}
	if err := k.Set("db:sales", []byte("x")); err == nil {
		t.Error("expected write error")
	}
	if err := k.Delete("db:sales"); err == nil {
		t.Error("expected delete error")
	}
}
