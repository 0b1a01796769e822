package commands

import (
	"bytes"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hireloop-dev/hireloop/internal/cli/config"
	appconfig "github.com/hireloop-dev/hireloop/internal/config"
)

// mockCookieStore is a simple in-memory cookie store for testing
type mockCookieStore struct {
	mu      sync.Mutex
	cookies map[string][]*http.Cookie
}

func newMockCookieStore() *mockCookieStore {
	return &mockCookieStore{
		cookies: make(map[string][]*http.Cookie),
	}
}

func (m *mockCookieStore) SaveCookies(serverURL string, cookies []*http.Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(cookies) == 0 {
		delete(m.cookies, serverURL)
		return nil
	}
	m.cookies[serverURL] = cookies
	return nil
}

func (m *mockCookieStore) LoadCookies(serverURL string) ([]*http.Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cookies[serverURL], nil
}

func (m *mockCookieStore) DeleteCookies(serverURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cookies, serverURL)
	return nil
}

// has reports whether a cookie named name is saved for serverURL
func (m *mockCookieStore) has(serverURL, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cookies[serverURL] {
		if c.Name == name {
			return true
		}
	}
	return false
}

// setupTestEnvironment writes hireloop.json into a temp working directory
// and points HOME at another, so user config stays inside the test
func setupTestEnvironment(t *testing.T, servers []config.Server) string {
	t.Helper()

	dir := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Chdir(dir)

	if servers != nil {
		require.NoError(t, config.Save(config.ConfigFileName, &config.Config{Servers: servers}))
	}
	return dir
}

// newTestEnv builds a non-interactive command environment writing to a buffer
func newTestEnv(cookies *mockCookieStore) (*commandEnv, *bytes.Buffer) {
	var out bytes.Buffer
	return &commandEnv{
		out:      &out,
		settings: &appconfig.Config{},
		cookies:  cookies,
		logger:   zerolog.Nop(),
	}, &out
}
