package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "hireloop-cli"
)

// storedCookie is the persisted form of a session cookie
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// getKeyringKey returns a unique key for storing session cookies per server
func getKeyringKey(serverURL string) string {
	return fmt.Sprintf("session-%s", serverURL)
}

// SaveCookies persists the session cookies securely in the OS keychain/credential manager.
// Saving an empty set removes the entry.
func SaveCookies(serverURL string, cookies []*http.Cookie) error {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		stored = append(stored, storedCookie{Name: c.Name, Value: c.Value})
	}

	if len(stored) == 0 {
		return DeleteCookies(serverURL)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := keyring.Set(keyringService, getKeyringKey(serverURL), string(data)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadCookies retrieves the session cookies. A server never logged in to has none.
func LoadCookies(serverURL string) ([]*http.Cookie, error) {
	data, err := keyring.Get(keyringService, getKeyringKey(serverURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	return cookies, nil
}

// DeleteCookies removes the session cookies from the OS keychain/credential manager
func DeleteCookies(serverURL string) error {
	if err := keyring.Delete(keyringService, getKeyringKey(serverURL)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CookieStore defines the interface for session persistence.
// This allows us to mock the keyring in tests.
type CookieStore interface {
	SaveCookies(serverURL string, cookies []*http.Cookie) error
	LoadCookies(serverURL string) ([]*http.Cookie, error)
	DeleteCookies(serverURL string) error
}

// keyringCookieStore implements CookieStore using the OS keyring
type keyringCookieStore struct{}

var Default CookieStore = &keyringCookieStore{}

func (k *keyringCookieStore) SaveCookies(serverURL string, cookies []*http.Cookie) error {
	return SaveCookies(serverURL, cookies)
}

func (k *keyringCookieStore) LoadCookies(serverURL string) ([]*http.Cookie, error) {
	return LoadCookies(serverURL)
}

func (k *keyringCookieStore) DeleteCookies(serverURL string) error {
	return DeleteCookies(serverURL)
}
