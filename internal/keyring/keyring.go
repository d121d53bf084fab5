package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/surgisync/internal/constants"
)

var (
	// ErrNotFound is returned when no token is stored in the keyring
	ErrNotFound = errors.New("session token not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// account scopes the keyring entry to a backend so logins against
// different servers do not overwrite each other.
func account(baseURL string) string {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return constants.DefaultKeyringUser
	}
	return constants.DefaultKeyringUser + "@" + base
}

// GetToken returns the bearer token for baseURL. The environment
// variable takes precedence over the keyring.
func GetToken(baseURL string) (string, error) {
	if tok := strings.TrimSpace(os.Getenv(constants.TokenEnvVar)); tok != "" {
		return tok, nil
	}
	tok, err := keyring.Get(constants.AppName, account(baseURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return tok, nil
}

// SetToken stores the bearer token for baseURL.
func SetToken(baseURL, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(constants.AppName, account(baseURL), token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

// DeleteToken removes the bearer token for baseURL.
func DeleteToken(baseURL string) error {
	err := keyring.Delete(constants.AppName, account(baseURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// IsAvailable checks if the OS keyring is available on the current system.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
