package keys

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/manash/slidegen/pkg/models"
)

// ErrKeyNotFound is returned by Delete when no key is stored for a provider.
var ErrKeyNotFound = errors.New("key not found")

// Source describes where a resolved API key came from.
type Source string

const (
	SourceFlag  Source = "command-line flag"
	SourceStore Source = "stored key"
	SourceEnv   Source = "environment variable"
)

// Store handles API key storage in keys.json.
type Store struct {
	configDir string
}

type entry struct {
	Key string `json:"key"`
}

type keyFile map[string]entry

// NewStore creates a key store rooted at configDir.
func NewStore(configDir string) *Store {
	return &Store{configDir: configDir}
}

// Path returns the path to the keys.json file
func (s *Store) Path() string {
	return filepath.Join(s.configDir, "keys.json")
}

func (s *Store) load() (keyFile, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return make(keyFile), nil
		}
		return nil, err
	}

	var keys keyFile
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse keys.json: %w", err)
	}
	if keys == nil {
		keys = make(keyFile)
	}
	return keys, nil
}

func (s *Store) save(keys keyFile) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// Owner read/write only.
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write keys.json: %w", err)
	}
	return nil
}

// Set stores a key for the given provider
func (s *Store) Set(provider models.ProviderType, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: key is empty", models.ErrInvalidArgument)
	}

	keys, err := s.load()
	if err != nil {
		return err
	}
	keys[string(provider)] = entry{Key: key}
	return s.save(keys)
}

// Get retrieves a key for the given provider. A missing key is not an error.
func (s *Store) Get(provider models.ProviderType) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	return keys[string(provider)].Key, nil
}

// Delete removes a key for the given provider
func (s *Store) Delete(provider models.ProviderType) error {
	keys, err := s.load()
	if err != nil {
		return err
	}

	if _, ok := keys[string(provider)]; !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, provider)
	}

	delete(keys, string(provider))
	return s.save(keys)
}

// List returns all stored provider names, sorted.
func (s *Store) List() ([]models.ProviderType, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}

	providers := make([]models.ProviderType, 0, len(keys))
	for p := range keys {
		providers = append(providers, models.ProviderType(p))
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })
	return providers, nil
}

// MaskKey returns a masked version of the key for display
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Resolve returns the API key for provider using, in order, the explicit
// key, the stored key and the provider's environment variable.
// A nil store skips the stored-key lookup.
func Resolve(explicit string, provider models.ProviderType, getenv func(string) string, store *Store) (string, Source, error) {
	if explicit != "" {
		return explicit, SourceFlag, nil
	}

	if store != nil {
		// An unreadable keys.json falls through to the environment.
		if key, err := store.Get(provider); err == nil && key != "" {
			return key, SourceStore, nil
		}
	}

	envVar := provider.EnvVar()
	if getenv != nil {
		if key := getenv(envVar); key != "" {
			return key, SourceEnv, nil
		}
	}

	return "", "", fmt.Errorf("%w: run 'slidegen keys set %s' or set the %s environment variable", models.ErrMissingCredential, provider, envVar)
}
