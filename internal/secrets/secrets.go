// Package secrets resolves credentials such as the graph store password
// from the environment or a local JSON file.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrNotFound is returned when no provider holds a secret.
var ErrNotFound = errors.New("secret not found")

// SecretKey identifies a credential.
type SecretKey string

const (
	SecretGraphPassword SecretKey = "graph_password"
	SecretTemporalToken SecretKey = "temporal_token"
	SecretSummaryAPIKey SecretKey = "summary_api_key"
)

// DefaultEnvPrefix matches the configuration environment prefix.
const DefaultEnvPrefix = "CONCEPTGRAPH_"

// Provider is a read-only secret backend.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Config configures the secrets manager.
type Config struct {
	// Provider is "env" or "file".
	Provider string
	// FilePath is the JSON file read by the file provider.
	FilePath  string
	EnvPrefix string
}

// Manager reads secrets from a primary provider, falling back to the
// environment. Resolved values are cached for the life of the process.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager creates a secrets manager. A nil config reads the environment.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = &Config{Provider: "env"}
	}
	env := NewEnvProvider(cfg.EnvPrefix)

	var primary Provider
	switch cfg.Provider {
	case "env", "":
		primary = env
	case "file":
		fp, err := NewFileProvider(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
		primary = fp
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}

	m := &Manager{primary: primary, cache: make(map[string]string)}
	if primary != Provider(env) {
		m.fallback = env
	}
	return m, nil
}

// Get retrieves a secret, trying primary then fallback.
func (m *Manager) Get(ctx context.Context, key SecretKey) (string, error) {
	k := string(key)
	m.mu.RLock()
	val, ok := m.cache[k]
	m.mu.RUnlock()
	if ok {
		return val, nil
	}

	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		if val, err := p.Get(ctx, k); err == nil && val != "" {
			m.mu.Lock()
			m.cache[k] = val
			m.mu.Unlock()
			return val, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, k)
}

// Resolve returns current when it is set, otherwise the secret for key.
// A missing secret is not an error; the empty string is returned.
func (m *Manager) Resolve(ctx context.Context, current string, key SecretKey) string {
	if current != "" {
		return current
	}
	val, err := m.Get(ctx, key)
	if err != nil {
		return ""
	}
	return val
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based secrets provider.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	envKey := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(envKey); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%w: env %s", ErrNotFound, envKey)
}
