// Package secrets fetches runtime credentials the controller must never
// keep in plain config: the webhook HMAC secret and the brokerage adapter's
// API credentials. It wraps HashiCorp Vault with the same degraded-mode
// shape the rest of this codebase uses for optional dependencies — when
// Vault is disabled, values fall back to whatever the caller already
// resolved from the environment.
package secrets

import (
	"context"
	"fmt"
	"sync"

	"options-controller/config"

	"github.com/hashicorp/vault/api"
)

// BrokerCredentials holds the adapter's API key pair.
type BrokerCredentials struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Paper     bool   `json:"paper"`
}

// Client wraps the HashiCorp Vault client with a small in-memory cache.
type Client struct {
	client *api.Client
	config config.VaultConfig
	mu     sync.RWMutex
	cache  map[string]string
}

// NewClient creates a new Vault-backed secrets client. With cfg.Enabled
// false it still works, serving only whatever gets stored in-process via
// PutLocal.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	c := &Client{
		config: cfg,
		cache:  make(map[string]string),
	}
	if !cfg.Enabled {
		return c, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address
	if cfg.TLSEnabled && cfg.CACert != "" {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{CACert: cfg.CACert}); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	c.client = client
	return c, nil
}

// PutLocal seeds the in-memory cache directly, bypassing Vault.
func (c *Client) PutLocal(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[key] = value
}

// GetSecret reads a single string field at path/field, checking the local
// cache first.
func (c *Client) GetSecret(ctx context.Context, path, field string) (string, error) {
	cacheKey := path + "#" + field

	c.mu.RLock()
	if v, ok := c.cache[cacheKey]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	if !c.config.Enabled {
		return "", fmt.Errorf("secret %s not cached and vault is disabled", cacheKey)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("secret not found at %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		data = secret.Data
	}
	val, ok := data[field].(string)
	if !ok {
		return "", fmt.Errorf("field %s missing at %s", field, path)
	}

	c.mu.Lock()
	c.cache[cacheKey] = val
	c.mu.Unlock()

	return val, nil
}

// GetBrokerCredentials reads the adapter API key pair for the configured
// broker mount.
func (c *Client) GetBrokerCredentials(ctx context.Context) (*BrokerCredentials, error) {
	apiKey, err := c.GetSecret(ctx, c.config.SecretPath, "api_key")
	if err != nil {
		return nil, err
	}
	apiSecret, err := c.GetSecret(ctx, c.config.SecretPath, "api_secret")
	if err != nil {
		return nil, err
	}
	return &BrokerCredentials{APIKey: apiKey, APISecret: apiSecret}, nil
}

// GetWebhookSecret reads the HMAC shared secret used to verify inbound
// webhook signatures.
func (c *Client) GetWebhookSecret(ctx context.Context) (string, error) {
	return c.GetSecret(ctx, c.config.SecretPath, "webhook_secret")
}

// IsEnabled returns whether Vault is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// Health checks the Vault connection.
func (c *Client) Health(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	health, err := c.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}
