package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cvforge/internal/errors"
	"cvforge/internal/types"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets     `mapstructure:"secrets"`
	Watch   VaultWatchConfig `mapstructure:"watch"`
}

// VaultSecrets defines where to find secrets in Vault
type VaultSecrets struct {
	// APIKeys expects a single "keys" string with comma-separated values
	APIKeys string `mapstructure:"apiKeys"`
	// ModelKeys is a KVv2 secret with one field per model id ("openai", "claude", ...)
	ModelKeys string `mapstructure:"modelKeys"`
}

// VaultWatchConfig controls polling of the model key secret.
type VaultWatchConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a new Vault client from configuration. It returns
// nil, nil when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled")
		}
		return nil, nil
	}

	if logger != nil {
		logger.Debug("Initializing Vault client",
			"address", config.Address,
			"namespace", config.Namespace,
			"token_file", config.TokenFile,
			"has_token", config.Token != "")
	}

	client, err := createVaultAPIClient(config, logger)
	if err != nil {
		return nil, err
	}

	token, err := resolveVaultToken(config, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	if err := testVaultConnection(client, config.Address, logger); err != nil {
		return nil, err
	}

	return &VaultClient{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// createVaultAPIClient creates and configures the Vault API client
func createVaultAPIClient(config VaultConfig, logger *errors.Logger) (*api.Client, error) {
	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to create Vault client")
		}
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	return client, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig, logger *errors.Logger) (string, error) {
	token := config.Token

	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			if logger != nil {
				logger.LogError(err, "Failed to read Vault token file", "file", config.TokenFile)
			}
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}

	return token, nil
}

// testVaultConnection tests the connection to Vault
func testVaultConnection(client *api.Client, address string, logger *errors.Logger) error {
	health, err := client.Sys().Health()
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to connect to Vault", "address", address)
		}
		return fmt.Errorf("failed to connect to vault: %w", err)
	}

	if logger != nil {
		logger.Info("Successfully connected to Vault",
			"address", address,
			"version", health.Version,
			"sealed", health.Sealed)
	}

	return nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		if vc.logger != nil {
			vc.logger.LogError(err, "Failed to read secret from Vault", "path", path)
		}
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}

	return parseKVv2Secret(secret, path)
}

// parseKVv2Secret unpacks the data and metadata.version fields of a KVv2 read.
func parseKVv2Secret(secret *api.Secret, path string) (*VaultSecret, error) {
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}

	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}

	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses version value from various types
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSliceSecret retrieves a comma-separated string as a slice from Vault
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return nil, err
	}
	value, ok := secret.Data[key]
	if !ok {
		return nil, fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return splitAndTrim(strValue), nil
}

// ModelKeysFromSecret picks the non-empty string fields of secret that name
// a known model id.
func ModelKeysFromSecret(secret *VaultSecret) map[types.ModelID]string {
	keys := make(map[types.ModelID]string)
	if secret == nil {
		return keys
	}
	for field, raw := range secret.Data {
		id := types.ModelID(strings.ToLower(field))
		value, ok := raw.(string)
		if !ok || !id.IsKnown() {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			keys[id] = value
		}
	}
	return keys
}

// GetModelKeys reads the model key secret and its version.
func (vc *VaultClient) GetModelKeys() (map[types.ModelID]string, int64, error) {
	if vc == nil {
		return nil, 0, fmt.Errorf("vault client not initialized")
	}
	path := vc.config.Secrets.ModelKeys
	if path == "" {
		return map[types.ModelID]string{}, 0, nil
	}

	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return nil, 0, err
	}

	keys := ModelKeysFromSecret(secret)
	if vc.logger != nil {
		vc.logger.Debug("Model keys retrieved from Vault",
			"path", path,
			"version", secret.Version,
			"count", len(keys))
	}
	return keys, secret.Version, nil
}

// ModelKeysPath returns the configured model key secret path.
func (vc *VaultClient) ModelKeysPath() string {
	if vc == nil {
		return ""
	}
	return vc.config.Secrets.ModelKeys
}

// ApplyVaultSecrets loads the server API keys from Vault into config.
// Model keys are read separately by the key store.
func ApplyVaultSecrets(config *Config, client *VaultClient, logger *errors.Logger) error {
	if client == nil || config.Vault.Secrets.APIKeys == "" {
		return nil
	}

	apiKeys, err := client.GetStringSliceSecret(config.Vault.Secrets.APIKeys, "keys")
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to load API keys from Vault", "path", config.Vault.Secrets.APIKeys)
		}
		return fmt.Errorf("failed to load API keys from vault: %w", err)
	}

	if len(apiKeys) > 0 {
		config.Server.APIKeys = apiKeys
		if logger != nil {
			logger.Info("API keys loaded from Vault", "count", len(apiKeys))
		}
	} else if logger != nil {
		logger.Warn("No API keys found in Vault", "path", config.Vault.Secrets.APIKeys)
	}

	return nil
}
