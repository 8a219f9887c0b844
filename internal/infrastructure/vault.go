package infrastructure

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/hashicorp/vault/api"

	"github.com/architeacher/outboxrelay/internal/config"
)

// NewVaultClient builds an api.Client pointed at cfg.Address. It never
// authenticates; authentication happens separately via
// config.Loader.authenticateVault, which calls SetToken on the
// resulting client's wrapping VaultRepository.
func NewVaultClient(cfg config.SecretStorageConfig) (*api.Client, error) {
	vaultCfg := api.DefaultConfig()
	vaultCfg.Address = cfg.Address

	if cfg.TLSSkipVerify {
		vaultCfg.HttpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
		}
	}

	client, err := api.NewClient(vaultCfg)
	if err != nil {
		return nil, fmt.Errorf("create vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	client.SetMaxRetries(cfg.MaxRetries)

	return client, nil
}
