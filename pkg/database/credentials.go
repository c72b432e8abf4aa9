package database

import (
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// Keyring identifiers for the administrative database password
const (
	KeyringService   = "tenantdb"
	AdminPasswordKey = "postgres-password"
	EnvAdminPassword = "TENANTDB_POSTGRES_PASSWORD"
)

// AdminPassword retrieves the administrative database password. The system
// keyring is consulted first; the environment variable is the fallback for
// containerized deployments without a keyring daemon.
func AdminPassword() (string, error) {
	password, err := keyring.Get(KeyringService, AdminPasswordKey)
	if err == nil && password != "" {
		return password, nil
	}

	if password := os.Getenv(EnvAdminPassword); password != "" {
		return password, nil
	}

	return "", fmt.Errorf("administrative password not found in keyring or %s", EnvAdminPassword)
}

// StoreAdminPassword saves the administrative database password in the
// system keyring for later runs.
func StoreAdminPassword(password string) error {
	if err := keyring.Set(KeyringService, AdminPasswordKey, password); err != nil {
		return fmt.Errorf("failed to store administrative password: %w", err)
	}
	return nil
}
