package config

import (
	"fmt"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
//
// Missing database name or user is fatal: no request can be served
// without them, so the process must refuse to start.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidModelName)
	}

	if c.TopK < 1 || c.TopK > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidTopK, c.TopK)
	}

	if c.StoreDir == "" {
		return fmt.Errorf("%w: store_dir cannot be empty", ErrInvalidStoreDir)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: set POSTGRES_DATABASE or postgres_db_name", ErrMissingDBName)
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("%w: set POSTGRES_USER or postgres_user", ErrMissingDBUser)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPort, c.PostgresPort)
	}

	// Modern SSL modes only; allow/prefer are deprecated (MITM vulnerable).
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
