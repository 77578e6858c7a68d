package config

import (
	"errors"
	"strings"
	"testing"
)

// validConfig returns a config that passes Validate.
func validConfig() *Config {
	return &Config{
		ModelName:        "gemini-2.5-flash",
		EmbedderModel:    "gemini-embedding-001",
		TopK:             5,
		StoreDir:         "/tmp/queryloom-test",
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "app",
		PostgresPassword: "secret-password",
		PostgresDBName:   "appdb",
		PostgresSSLMode:  "disable",
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"missing db name", func(c *Config) { c.PostgresDBName = "" }, ErrMissingDBName},
		{"missing db user", func(c *Config) { c.PostgresUser = "" }, ErrMissingDBUser},
		{"port too low", func(c *Config) { c.PostgresPort = 0 }, ErrInvalidPort},
		{"port too high", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPort},
		{"empty model", func(c *Config) { c.ModelName = "" }, ErrInvalidModelName},
		{"empty embedder model", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidModelName},
		{"top-k zero", func(c *Config) { c.TopK = 0 }, ErrInvalidTopK},
		{"top-k too large", func(c *Config) { c.TopK = 50 }, ErrInvalidTopK},
		{"empty store dir", func(c *Config) { c.StoreDir = "" }, ErrInvalidStoreDir},
		{"deprecated ssl mode", func(c *Config) { c.PostgresSSLMode = "prefer" }, ErrInvalidSSLMode},
		{"empty ssl mode", func(c *Config) { c.PostgresSSLMode = "" }, ErrInvalidSSLMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestPostgresDSN(t *testing.T) {
	cfg := validConfig()
	dsn := cfg.PostgresDSN()

	for _, part := range []string{"host=localhost", "port=5432", "user=app", "dbname=appdb", "sslmode=disable"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN missing %q: %s", part, dsn)
		}
	}
}

func TestPostgresDSNQuotesPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = `has space'and\quote`
	dsn := cfg.PostgresDSN()

	if !strings.Contains(dsn, `password='has space\'and\\quote'`) {
		t.Errorf("password not quoted/escaped: %s", dsn)
	}
}

func TestStringMasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super-secret-value"

	out := cfg.String()
	if strings.Contains(out, "super-secret-value") {
		t.Errorf("String() leaked password: %s", out)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in       string
		wantFull bool // fully masked
	}{
		{"", false},
		{"short", true},
		{"exactly8", true},
		{"a-much-longer-secret", false},
	}

	for _, tt := range tests {
		got := maskSecret(tt.in)
		if tt.in == "" {
			if got != "" {
				t.Errorf("maskSecret(%q) = %q, want empty", tt.in, got)
			}
			continue
		}
		if strings.Contains(got, tt.in) {
			t.Errorf("maskSecret(%q) = %q leaks input", tt.in, got)
		}
		if tt.wantFull && got != maskedValue {
			t.Errorf("maskSecret(%q) = %q, want fully masked", tt.in, got)
		}
	}
}
