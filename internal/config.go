package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/semwiki/internal/sqlstore"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Export ExportConfig      `yaml:"export"`
	Lookup LookupConfig      `yaml:"lookup"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	return c.Lookup.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ExportConfig controls how pages map onto export resources.
//
// BaseURI is the namespace of wiki pages; property and category resources
// live below it. Vocabularies maps "Imported from" prefixes to their URIs.
type ExportConfig struct {
	BaseURI      string            `yaml:"base_uri"`
	Vocabularies map[string]string `yaml:"vocabularies"`
	PoolSize     int               `yaml:"pool_size"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURI, validation.Required, validation.By(absoluteURI)),
		validation.Field(&c.PoolSize, validation.Min(0)),
	); err != nil {
		return err
	}
	for prefix, uri := range c.Vocabularies {
		if prefix == "" {
			return errors.New("export: vocabulary with empty prefix")
		}
		if err := absoluteURI(uri); err != nil {
			return fmt.Errorf("export: vocabulary %q: %w", prefix, err)
		}
	}
	return nil
}

func absoluteURI(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" {
		return errors.New("must be an absolute URI")
	}
	return nil
}

// LookupConfig configures the property list lookups.
type LookupConfig struct {
	// DefaultPropertyType is the type id assumed for undeclared properties.
	DefaultPropertyType string        `yaml:"default_property_type"`
	CacheSize           int           `yaml:"cache_size"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	// DefaultLimit caps list results when the caller gives no limit.
	DefaultLimit int `yaml:"default_limit"`
}

// Validate validates the lookup configuration.
func (c *LookupConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DefaultPropertyType, validation.Required, validation.By(knownTypeID)),
		validation.Field(&c.CacheSize, validation.Required, validation.Min(1)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.DefaultLimit, validation.Min(0)),
	)
}

func knownTypeID(value interface{}) error {
	s, _ := value.(string)
	if id, ok := sqlstore.TypeIDFromLabel(s); !ok || id != s {
		return fmt.Errorf("unknown type id %q", s)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./semwiki.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Export: ExportConfig{
			BaseURI:      "http://localhost:8080/id/",
			Vocabularies: map[string]string{},
			PoolSize:     500,
		},
		Lookup: LookupConfig{
			DefaultPropertyType: "_wpg",
			CacheSize:           128,
			CacheTTL:            10 * time.Minute,
			DefaultLimit:        500,
		},
	}
}
