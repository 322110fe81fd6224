// Package config loads the server configuration from an optional config file
// and BACKOFFICE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/matthewbaird/backoffice/internal/fieldconfig"
)

// DefaultTenantID is the tenant used when none is configured.
const DefaultTenantID = "00000000-0000-0000-0000-000000000001"

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config aggregates configuration for the application.
type Config struct {
	Port     int            `mapstructure:"port"`
	TenantID string         `mapstructure:"tenant_id"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	JSONFile string `mapstructure:"json_file"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:     8080,
		TenantID: DefaultTenantID,
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "file:backoffice.db?_pragma=busy_timeout(5000)",
		},
		Cache: CacheConfig{TTL: fieldconfig.DefaultTTL},
		Store: StoreConfig{Timeout: 10 * time.Second},
		Log:   LogConfig{Level: "info"},
	}
}

// Load reads configuration from files and environment variables.
// Environment variables use the prefix "BACKOFFICE" and the dot character
// in keys is replaced by an underscore. For example, "cache.ttl" becomes
// "BACKOFFICE_CACHE_TTL". When path is empty an optional config.yaml in the
// working directory is read; otherwise path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("BACKOFFICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot check by type alone.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if _, err := c.Tenant(); err != nil {
		return err
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("database.driver %q: want %q or %q", c.Database.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %s", c.Cache.TTL)
	}
	if c.Store.Timeout < 0 {
		return fmt.Errorf("store.timeout must not be negative, got %s", c.Store.Timeout)
	}
	return nil
}

// Tenant parses the configured tenant id.
func (c *Config) Tenant() (uuid.UUID, error) {
	id, err := uuid.Parse(c.TenantID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("tenant_id %q: %w", c.TenantID, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, errors.New("tenant_id must not be the nil uuid")
	}
	return id, nil
}

// bindEnvs registers all keys within cfg so that viper will look up
// corresponding environment variables when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
