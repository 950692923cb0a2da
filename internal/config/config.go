package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped onto
// config keys. A double underscore separates nested keys:
// CONSULTLOG_ADMIN__PASSWORD -> admin.password.
const EnvPrefix = "CONSULTLOG_"

type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Store         StoreConfig          `koanf:"store" validate:"required"`
	Admin         AdminConfig          `koanf:"admin" validate:"required"`
	Storage       *StorageConfig       `koanf:"storage"`
	Observability *ObservabilityConfig `koanf:"observability" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	AdminListen        string   `koanf:"admin_listen"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
	StaticDir          string   `koanf:"static_dir"`
	IndexFile          string   `koanf:"index_file"`
}

// StoreConfig locates the CSV file holding submissions.
type StoreConfig struct {
	DataDir  string `koanf:"data_dir" validate:"required"`
	FileName string `koanf:"file_name" validate:"required"`
}

// AdminConfig is the single credential pair guarding the admin viewer.
type AdminConfig struct {
	Username string `koanf:"username" validate:"required"`
	Password string `koanf:"password" validate:"required"`
	Realm    string `koanf:"realm" validate:"required"`
}

type StorageConfig struct {
	O3 *O3Config `koanf:"o3"`
}

// O3Config configures the S3-compatible bucket used for CSV snapshots.
type O3Config struct {
	Endpoint  string `koanf:"endpoint"`
	Region    string `koanf:"region"`
	Bucket    string `koanf:"bucket"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Prefix    string `koanf:"prefix"`
}

// legacyKeys maps the variable names of earlier deployments onto config keys.
var legacyKeys = map[string]string{
	"PORT":       "server.port",
	"ADMIN_USER": "admin.username",
	"ADMIN_PASS": "admin.password",
	"ADMIN_PORT": "server.admin_listen",
}

func legacyEnv(name, value string) (string, any) {
	key, ok := legacyKeys[name]
	if !ok || value == "" {
		return "", nil
	}
	if name == "ADMIN_PORT" && !strings.Contains(value, ":") {
		value = ":" + value
	}
	return key, value
}

// Default returns the configuration used when nothing is set in the
// environment.
func Default() *Config {
	return &Config{
		Primary: Primary{Env: "development"},
		Server: ServerConfig{
			Port:               "3000",
			ReadTimeout:        10,
			WriteTimeout:       10,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"*"},
			IndexFile:          "Index.html",
		},
		Store: StoreConfig{
			DataDir:  "data",
			FileName: "submissions.csv",
		},
		Admin: AdminConfig{
			Username: "admin",
			Password: "change-me",
			Realm:    "Restricted",
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// Load reads an optional .env file, overlays PORT/ADMIN_USER/ADMIN_PASS/
// ADMIN_PORT and then CONSULTLOG_* environment variables onto Default() and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	// loaded first so CONSULTLOG_* variables override them
	if err := k.Load(env.ProviderWithValue("", ".", legacyEnv), nil); err != nil {
		return nil, fmt.Errorf("load legacy env: %w", err)
	}
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// an env override can replace the pointer with a partially filled struct
	if cfg.Observability == nil {
		cfg.Observability = DefaultObservabilityConfig()
	}
	cfg.Observability.ServiceName = "consultlog"
	cfg.Observability.Environment = cfg.Primary.Env

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}
	if err := cfg.CheckStaticDir(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ErrStaticExposesStore is returned when the static site directory contains
// the data directory, which would serve the submissions file without auth.
var ErrStaticExposesStore = errors.New("static_dir contains store data_dir")

// CheckStaticDir fails when server.static_dir is set and store.data_dir lies
// inside it.
func (c *Config) CheckStaticDir() error {
	if c.Server.StaticDir == "" {
		return nil
	}
	static, err := filepath.Abs(c.Server.StaticDir)
	if err != nil {
		return fmt.Errorf("static_dir: %w", err)
	}
	data, err := filepath.Abs(c.Store.DataDir)
	if err != nil {
		return fmt.Errorf("data_dir: %w", err)
	}
	rel, err := filepath.Rel(static, data)
	if err != nil {
		return nil
	}
	if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
		return fmt.Errorf("%w: %s is under %s", ErrStaticExposesStore, data, static)
	}
	return nil
}

// IsProduction reports whether the primary env is "production".
func (c *Config) IsProduction() bool {
	return c.Primary.Env == "production"
}

// O3 returns the archive bucket configuration, or nil when none is set.
func (c *Config) O3() *O3Config {
	if c.Storage == nil || c.Storage.O3 == nil {
		return nil
	}
	if c.Storage.O3.Endpoint == "" || c.Storage.O3.Bucket == "" {
		return nil
	}
	return c.Storage.O3
}
