// Package config loads the dbkit CLI configuration.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dbkit-go/dbkit/runtime/client"
)

// AppFs is the filesystem configuration, migrations and locks live on.
var AppFs = afero.NewOsFs()

// FileName is the base name of the configuration file.
const FileName = ".dbkit.yaml"

// ErrNoConnections is returned when no connection is configured.
var ErrNoConnections = errors.New("no database connection configured")

// Migrations configures where migration and seed files are found.
type Migrations struct {
	Path     string `mapstructure:"path" yaml:"path"`
	Seeds    string `mapstructure:"seeds" yaml:"seeds"`
	Table    string `mapstructure:"table" yaml:"table"`
	LockFile string `mapstructure:"lock_file" yaml:"lock_file"`
}

// Config holds the application configuration
type Config struct {
	Default     string                   `mapstructure:"default" yaml:"default"`
	Connections map[string]client.Config `mapstructure:"connections" yaml:"connections"`
	Migrations  Migrations               `mapstructure:"migrations" yaml:"migrations"`
	Debug       bool                     `mapstructure:"debug" yaml:"debug,omitempty"`

	// File is the configuration file that was read, if any.
	File string `mapstructure:"-" yaml:"-"`
}

// Default returns the configuration written by "dbkit init".
func Default() *Config {
	return &Config{
		Default: client.DefaultName,
		Connections: map[string]client.Config{
			client.DefaultName: {Dialect: "sqlite", DSN: "dbkit.db"},
		},
		Migrations: Migrations{
			Path:     "database/migrations",
			Seeds:    "database/seeds",
			Table:    "migrations",
			LockFile: ".dbkit.lock",
		},
	}
}

// Load reads the configuration into v. An explicit file must exist;
// otherwise .dbkit.yaml is looked up in the working directory, the home
// directory and ~/.config/dbkit. .env and .env.local are loaded first so
// DBKIT_* variables in them take effect.
func Load(v *viper.Viper, file string) (*Config, error) {
	loadDotEnv()

	def := Default()
	v.SetDefault("default", def.Default)
	v.SetDefault("migrations.path", def.Migrations.Path)
	v.SetDefault("migrations.seeds", def.Migrations.Seeds)
	v.SetDefault("migrations.table", def.Migrations.Table)
	v.SetDefault("migrations.lock_file", def.Migrations.LockFile)
	v.SetDefault("debug", false)

	v.SetFs(AppFs)
	// Keys with defaults are also read from the environment, migrations.path
	// from DBKIT_MIGRATIONS_PATH.
	v.SetEnvPrefix("DBKIT")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName(".dbkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", "dbkit"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	// DBKIT_DIALECT and DBKIT_DSN describe the default connection when the
	// file configures none.
	if dsn := v.GetString("dsn"); dsn != "" {
		if cfg.Connections == nil {
			cfg.Connections = make(map[string]client.Config)
		}
		c := cfg.Connections[cfg.Default]
		c.DSN = dsn
		if d := v.GetString("dialect"); d != "" {
			c.Dialect = d
		}
		cfg.Connections[cfg.Default] = c
	}
	return cfg, nil
}

func loadDotEnv() {
	// .env only fills unset variables; .env.local overrides them.
	for _, f := range []struct {
		name     string
		override bool
	}{{".env", false}, {".env.local", true}} {
		data, err := afero.ReadFile(AppFs, f.name)
		if err != nil {
			continue
		}
		env, err := godotenv.Unmarshal(string(data))
		if err != nil {
			continue
		}
		setEnv(env, f.override)
	}
}

// Connection returns the named connection, the default one if name is empty.
func (c *Config) Connection(name string) (string, client.Config, error) {
	if len(c.Connections) == 0 {
		return "", client.Config{}, ErrNoConnections
	}
	if name == "" {
		name = c.Default
	}
	conn, ok := c.Connections[name]
	if !ok {
		return "", client.Config{}, fmt.Errorf("connection %q is not configured (have %v)", name, c.Names())
	}
	return name, conn, nil
}

// Names returns the configured connection names, sorted.
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Connections))
	for n := range c.Connections {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Save writes cfg as YAML to path, refusing to overwrite an existing file.
func Save(cfg *Config, path string) error {
	if ok, _ := afero.Exists(AppFs, path); ok {
		return fmt.Errorf("%s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := AppFs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return afero.WriteFile(AppFs, path, data, 0o644)
}
