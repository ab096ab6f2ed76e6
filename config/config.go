// Package config loads the static process configuration from a yaml file,
// with GELLY_-prefixed environment overrides. Configuration is read once at
// startup and is not hot-reloadable.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/dangdungcntt/gelly/dbpool"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Database  dbpool.Config   `mapstructure:"database" yaml:"database"`
	Templates TemplatesConfig `mapstructure:"templates" yaml:"templates"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	// SessionHashKey signs the session cookie. A random key is generated at
	// startup when empty, which invalidates sessions across restarts.
	SessionHashKey string `mapstructure:"session_hash_key" yaml:"session_hash_key"`
}

type TemplatesConfig struct {
	Dir             string `mapstructure:"dir" yaml:"dir"`
	MaxIncludeDepth int    `mapstructure:"max_include_depth" yaml:"max_include_depth"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Load reads configuration from path, or from gelly.yaml in the working
// directory when path is empty (a missing default file is not an error).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:gelly.db?mode=memory&cache=shared")
	v.SetDefault("database.max_open", 10)
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.acquire_timeout", 5*time.Second)
	v.SetDefault("templates.dir", "pages")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("GELLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %q", path)
		}
	} else {
		v.SetConfigName("gelly")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "reading config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	return &cfg, nil
}
