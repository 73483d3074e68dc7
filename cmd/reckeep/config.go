package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjk/reckeep/recstore"
	"github.com/spf13/viper"
)

type Config struct {
	StorePath    string   `yaml:"store_path" mapstructure:"store_path"`
	Fields       []string `yaml:"fields" mapstructure:"fields"`
	NumericField string   `yaml:"numeric_field" mapstructure:"numeric_field"`
	LogDir       string   `yaml:"log_dir" mapstructure:"log_dir"`
	Verbose      bool     `yaml:"verbose" mapstructure:"verbose"`
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("store_path", recstore.DefaultPath)
	v.SetDefault("fields", recstore.DefaultFields)
	v.SetDefault("numeric_field", "")
	v.SetDefault("log_dir", "")
	v.SetDefault("verbose", false)
}

// loadConfig reads config from (in order of precedence) flags bound to v,
// RECKEEP_* env variables, config file and defaults.
// If configFile is empty, reckeep.yaml is looked up in current directory
// and $XDG_CONFIG_HOME/reckeep (or ~/.config/reckeep). It's ok if it doesn't exist.
func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	setConfigDefaults(v)

	if configFile != "" {
		// explicitly asked for, must exist
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("reckeep")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "reckeep"))
		} else if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "reckeep"))
		}
	}

	v.SetEnvPrefix("RECKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// StoreConfig validates the config and converts it to recstore.Config
func (c *Config) StoreConfig() (recstore.Config, error) {
	if c.StorePath == "" {
		return recstore.Config{}, fmt.Errorf("config: store_path is required")
	}
	var fields []string
	for _, f := range c.Fields {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	schema, err := recstore.NewSchema(fields...)
	if err != nil {
		return recstore.Config{}, fmt.Errorf("config: fields: %w", err)
	}
	if c.NumericField != "" && !schema.Has(c.NumericField) {
		return recstore.Config{}, fmt.Errorf("config: numeric_field %q is not one of fields (%s)", c.NumericField, schema)
	}
	return recstore.Config{
		Path:         c.StorePath,
		Schema:       schema,
		NumericField: c.NumericField,
	}, nil
}
