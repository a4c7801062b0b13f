package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/dagline/pkg/linearize"
	"github.com/Sumatoshi-tech/dagline/pkg/plancache"
)

// configName is the config file name without extension.
const configName = "dagline"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for dagline settings.
const envPrefix = "DAGLINE"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Default values.
const (
	DefaultStrategy          = linearize.StrategyResourceAware
	DefaultMaxStates         = linearize.DefaultMaxStates
	DefaultParallelThreshold = linearize.DefaultParallelThreshold
	DefaultCacheEnabled      = true
	DefaultCacheMaxEntries   = plancache.DefaultMaxEntries
	DefaultLogLevel          = "info"
	DefaultLogFormat         = FormatText
	DefaultOutputFormat      = FormatTable
	DefaultSampleRatio       = 1.0
)

// LoadConfig loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, dagline.yaml is searched in the working directory, ./config,
// and $HOME/.config/dagline. A missing config file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("search.strategy", DefaultStrategy)
	viperCfg.SetDefault("search.max_states", DefaultMaxStates)
	viperCfg.SetDefault("search.parallel_threshold", DefaultParallelThreshold)

	viperCfg.SetDefault("cache.enabled", DefaultCacheEnabled)
	viperCfg.SetDefault("cache.directory", "")
	viperCfg.SetDefault("cache.max_entries", DefaultCacheMaxEntries)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.format", DefaultLogFormat)

	viperCfg.SetDefault("output.format", DefaultOutputFormat)

	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
}
