package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. AS400API_HOST_ADDRESS for host.address.
const EnvPrefix = "AS400API"

// ConfigFileEnv names an explicit configuration file, bypassing the search path.
const ConfigFileEnv = EnvPrefix + "_CONFIG_FILE"

// keys without a default that must still be bindable from the environment
var envOnlyKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"host.address",
	"host.user",
	"host.password",
	"host.private_key_path",
	"host.known_hosts_path",
	"host.policy_file",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("host.port", 22)
	v.SetDefault("host.max_sessions", 4)
	v.SetDefault("host.requests_per_second", 10)
	v.SetDefault("host.burst", 20)
	v.SetDefault("host.dial_timeout_seconds", 10)
	v.SetDefault("host.command_timeout_seconds", 60)
	v.SetDefault("host.system_path", "/QOpenSys/usr/bin/system")
	v.SetDefault("host.db2util_path", "/QOpenSys/pkgs/bin/db2util")
	v.SetDefault("host.max_rows", 1000)
	v.SetDefault("host.max_output_bytes", 16<<20)
	v.SetDefault("host.allow_write_sql", false)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
}

// readConfigFile loads config.yaml from the working directory or ./config.
// A missing file is not an error; a malformed one is.
func readConfigFile(v *viper.Viper) error {
	if explicit := v.GetString("config_file"); explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", explicit, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
