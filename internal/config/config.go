package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Host     HostConfig     `mapstructure:"host"     validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"     validate:"gte=0"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"    validate:"gte=0"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0,lte=1440"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0,gtfield=TokenLifetimeMinutes"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"required,gte=4,lte=31"`
}

// HostConfig describes how to reach the IBM i host over SSH and how
// hard the gateway may drive it.
type HostConfig struct {
	Address               string `mapstructure:"address"                 validate:"required,hostname|ip"`
	Port                  int    `mapstructure:"port"                    validate:"required,gt=0,lt=65536"`
	User                  string `mapstructure:"user"                    validate:"required,max=10"`
	Password              string `mapstructure:"password"                validate:"required_without=PrivateKeyPath"`
	PrivateKeyPath        string `mapstructure:"private_key_path"        validate:"required_without=Password"`
	KnownHostsPath        string `mapstructure:"known_hosts_path"`
	MaxSessions           int    `mapstructure:"max_sessions"            validate:"required,gt=0,lte=64"`
	RequestsPerSecond     int    `mapstructure:"requests_per_second"     validate:"required,gt=0"`
	Burst                 int    `mapstructure:"burst"                   validate:"required,gt=0"`
	DialTimeoutSeconds    int    `mapstructure:"dial_timeout_seconds"    validate:"required,gt=0"`
	CommandTimeoutSeconds int    `mapstructure:"command_timeout_seconds" validate:"required,gt=0"`
	SystemPath            string `mapstructure:"system_path"             validate:"required"`
	DB2UtilPath           string `mapstructure:"db2util_path"            validate:"required"`
	MaxRows               int    `mapstructure:"max_rows"                validate:"required,gt=0,lte=100000"`
	MaxOutputBytes        int    `mapstructure:"max_output_bytes"        validate:"required,gt=0"`
	AllowWriteSQL         bool   `mapstructure:"allow_write_sql"`
	PolicyFile            string `mapstructure:"policy_file"`
}

// DialTimeout returns the SSH connect timeout as a duration.
func (h HostConfig) DialTimeout() time.Duration {
	return time.Duration(h.DialTimeoutSeconds) * time.Second
}

// CommandTimeout returns the per-operation timeout as a duration.
func (h HostConfig) CommandTimeout() time.Duration {
	return time.Duration(h.CommandTimeoutSeconds) * time.Second
}

// TaskConfig contains settings for the background task runner.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count"           validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size"             validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
}
