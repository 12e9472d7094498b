package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

var (
	// ConfigPath is the variable which stores the config path command line parameter
	ConfigPath string
	// Verbose is set by the command line to force debug logging
	Verbose bool
)

// Config stores the config for the tool
type Config struct {
	// APIServerAddr address the API server binds to
	APIServerAddr string `json:"server_addr" mapstructure:"server_addr"`
	// Execution configuration of the strategy executor
	Execution ExecutionConfig `json:"execution" mapstructure:"execution"`
	// Log configuration for logging
	Log LogConfig `json:"log" mapstructure:"log"`
	// Archive configuration of the MySQL outcome archive
	Archive ArchiveConfig `json:"archive" mapstructure:"archive"`
	// Relay configuration of the Redis progress relay
	Relay RelayConfig `json:"relay" mapstructure:"relay"`
	// ReportPath file the CLI writes the final run report to. Empty disables it
	ReportPath string `json:"report_path" mapstructure:"report_path"`
}

// ExecutionConfig bounds how candidate strategies are run
type ExecutionConfig struct {
	// MaxConcurrent number of strategies executed concurrently within a batch
	MaxConcurrent int `json:"max_concurrent" mapstructure:"max_concurrent"`
	// StrategyTimeout wall clock budget for one strategy run
	StrategyTimeout time.Duration `json:"strategy_timeout" mapstructure:"strategy_timeout"`
	// EarlyStopOnSuccess terminates remaining work once a strategy clears the accuracy threshold
	EarlyStopOnSuccess bool `json:"early_stop_on_success" mapstructure:"early_stop_on_success"`
	// StepDelay base latency of one simulated pipeline step
	StepDelay time.Duration `json:"step_delay" mapstructure:"step_delay"`
	// Seed for the simulated agents. Zero picks a time based seed
	Seed int64 `json:"seed" mapstructure:"seed"`
}

// LogConfig stores the config for logging purpose
type LogConfig struct {
	// Path of the log file. Empty logs to stderr
	Path string `json:"path" mapstructure:"path"`
	// Format to log. Only `json` is currently supported
	Format string `json:"format" mapstructure:"format"`
	// Level log level, one of panic|fatal|error|warn|warning|info|debug|trace
	Level string `json:"level" mapstructure:"level"`
	// MaxSizeMB size at which the log file is rotated
	MaxSizeMB int `json:"max_size_mb" mapstructure:"max_size_mb"`
	// MaxBackups rotated files to retain
	MaxBackups int `json:"max_backups" mapstructure:"max_backups"`
	// MaxAgeDays age after which rotated files are dropped
	MaxAgeDays int `json:"max_age_days" mapstructure:"max_age_days"`
	// Compress rotated files
	Compress bool `json:"compress" mapstructure:"compress"`
}

// ArchiveConfig coordinates of the MySQL database run outcomes are archived to
type ArchiveConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`
	Name     string `json:"name" mapstructure:"name"`
}

// RelayConfig coordinates of the Redis instance progress events are relayed to
type RelayConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	// ChannelPrefix namespaces the pub/sub channels events are published on
	ChannelPrefix string `json:"channel_prefix" mapstructure:"channel_prefix"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "0.0.0.0:7074")
	v.SetDefault("execution.max_concurrent", 3)
	v.SetDefault("execution.strategy_timeout", "1h")
	v.SetDefault("execution.early_stop_on_success", false)
	v.SetDefault("execution.step_delay", "25ms")
	v.SetDefault("execution.seed", 0)
	v.SetDefault("log.path", "")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", true)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.host", "127.0.0.1")
	v.SetDefault("archive.port", 3306)
	v.SetDefault("archive.user", "automl")
	v.SetDefault("archive.name", "automl")
	v.SetDefault("relay.enabled", false)
	v.SetDefault("relay.addr", "127.0.0.1:6379")
	v.SetDefault("relay.db", 0)
	v.SetDefault("relay.channel_prefix", "automl")
}

// ParseConfig parses config from the specified file. An empty path yields the defaults
func ParseConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %s", err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %s", err)
	}
	return &conf, nil
}

// DefaultConfig returns the configuration with every default applied
func DefaultConfig() *Config {
	conf, _ := ParseConfig("")
	return conf
}
