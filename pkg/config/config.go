package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete kaksonen configuration
type Config struct {
	SSH        SSHConfig        `mapstructure:"ssh"`
	MySQL      MySQLConfig      `mapstructure:"mysql"`
	Xtrabackup XtrabackupConfig `mapstructure:"xtrabackup"`
	Output     OutputConfig     `mapstructure:"output"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// SSHConfig contains the transport settings used for both hosts
type SSHConfig struct {
	User       string        `mapstructure:"user"`
	Port       int           `mapstructure:"port"`
	Key        string        `mapstructure:"key"`
	KnownHosts string        `mapstructure:"known_hosts"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SudoWrites bool          `mapstructure:"sudo_writes"`
}

// MySQLConfig contains database-side settings
type MySQLConfig struct {
	DefaultsFile     string   `mapstructure:"defaults_file"`
	User             string   `mapstructure:"user"`
	Password         string   `mapstructure:"password"`
	Port             int      `mapstructure:"port"`
	ServiceAccount   string   `mapstructure:"service_account"`
	ConfigCandidates []string `mapstructure:"config_candidates"`
}

// XtrabackupConfig contains the capture, compress and transfer commands
type XtrabackupConfig struct {
	Binary          string `mapstructure:"binary"`
	CompressCommand string `mapstructure:"compress_command"`
	Sender          string `mapstructure:"sender"`
	ApplyLog        string `mapstructure:"apply_log"`
	ErrorLogDir     string `mapstructure:"error_log_dir"`
}

// OutputConfig contains output formatting configuration
type OutputConfig struct {
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		SSH: SSHConfig{
			User:       "root",
			Port:       22,
			Key:        "~/.ssh/id_rsa",
			KnownHosts: "",
			Timeout:    30 * time.Second,
			SudoWrites: true,
		},
		MySQL: MySQLConfig{
			DefaultsFile:   "~/.my.cnf",
			User:           "root",
			Port:           3306,
			ServiceAccount: "mysql",
			ConfigCandidates: []string{
				"/etc/my.cnf",
				"/etc/mysql/my.cnf",
			},
		},
		Xtrabackup: XtrabackupConfig{
			Binary:          "xtrabackup",
			CompressCommand: "gzip -c -",
			Sender:          "ncat",
			ApplyLog:        "/tmp/xtrabackup-apply-log.log",
			ErrorLogDir:     "/tmp",
		},
		Output: OutputConfig{
			Format:  "table",
			NoColor: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}

// Load loads configuration from various sources
func Load() (*Config, error) {
	return LoadWith(viper.GetViper())
}

// LoadWith loads configuration through the given viper instance
func LoadWith(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	setDefaults(v, config)

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".kaksonen"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("KAKSONEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("logging.level", "KAKSONEN_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("mysql.password", "KAKSONEN_MYSQL_PASSWORD", "MYSQL_PWD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is not an error - we'll use defaults
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return config, nil
}

// setDefaults registers every default so env overrides resolve on Unmarshal
func setDefaults(v *viper.Viper, c *Config) {
	v.SetDefault("ssh.user", c.SSH.User)
	v.SetDefault("ssh.port", c.SSH.Port)
	v.SetDefault("ssh.key", c.SSH.Key)
	v.SetDefault("ssh.known_hosts", c.SSH.KnownHosts)
	v.SetDefault("ssh.timeout", c.SSH.Timeout)
	v.SetDefault("ssh.sudo_writes", c.SSH.SudoWrites)

	v.SetDefault("mysql.defaults_file", c.MySQL.DefaultsFile)
	v.SetDefault("mysql.user", c.MySQL.User)
	v.SetDefault("mysql.password", c.MySQL.Password)
	v.SetDefault("mysql.port", c.MySQL.Port)
	v.SetDefault("mysql.service_account", c.MySQL.ServiceAccount)
	v.SetDefault("mysql.config_candidates", c.MySQL.ConfigCandidates)

	v.SetDefault("xtrabackup.binary", c.Xtrabackup.Binary)
	v.SetDefault("xtrabackup.compress_command", c.Xtrabackup.CompressCommand)
	v.SetDefault("xtrabackup.sender", c.Xtrabackup.Sender)
	v.SetDefault("xtrabackup.apply_log", c.Xtrabackup.ApplyLog)
	v.SetDefault("xtrabackup.error_log_dir", c.Xtrabackup.ErrorLogDir)

	v.SetDefault("output.format", c.Output.Format)
	v.SetDefault("output.no_color", c.Output.NoColor)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.file", c.Logging.File)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SSH.User == "" {
		return fmt.Errorf("ssh.user is required")
	}
	if c.SSH.Port <= 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port must be between 1 and 65535, got %d", c.SSH.Port)
	}
	if c.MySQL.Port <= 0 || c.MySQL.Port > 65535 {
		return fmt.Errorf("mysql.port must be between 1 and 65535, got %d", c.MySQL.Port)
	}
	if len(c.MySQL.ConfigCandidates) == 0 {
		return fmt.Errorf("mysql.config_candidates must list at least one path")
	}
	if c.MySQL.ServiceAccount == "" {
		return fmt.Errorf("mysql.service_account is required")
	}
	if c.Xtrabackup.Binary == "" {
		return fmt.Errorf("xtrabackup.binary is required")
	}
	if c.Xtrabackup.Sender == "" {
		return fmt.Errorf("xtrabackup.sender is required")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	switch c.Output.Format {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("output.format must be table, json or yaml, got %q", c.Output.Format)
	}

	return nil
}

// ExpandPaths expands home directory paths
func (c *Config) ExpandPaths() error {
	var err error

	c.SSH.Key, err = expandPath(c.SSH.Key)
	if err != nil {
		return fmt.Errorf("failed to expand ssh key path: %w", err)
	}

	c.SSH.KnownHosts, err = expandPath(c.SSH.KnownHosts)
	if err != nil {
		return fmt.Errorf("failed to expand known_hosts path: %w", err)
	}

	c.MySQL.DefaultsFile, err = expandPath(c.MySQL.DefaultsFile)
	if err != nil {
		return fmt.Errorf("failed to expand defaults file path: %w", err)
	}

	c.Logging.File, err = expandPath(c.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to expand log file path: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path, err
	}

	if len(path) == 1 {
		return home, nil
	}

	return filepath.Join(home, path[1:]), nil
}
