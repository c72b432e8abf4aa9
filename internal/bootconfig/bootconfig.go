package bootconfig

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default connection settings for a local development database. The
// orchestration layer normally overrides these through the environment.
const (
	DefaultPostgresHost = "localhost"
	DefaultPostgresPort = 5432
	DefaultDatabase     = "tenant_db"
	DefaultAdminRole    = "tenant_admin"
)

// Environment variable names for database configuration
const (
	EnvPostgresHost     = "TENANTDB_POSTGRES_HOST"
	EnvPostgresPort     = "TENANTDB_POSTGRES_PORT"
	EnvPostgresUser     = "TENANTDB_POSTGRES_USER"
	EnvPostgresPassword = "TENANTDB_POSTGRES_PASSWORD"
	EnvPostgresDatabase = "TENANTDB_POSTGRES_DATABASE"
	EnvAdminRole        = "TENANTDB_ADMIN_ROLE"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	Name           string        `yaml:"name"`
	User           string        `yaml:"user"`
	AdminRole      string        `yaml:"admin_role"`
	SSLMode        string        `yaml:"ssl_mode"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the configuration file, applies defaults and then environment
// overrides. A missing file is not an error: deployments that configure
// everything through the environment run without one.
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyDefaults()
	config.applyEnvironment()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Host == "" {
		c.Database.Host = DefaultPostgresHost
	}
	if c.Database.Port == 0 {
		c.Database.Port = DefaultPostgresPort
	}
	if c.Database.Name == "" {
		c.Database.Name = DefaultDatabase
	}
	if c.Database.AdminRole == "" {
		c.Database.AdminRole = DefaultAdminRole
	}
	if c.Database.User == "" {
		// The administrative role doubles as the connecting user unless
		// a separate superuser is configured.
		c.Database.User = c.Database.AdminRole
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnvironment() {
	if host := os.Getenv(EnvPostgresHost); host != "" {
		c.Database.Host = host
	}
	if portStr := os.Getenv(EnvPostgresPort); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Database.Port = port
		}
	}
	if user := os.Getenv(EnvPostgresUser); user != "" {
		c.Database.User = user
	}
	if name := os.Getenv(EnvPostgresDatabase); name != "" {
		c.Database.Name = name
	}
	if role := os.Getenv(EnvAdminRole); role != "" {
		c.Database.AdminRole = role
	}
}

func (c *Config) validate() error {
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required in configuration")
	}
	if c.Database.AdminRole == "" {
		return fmt.Errorf("database.admin_role is required in configuration")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port %d is out of range", c.Database.Port)
	}
	return nil
}
