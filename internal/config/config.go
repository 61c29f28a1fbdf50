package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	Path     string `yaml:"path"`
}

type GraphConfig struct {
	Dir          string `yaml:"dir"`
	Store        string `yaml:"store"`
	URI          string `yaml:"uri"`
	Database     string `yaml:"database"`
	AuthDatabase string `yaml:"auth_database"`
	BackupDir    string `yaml:"backup_dir"`
}

type BuilderConfig struct {
	IncludeSchemas      []string `yaml:"include_schemas"`
	ExcludeSchemas      []string `yaml:"exclude_schemas"`
	Workers             int      `yaml:"workers"`
	JunctionColumnLimit int      `yaml:"junction_column_limit"`
}

type SearchConfig struct {
	TopK                 int    `yaml:"top_k"`
	ExcludeColumnMatches bool   `yaml:"exclude_column_matches"`
	AliasFile            string `yaml:"alias_file"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Graph    GraphConfig    `yaml:"graph"`
	Builder  BuilderConfig  `yaml:"builder"`
	Search   SearchConfig   `yaml:"search"`
}

func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()

	return &config, nil
}

// ApplyDefaults fills in the defaults a hand-written config usually omits.
// It is also called on configs assembled programmatically, so it must be
// safe to run more than once.
func (c *Config) ApplyDefaults() {
	c.Database.Type = normalizeDatabaseType(c.Database.Type)

	switch c.Database.Type {
	case "postgres":
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "mysql":
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
	}

	if c.Graph.Dir == "" {
		c.Graph.Dir = "./schema_graph"
	}
	if c.Graph.Store == "" {
		c.Graph.Store = "files"
	}
	if c.Graph.Database == "" {
		c.Graph.Database = "schemagraph"
	}
	if c.Graph.BackupDir == "" {
		c.Graph.BackupDir = "./backups"
	}

	if c.Builder.Workers <= 0 {
		c.Builder.Workers = 4
	}
	if c.Builder.JunctionColumnLimit <= 0 {
		c.Builder.JunctionColumnLimit = 2
	}

	if c.Search.TopK <= 0 {
		c.Search.TopK = 5
	}
}

func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for %s", c.Database.Type)
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for %s", c.Database.Type)
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	switch c.Graph.Store {
	case "files":
	case "mongo":
		if c.Graph.URI == "" && c.Graph.Database == "" {
			return fmt.Errorf("graph.uri or graph.database is required for the mongo store")
		}
	default:
		return fmt.Errorf("unsupported graph store: %s", c.Graph.Store)
	}

	return nil
}

// GetConnectionString returns the driver DSN for the configured source
// database. SQLite uses the file path directly.
func (c *Config) GetConnectionString() string {
	switch c.Database.Type {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Database.Host,
			c.Database.Port,
			c.Database.Username,
			c.Database.Password,
			c.Database.Database,
			c.Database.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.Database.Username,
			c.Database.Password,
			c.Database.Host,
			c.Database.Port,
			c.Database.Database,
		)
	case "sqlite":
		return c.Database.Path
	}
	return ""
}

// GetMongoURI builds the connection URI for the mongo graph store.
func (c *Config) GetMongoURI() string {
	if c.Graph.URI != "" {
		return c.Graph.URI
	}

	host := c.Database.Host
	if host == "" {
		host = "localhost"
	}

	var credentials string
	if c.Database.Username != "" {
		credentials = url.QueryEscape(c.Database.Username)
		if c.Database.Password != "" {
			credentials = fmt.Sprintf("%s:%s", credentials, url.QueryEscape(c.Database.Password))
		}
		credentials += "@"
	}

	targetDatabase := strings.TrimSpace(c.Graph.Database)
	if targetDatabase != "" {
		targetDatabase = "/" + targetDatabase
	}

	uri := fmt.Sprintf("mongodb://%s%s:27017%s", credentials, host, targetDatabase)

	if c.Graph.AuthDatabase != "" {
		uri = fmt.Sprintf("%s?authSource=%s", uri, url.QueryEscape(c.Graph.AuthDatabase))
	}

	return uri
}

func normalizeDatabaseType(dbType string) string {
	dbType = strings.ToLower(strings.TrimSpace(dbType))
	if dbType == "" {
		return "postgres"
	}

	switch dbType {
	case "postgres", "postgresql", "pg":
		return "postgres"
	case "mysql", "mariadb":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return dbType
	}
}
