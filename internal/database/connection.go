package database

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kadirbelkuyu/schemagraph/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type Connection struct {
	DB     *sql.DB
	Config *config.Config
}

func NewConnection(cfg *config.Config) (*Connection, error) {
	driver, err := driverName(cfg.Database.Type)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, cfg.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// modernc's sqlite driver does not tolerate concurrent writers on a
	// single file handle.
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	return &Connection{
		DB:     db,
		Config: cfg,
	}, nil
}

func (c *Connection) Close() error {
	return c.DB.Close()
}

// GetDatabaseName returns a logical name for the connected database. For
// sqlite this is the file name without its extension.
func (c *Connection) GetDatabaseName() string {
	if c.Config.Database.Type == "sqlite" {
		base := filepath.Base(c.Config.Database.Path)
		return strings.TrimSuffix(base, filepath.Ext(base))
	}
	return c.Config.Database.Database
}

func driverName(dbType string) (string, error) {
	switch dbType {
	case "", "postgres":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlite":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("unsupported database type for SQL connection: %s", dbType)
	}
}
