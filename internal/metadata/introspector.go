package metadata

import (
	"fmt"

	"github.com/kadirbelkuyu/schemagraph/internal/database"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// Introspector reads a database catalog into a Snapshot of flat rows.
// Implementations exist per engine; all of them return the same row
// shapes so the graph builder never needs to know the source dialect.
type Introspector interface {
	Snapshot(filter Filter) (*Snapshot, error)
}

func NewIntrospector(conn *database.Connection, log *logger.Logger) (Introspector, error) {
	switch conn.Config.Database.Type {
	case "", "postgres":
		return NewPostgresIntrospector(conn, log), nil
	case "mysql":
		return NewMySQLIntrospector(conn, log), nil
	case "sqlite":
		return NewSQLiteIntrospector(conn, log), nil
	default:
		return nil, fmt.Errorf("unsupported database type for introspection: %s", conn.Config.Database.Type)
	}
}
