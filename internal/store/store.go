package store

import (
	"errors"
	"fmt"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// ErrIndexNotFound is returned when the store holds no schema index yet,
// typically because no extraction has run against it.
var ErrIndexNotFound = errors.New("schema index not found")

// Store persists and loads the documents produced by a graph build: one
// document per table plus the flat schema index. Writes merge against
// whatever the store already holds so curated descriptions and keywords
// survive re-extraction.
type Store interface {
	Kind() string

	// Backup snapshots the current contents before a rewrite and returns
	// the backup location, or "" when there is nothing to back up.
	Backup() (string, error)

	WriteTable(table *graph.Table) error
	WriteIndex(index *graph.SchemaIndex) error

	// Prune removes table documents absent from keep and reports how
	// many were dropped.
	Prune(keep map[graph.TableKey]struct{}) (int, error)

	LoadTable(schema, table string) (*graph.Table, error)
	LoadTables() ([]*graph.Table, error)
	LoadIndex() (*graph.SchemaIndex, error)

	Close() error
}

// NewStore returns the store selected by graph.store in the config.
func NewStore(cfg *config.Config, log *logger.Logger) (Store, error) {
	switch cfg.Graph.Store {
	case "", "files":
		return NewFilesStore(cfg.Graph.Dir, log), nil
	case "mongo", "mongodb":
		return NewMongoStore(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported graph store: %s", cfg.Graph.Store)
	}
}
