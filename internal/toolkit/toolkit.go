// Package toolkit loads a persisted schema graph and answers structural
// questions about it: keyword search over the table documents, join-path
// discovery over the relationship graph, and compact table summaries.
// A Toolkit is immutable once constructed and safe for concurrent use.
package toolkit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/store"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

type Toolkit struct {
	index   *graph.SchemaIndex
	details map[string]*graph.Table
	order   []string
	edges   map[string][]JoinStep
	aliases map[string]string
	search  config.SearchConfig
	log     *logger.Logger
}

// New loads the schema index and every table document from the store. A
// missing index is fatal; unreadable table documents are skipped by the
// store with a warning; a missing or malformed alias map degrades to no
// aliases.
func New(st store.Store, search config.SearchConfig, log *logger.Logger) (*Toolkit, error) {
	index, err := st.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load schema index: %w", err)
	}

	tables, err := st.LoadTables()
	if err != nil {
		return nil, fmt.Errorf("failed to load table documents: %w", err)
	}

	details := make(map[string]*graph.Table, len(tables))
	for _, table := range tables {
		key := strings.ToLower(table.TableName)
		if prior, exists := details[key]; exists {
			log.Warnf("table name %s appears in schemas %s and %s, keeping the latter",
				table.TableName, prior.Schema, table.Schema)
		}
		details[key] = table
	}

	order := make([]string, 0, len(details))
	for key := range details {
		order = append(order, key)
	}
	sort.Strings(order)

	t := &Toolkit{
		index:   index,
		details: details,
		order:   order,
		search:  search,
		log:     log,
	}
	t.edges = t.buildAdjacency()
	t.aliases = loadAliasMap(search.AliasFile, log)
	if len(t.aliases) > 0 {
		log.Infof("loaded %d alias entries", len(t.aliases))
	}

	log.Debugf("toolkit ready with %d tables", len(details))
	return t, nil
}

// Index returns the loaded schema index.
func (t *Toolkit) Index() *graph.SchemaIndex { return t.index }

// Tables returns the loaded table documents, ordered by lower-cased name.
func (t *Toolkit) Tables() []*graph.Table {
	tables := make([]*graph.Table, 0, len(t.order))
	for _, key := range t.order {
		tables = append(tables, t.details[key])
	}
	return tables
}

// ListTables returns every loaded table name, sorted.
func (t *Toolkit) ListTables() []string {
	names := make([]string, 0, len(t.order))
	for _, key := range t.order {
		names = append(names, t.details[key].TableName)
	}
	sort.Strings(names)
	return names
}

// DescribeTable returns the document for a table name, matched
// case-insensitively, or nil when the graph has no such table.
func (t *Toolkit) DescribeTable(name string) *graph.Table {
	return t.details[strings.ToLower(name)]
}
