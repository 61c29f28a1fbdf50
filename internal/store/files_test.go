package store_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/store"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

func newStoreConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{}
	cfg.Graph.Dir = filepath.Join(t.TempDir(), "schema_graph")
	cfg.ApplyDefaults()
	return cfg
}

func sampleTable(schema, name string, extraColumns ...string) *graph.Table {
	columns := []graph.Column{
		{Name: "id", Type: "int4", SQLType: "int4", IsIdentity: true, Keywords: []string{}},
	}
	for _, col := range extraColumns {
		maxLen := 120
		columns = append(columns, graph.Column{
			Name:       col,
			Type:       "varchar",
			SQLType:    "varchar(120)",
			MaxLength:  &maxLen,
			IsNullable: true,
			Keywords:   []string{},
		})
	}

	return &graph.Table{
		TableName:  name,
		Schema:     schema,
		ObjectType: "table",
		Columns:    columns,
		PrimaryKey: &graph.PrimaryKey{
			ConstraintName: "pk_" + name,
			Columns:        []string{"id"},
			ColumnDetails:  []graph.PrimaryKeyColumn{{Name: "id", Ordinal: 1}},
		},
		ForeignKeys:       []graph.ForeignKey{},
		UniqueConstraints: []graph.UniqueConstraint{},
		Indexes:           []graph.Index{},
		CheckConstraints:  []graph.CheckConstraint{},
		Keywords:          []string{},
		Relationships: graph.Relationships{
			Outgoing:   []graph.OutgoingRelationship{},
			Incoming:   []graph.IncomingRelationship{},
			ManyToMany: []graph.ManyToManyRelationship{},
		},
		Statistics: graph.Statistics{
			TotalColumns:    len(columns),
			NullableColumns: len(extraColumns),
		},
	}
}

func sampleIndex(database string, tables ...*graph.Table) *graph.SchemaIndex {
	index := &graph.SchemaIndex{
		DatabaseName:   database,
		ExtractionID:   "extraction-1",
		ExtractionDate: "2026-08-23T10:00:00Z",
		TotalSchemas:   1,
		TotalTables:    len(tables),
		Schemas:        []graph.SchemaSummary{{Name: "public", TableCount: len(tables)}},
		Tables:         []graph.TableIndexEntry{},
		Views:          []graph.ViewIndexEntry{},
		RelationshipSummary: graph.RelationshipSummary{
			ManyToManyPatterns: []graph.ManyToManyPattern{},
		},
	}

	for _, table := range tables {
		names := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			names = append(names, col.Name)
		}
		index.Tables = append(index.Tables, graph.TableIndexEntry{
			Table:       table.TableName,
			Schema:      table.Schema,
			ObjectType:  "table",
			Keywords:    []string{},
			ColumnNames: names,
			PrimaryKey:  []string{"id"},
		})
	}

	return index
}

func TestFilesStoreWriteAndLoadRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	table := sampleTable("public", "patients", "full_name", "mrn")
	require.NoError(t, s.WriteTable(table))

	assert.FileExists(t, filepath.Join(dir, "public", "patients.yaml"))

	loaded, err := s.LoadTable("public", "patients")
	require.NoError(t, err)
	assert.Equal(t, table, loaded)
}

func TestFilesStoreLoadTableMissing(t *testing.T) {
	s := store.NewFilesStore(t.TempDir(), logger.NewNop())

	_, err := s.LoadTable("public", "ghost")
	assert.Error(t, err)
}

func TestFilesStoreMergePreservesDocumentation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	documented := sampleTable("public", "patients", "full_name")
	documented.Description = "Registered patients and their demographics."
	documented.Keywords = []string{"patient", "demographics"}
	documented.Columns[1].Description = "Legal name as printed on the insurance card."
	documented.Columns[1].Keywords = []string{"name"}
	require.NoError(t, s.WriteTable(documented))

	// A re-extraction produces a structurally fresh, undocumented build.
	fresh := sampleTable("public", "patients", "full_name", "discharged_at")
	require.NoError(t, s.WriteTable(fresh))

	loaded, err := s.LoadTable("public", "patients")
	require.NoError(t, err)

	assert.Equal(t, "Registered patients and their demographics.", loaded.Description)
	assert.Equal(t, []string{"patient", "demographics"}, loaded.Keywords)
	assert.Len(t, loaded.Columns, 3, "structure should come from the fresh build")
	assert.Equal(t, "Legal name as printed on the insurance card.", loaded.Columns[1].Description)
	assert.Equal(t, []string{"name"}, loaded.Columns[1].Keywords)
	assert.Empty(t, loaded.Columns[2].Description, "new columns start undocumented")
}

func TestFilesStoreMergeDoesNotOverwriteFreshDocumentation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	stale := sampleTable("public", "doctors")
	stale.Description = "Old description."
	require.NoError(t, s.WriteTable(stale))

	fresh := sampleTable("public", "doctors")
	fresh.Description = "Practicing physicians."
	require.NoError(t, s.WriteTable(fresh))

	loaded, err := s.LoadTable("public", "doctors")
	require.NoError(t, err)
	assert.Equal(t, "Practicing physicians.", loaded.Description)
}

func TestFilesStoreRewriteIsByteStable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	first := sampleTable("public", "patients", "full_name")
	first.Description = "Registered patients."
	first.Columns[1].Keywords = []string{"name", "person"}
	require.NoError(t, s.WriteTable(first))

	path := filepath.Join(dir, "public", "patients.yaml")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Re-running the same build must not move a single byte.
	second := sampleTable("public", "patients", "full_name")
	require.NoError(t, s.WriteTable(second))

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestFilesStoreWriteIndexWritesMetadata(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	index := sampleIndex("clinic", sampleTable("public", "patients"))
	require.NoError(t, s.WriteIndex(index))

	assert.FileExists(t, filepath.Join(dir, "schema_index.yaml"))
	assert.FileExists(t, filepath.Join(dir, "metadata.yaml"))

	loaded, err := s.LoadIndex()
	require.NoError(t, err)
	assert.Equal(t, "clinic", loaded.DatabaseName)
	assert.Equal(t, 1, loaded.TotalTables)

	metadata, err := os.ReadFile(filepath.Join(dir, "metadata.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(metadata), "database_name: clinic")
	assert.Contains(t, string(metadata), "total_tables: 1")
}

func TestFilesStoreIndexMergeKeepsShortDescriptions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	first := sampleIndex("clinic", sampleTable("public", "patients"))
	first.Tables[0].ShortDescription = "Patient master data."
	require.NoError(t, s.WriteIndex(first))

	second := sampleIndex("clinic", sampleTable("public", "patients"))
	second.ExtractionID = "extraction-2"
	require.NoError(t, s.WriteIndex(second))

	loaded, err := s.LoadIndex()
	require.NoError(t, err)
	require.Len(t, loaded.Tables, 1)
	assert.Equal(t, "Patient master data.", loaded.Tables[0].ShortDescription)
	assert.Equal(t, "extraction-2", loaded.ExtractionID, "index bookkeeping should follow the new build")
}

func TestFilesStoreLoadIndexMissing(t *testing.T) {
	s := store.NewFilesStore(filepath.Join(t.TempDir(), "never_written"), logger.NewNop())

	_, err := s.LoadIndex()
	assert.ErrorIs(t, err, store.ErrIndexNotFound)
}

func TestFilesStoreBackupCopiesExistingGraph(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	require.NoError(t, s.WriteTable(sampleTable("public", "patients")))
	require.NoError(t, s.WriteIndex(sampleIndex("clinic", sampleTable("public", "patients"))))

	backupDir, err := s.Backup()
	require.NoError(t, err)
	require.NotEmpty(t, backupDir)

	assert.Contains(t, filepath.Base(backupDir), "schema_graph_backup_")
	assert.FileExists(t, filepath.Join(backupDir, "public", "patients.yaml"))
	assert.FileExists(t, filepath.Join(backupDir, "schema_index.yaml"))

	// The originals stay in place so the next write can merge against them.
	assert.FileExists(t, filepath.Join(dir, "public", "patients.yaml"))
}

func TestFilesStoreBackupWithoutExistingGraph(t *testing.T) {
	s := store.NewFilesStore(filepath.Join(t.TempDir(), "never_written"), logger.NewNop())

	backupDir, err := s.Backup()
	require.NoError(t, err)
	assert.Empty(t, backupDir)
}

func TestFilesStorePruneRemovesStaleDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	require.NoError(t, s.WriteTable(sampleTable("public", "patients")))
	require.NoError(t, s.WriteTable(sampleTable("public", "doctors")))
	require.NoError(t, s.WriteTable(sampleTable("archive", "visits_2019")))

	keep := map[graph.TableKey]struct{}{
		{Schema: "public", Table: "patients"}: {},
		{Schema: "public", Table: "doctors"}:  {},
	}

	removed, err := s.Prune(keep)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.FileExists(t, filepath.Join(dir, "public", "patients.yaml"))
	assert.NoFileExists(t, filepath.Join(dir, "archive", "visits_2019.yaml"))
	assert.NoDirExists(t, filepath.Join(dir, "archive"), "emptied schema directories are dropped")
}

func TestFilesStoreLoadTablesSkipsUnreadableDocuments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	require.NoError(t, s.WriteTable(sampleTable("public", "doctors")))
	require.NoError(t, s.WriteTable(sampleTable("public", "patients")))
	require.NoError(t, s.WriteIndex(sampleIndex("clinic")))

	broken := filepath.Join(dir, "public", "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("table_name: [unterminated"), 0o644))

	tables, err := s.LoadTables()
	require.NoError(t, err)

	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.TableName)
	}
	assert.Equal(t, []string{"doctors", "patients"}, names, "index and metadata files are not table documents")
}

func TestFilesStoreSanitizesPathSegments(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "schema_graph")
	s := store.NewFilesStore(dir, logger.NewNop())

	table := sampleTable("billing/2024", "open invoices")
	require.NoError(t, s.WriteTable(table))

	assert.FileExists(t, filepath.Join(dir, "billing_2024", "open_invoices.yaml"))

	loaded, err := s.LoadTable("billing/2024", "open invoices")
	require.NoError(t, err)
	assert.Equal(t, "open invoices", loaded.TableName)
}

func TestNewStoreSelectsFilesBackend(t *testing.T) {
	cfg := newStoreConfig(t)

	s, err := store.NewStore(cfg, logger.NewNop())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "files", s.Kind())
}

func TestNewStoreRejectsUnknownBackend(t *testing.T) {
	cfg := newStoreConfig(t)
	cfg.Graph.Store = "redis"

	_, err := store.NewStore(cfg, logger.NewNop())
	assert.Error(t, err)
}
