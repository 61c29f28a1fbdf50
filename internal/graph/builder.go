package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kadirbelkuyu/schemagraph/internal/metadata"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// Settings tune the build. JunctionColumnLimit is the maximum number of
// non-foreign-key columns a table may carry and still count as a pure
// junction table during many-to-many detection.
type Settings struct {
	JunctionColumnLimit int
	Workers             int
}

func DefaultSettings() Settings {
	return Settings{
		JunctionColumnLimit: 2,
		Workers:             4,
	}
}

// Builder turns one catalog snapshot into per-table records with derived
// relationships plus the flat schema index. Building is a pure function
// of the snapshot: the same rows always produce the same artifacts, in
// the same order.
type Builder struct {
	settings Settings
	logger   *logger.Logger
}

func NewBuilder(settings Settings, log *logger.Logger) *Builder {
	if settings.JunctionColumnLimit <= 0 {
		settings.JunctionColumnLimit = 2
	}
	return &Builder{
		settings: settings,
		logger:   log,
	}
}

func (b *Builder) Build(raw *metadata.Snapshot) *Artifacts {
	b.logger.Debugf("Building structured schema payload for database %s", raw.DatabaseName)

	groups := groupRows(raw)

	b.logger.Debugf("Processing %d tables for schema construction", len(raw.Tables))
	tables := b.assembleAll(raw, groups)

	lookup := make(map[TableKey]*Table, len(tables))
	order := make([]TableKey, 0, len(tables))
	for _, table := range tables {
		key := table.Key()
		lookup[key] = table
		order = append(order, key)
	}

	b.logger.Debugf("Deriving incoming relationships for %d tables", len(lookup))
	b.attachIncoming(lookup, order)

	summary := b.augmentManyToMany(lookup, order)
	b.logger.Debugf("Detected %d many-to-many patterns", len(summary.ManyToManyPatterns))

	views := b.buildViews(raw)

	index := b.buildSchemaIndex(raw.DatabaseName, tables, views, summary)
	b.logger.Debugf("Built schema index for database %s: %d tables, %d views",
		raw.DatabaseName, index.TotalTables, index.TotalViews)

	return &Artifacts{
		DatabaseName: raw.DatabaseName,
		Tables:       lookup,
		TableOrder:   order,
		Views:        views,
		Index:        index,
	}
}

// rowGroups pre-buckets every raw row list by table (and constraint or
// index name where rows span one), so per-table assembly is a lookup
// instead of a scan. Order slices keep first-seen order because map
// iteration would reshuffle constraints between runs.
type rowGroups struct {
	columns     map[TableKey][]metadata.ColumnRow
	primaryKeys map[TableKey][]metadata.PrimaryKeyRow
	checks      map[TableKey][]metadata.CheckConstraintRow

	foreignKeys map[TableKey]map[string][]metadata.ForeignKeyRow
	fkOrder     map[TableKey][]string

	indexes    map[TableKey]map[string][]metadata.IndexRow
	indexOrder map[TableKey][]string

	uniques     map[TableKey]map[string][]metadata.UniqueConstraintRow
	uniqueOrder map[TableKey][]string
}

func groupRows(raw *metadata.Snapshot) *rowGroups {
	groups := &rowGroups{
		columns:     make(map[TableKey][]metadata.ColumnRow),
		primaryKeys: make(map[TableKey][]metadata.PrimaryKeyRow),
		checks:      make(map[TableKey][]metadata.CheckConstraintRow),
		foreignKeys: make(map[TableKey]map[string][]metadata.ForeignKeyRow),
		fkOrder:     make(map[TableKey][]string),
		indexes:     make(map[TableKey]map[string][]metadata.IndexRow),
		indexOrder:  make(map[TableKey][]string),
		uniques:     make(map[TableKey]map[string][]metadata.UniqueConstraintRow),
		uniqueOrder: make(map[TableKey][]string),
	}

	for _, row := range raw.Columns {
		key := TableKey{Schema: row.Schema, Table: row.Table}
		groups.columns[key] = append(groups.columns[key], row)
	}
	for _, row := range raw.PrimaryKeys {
		key := TableKey{Schema: row.Schema, Table: row.Table}
		groups.primaryKeys[key] = append(groups.primaryKeys[key], row)
	}
	for _, row := range raw.CheckConstraints {
		key := TableKey{Schema: row.Schema, Table: row.Table}
		groups.checks[key] = append(groups.checks[key], row)
	}
	for _, row := range raw.ForeignKeys {
		key := TableKey{Schema: row.Schema, Table: row.Table}
		if groups.foreignKeys[key] == nil {
			groups.foreignKeys[key] = make(map[string][]metadata.ForeignKeyRow)
		}
		if _, seen := groups.foreignKeys[key][row.ConstraintName]; !seen {
			groups.fkOrder[key] = append(groups.fkOrder[key], row.ConstraintName)
		}
		groups.foreignKeys[key][row.ConstraintName] = append(groups.foreignKeys[key][row.ConstraintName], row)
	}
	for _, row := range raw.Indexes {
		key := TableKey{Schema: row.Schema, Table: row.Table}
		if groups.indexes[key] == nil {
			groups.indexes[key] = make(map[string][]metadata.IndexRow)
		}
		if _, seen := groups.indexes[key][row.IndexName]; !seen {
			groups.indexOrder[key] = append(groups.indexOrder[key], row.IndexName)
		}
		groups.indexes[key][row.IndexName] = append(groups.indexes[key][row.IndexName], row)
	}
	for _, row := range raw.UniqueConstraints {
		key := TableKey{Schema: row.Schema, Table: row.Table}
		if groups.uniques[key] == nil {
			groups.uniques[key] = make(map[string][]metadata.UniqueConstraintRow)
		}
		if _, seen := groups.uniques[key][row.ConstraintName]; !seen {
			groups.uniqueOrder[key] = append(groups.uniqueOrder[key], row.ConstraintName)
		}
		groups.uniques[key][row.ConstraintName] = append(groups.uniques[key][row.ConstraintName], row)
	}

	return groups
}

func (b *Builder) assembleTable(row metadata.TableRow, groups *rowGroups) *Table {
	key := TableKey{Schema: row.Schema, Table: row.Table}
	b.logger.Debugf("Building table payload for %s", key)

	columns := make([]Column, 0, len(groups.columns[key]))
	for _, col := range groups.columns[key] {
		columns = append(columns, buildColumn(col))
	}

	primaryKey := buildPrimaryKey(groups.primaryKeys[key])
	foreignKeys := buildForeignKeys(groups.foreignKeys[key], groups.fkOrder[key])
	indexes, indexedColumns := buildIndexes(groups.indexes[key], groups.indexOrder[key])
	uniques := buildUniqueConstraints(groups.uniques[key], groups.uniqueOrder[key])

	checks := make([]CheckConstraint, 0, len(groups.checks[key]))
	for _, check := range groups.checks[key] {
		checks = append(checks, CheckConstraint{
			ConstraintName: check.ConstraintName,
			Definition:     check.Definition,
			IsDisabled:     check.IsDisabled,
		})
	}

	return &Table{
		TableName:         row.Table,
		Schema:            row.Schema,
		ObjectType:        "table",
		Description:       row.Description,
		CreatedDate:       row.CreatedDate,
		ModifiedDate:      row.ModifiedDate,
		Columns:           columns,
		PrimaryKey:        primaryKey,
		ForeignKeys:       foreignKeys,
		UniqueConstraints: uniques,
		Indexes:           indexes,
		CheckConstraints:  checks,
		Keywords:          []string{},
		Relationships:     buildOutgoingRelationships(foreignKeys),
		Statistics:        tableStatistics(columns, indexedColumns),
	}
}

func buildColumn(row metadata.ColumnRow) Column {
	return Column{
		Name:               row.Column,
		Type:               strings.ToLower(row.DataType),
		SQLType:            composeSQLType(row),
		MaxLength:          row.MaxLength,
		Precision:          row.Precision,
		Scale:              row.Scale,
		IsNullable:         row.IsNullable,
		IsIdentity:         row.IsIdentity,
		IdentitySeed:       row.IdentitySeed,
		IdentityIncrement:  row.IdentityIncrement,
		IsComputed:         row.IsComputed,
		ComputedDefinition: row.ComputedDefinition,
		DefaultValue:       row.DefaultValue,
		Collation:          row.Collation,
		Description:        row.Description,
		Keywords:           []string{},
	}
}

// composeSQLType renders the full declared type for the column where the
// base name alone loses information: length-parameterized character and
// binary types, and precision/scale numerics.
func composeSQLType(row metadata.ColumnRow) string {
	dataType := strings.ToLower(row.DataType)

	switch dataType {
	case "varchar", "nvarchar", "char", "nchar", "binary", "varbinary":
		if row.MaxLength != nil {
			if *row.MaxLength == -1 {
				return fmt.Sprintf("%s(max)", dataType)
			}
			if *row.MaxLength > 0 {
				return fmt.Sprintf("%s(%d)", dataType, *row.MaxLength)
			}
		}
	case "decimal", "numeric":
		if row.Precision != nil && row.Scale != nil {
			return fmt.Sprintf("%s(%d,%d)", dataType, *row.Precision, *row.Scale)
		}
	}

	return dataType
}

func buildPrimaryKey(rows []metadata.PrimaryKeyRow) *PrimaryKey {
	if len(rows) == 0 {
		return nil
	}

	ordered := make([]metadata.PrimaryKeyRow, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].KeyOrdinal < ordered[j].KeyOrdinal
	})

	pk := &PrimaryKey{ConstraintName: rows[0].ConstraintName}
	for _, row := range ordered {
		pk.Columns = append(pk.Columns, row.Column)
		pk.ColumnDetails = append(pk.ColumnDetails, PrimaryKeyColumn{
			Name:         row.Column,
			Ordinal:      row.KeyOrdinal,
			IsDescending: row.IsDescending,
		})
	}
	return pk
}

func buildForeignKeys(grouped map[string][]metadata.ForeignKeyRow, order []string) []ForeignKey {
	payload := make([]ForeignKey, 0, len(order))
	for _, constraintName := range order {
		rows := grouped[constraintName]

		ordered := make([]metadata.ForeignKeyRow, len(rows))
		copy(ordered, rows)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Column < ordered[j].Column
		})

		fk := ForeignKey{
			ConstraintName:   constraintName,
			ReferencedSchema: rows[0].ReferencedSchema,
			ReferencedTable:  rows[0].ReferencedTable,
			OnDelete:         rows[0].OnDelete,
			OnUpdate:         rows[0].OnUpdate,
			IsDisabled:       rows[0].IsDisabled,
		}
		for _, row := range ordered {
			fk.Columns = append(fk.Columns, row.Column)
			fk.ReferencedColumns = append(fk.ReferencedColumns, row.ReferencedColumn)
		}
		payload = append(payload, fk)
	}
	return payload
}

func buildIndexes(grouped map[string][]metadata.IndexRow, order []string) ([]Index, []string) {
	payload := make([]Index, 0, len(order))
	var indexedColumns []string

	for _, indexName := range order {
		rows := grouped[indexName]

		ordered := make([]metadata.IndexRow, len(rows))
		copy(ordered, rows)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].KeyOrdinal < ordered[j].KeyOrdinal
		})

		columns := make([]IndexColumn, 0, len(ordered))
		for _, row := range ordered {
			if !row.IsIncluded {
				indexedColumns = append(indexedColumns, row.Column)
			}
			columns = append(columns, IndexColumn{
				Column:       row.Column,
				IsDescending: row.IsDescending,
				IsIncluded:   row.IsIncluded,
			})
		}

		payload = append(payload, Index{
			IndexName:        indexName,
			IsUnique:         rows[0].IsUnique,
			IsClustered:      strings.Contains(rows[0].TypeDesc, "CLUSTERED"),
			FilterDefinition: rows[0].FilterDefinition,
			Columns:          columns,
		})
	}
	return payload, indexedColumns
}

func buildUniqueConstraints(grouped map[string][]metadata.UniqueConstraintRow, order []string) []UniqueConstraint {
	payload := make([]UniqueConstraint, 0, len(order))
	for _, constraintName := range order {
		rows := grouped[constraintName]

		ordered := make([]metadata.UniqueConstraintRow, len(rows))
		copy(ordered, rows)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].KeyOrdinal < ordered[j].KeyOrdinal
		})

		unique := UniqueConstraint{ConstraintName: constraintName}
		for _, row := range ordered {
			unique.Columns = append(unique.Columns, row.Column)
		}
		payload = append(payload, unique)
	}
	return payload
}

func buildOutgoingRelationships(foreignKeys []ForeignKey) Relationships {
	outgoing := make([]OutgoingRelationship, 0, len(foreignKeys))
	for _, fk := range foreignKeys {
		outgoing = append(outgoing, OutgoingRelationship{
			ToSchema:         fk.ReferencedSchema,
			ToTable:          fk.ReferencedTable,
			ViaColumns:       fk.Columns,
			RelationshipType: "many_to_one",
		})
	}
	return Relationships{
		Outgoing:   outgoing,
		Incoming:   []IncomingRelationship{},
		ManyToMany: []ManyToManyRelationship{},
	}
}

func tableStatistics(columns []Column, indexedColumns []string) Statistics {
	stats := Statistics{TotalColumns: len(columns)}
	for _, col := range columns {
		if col.IsNullable {
			stats.NullableColumns++
		}
		if col.IsComputed {
			stats.ComputedColumns++
		}
	}

	distinct := make(map[string]struct{}, len(indexedColumns))
	for _, name := range indexedColumns {
		distinct[name] = struct{}{}
	}
	stats.IndexedColumns = len(distinct)

	return stats
}

// attachIncoming is the global second pass: every foreign key anywhere
// adds a one_to_many entry on the table it references. Foreign keys whose
// target never appeared in the snapshot are left as dangling outgoing
// edges with no mirror.
func (b *Builder) attachIncoming(lookup map[TableKey]*Table, order []TableKey) {
	incoming := make(map[TableKey][]IncomingRelationship)
	for _, key := range order {
		table := lookup[key]
		for _, fk := range table.ForeignKeys {
			targetKey := TableKey{Schema: fk.ReferencedSchema, Table: fk.ReferencedTable}
			incoming[targetKey] = append(incoming[targetKey], IncomingRelationship{
				FromSchema:       key.Schema,
				FromTable:        key.Table,
				ViaColumns:       fk.Columns,
				RelationshipType: "one_to_many",
			})
		}
	}

	for targetKey, entries := range incoming {
		if table, ok := lookup[targetKey]; ok {
			table.Relationships.Incoming = entries
		}
	}
}

// augmentManyToMany runs the junction heuristic: a table with foreign
// keys to at least two distinct targets and at most JunctionColumnLimit
// non-key columns links each unordered pair of its targets. The result
// is attached to both endpoint tables and recorded in the summary, once
// per (pair, junction) even when the junction has three or more keys.
func (b *Builder) augmentManyToMany(lookup map[TableKey]*Table, order []TableKey) RelationshipSummary {
	summary := RelationshipSummary{ManyToManyPatterns: []ManyToManyPattern{}}
	processed := make(map[string]struct{})

	for _, junctionKey := range order {
		table := lookup[junctionKey]
		foreignKeys := table.ForeignKeys
		if len(foreignKeys) < 2 {
			continue
		}

		referenced := make(map[TableKey]struct{})
		for _, fk := range foreignKeys {
			referenced[TableKey{Schema: fk.ReferencedSchema, Table: fk.ReferencedTable}] = struct{}{}
		}
		if len(referenced) < 2 {
			continue
		}

		fkColumns := make(map[string]struct{})
		for _, fk := range foreignKeys {
			for _, col := range fk.Columns {
				fkColumns[col] = struct{}{}
			}
		}
		nonFKColumns := 0
		for _, col := range table.Columns {
			if _, ok := fkColumns[col.Name]; !ok {
				nonFKColumns++
			}
		}
		if nonFKColumns > b.settings.JunctionColumnLimit {
			continue
		}

		for i := 0; i < len(foreignKeys); i++ {
			for j := i + 1; j < len(foreignKeys); j++ {
				fkLeft, fkRight := foreignKeys[i], foreignKeys[j]
				leftKey := TableKey{Schema: fkLeft.ReferencedSchema, Table: fkLeft.ReferencedTable}
				rightKey := TableKey{Schema: fkRight.ReferencedSchema, Table: fkRight.ReferencedTable}
				if leftKey == rightKey {
					continue
				}

				pairKey := junctionPairKey(leftKey, rightKey, junctionKey)
				if _, seen := processed[pairKey]; seen {
					continue
				}
				processed[pairKey] = struct{}{}

				summary.ManyToManyPatterns = append(summary.ManyToManyPatterns, ManyToManyPattern{
					JunctionTable:  junctionKey.Table,
					JunctionSchema: junctionKey.Schema,
					LeftTable:      leftKey.Table,
					LeftSchema:     leftKey.Schema,
					RightTable:     rightKey.Table,
					RightSchema:    rightKey.Schema,
				})

				attachManyToMany(lookup, leftKey, rightKey, junctionKey, fkLeft.Columns)
				attachManyToMany(lookup, rightKey, leftKey, junctionKey, fkRight.Columns)
			}
		}
	}

	return summary
}

// junctionPairKey builds the de-duplication key for an unordered target
// pair joined through one junction table.
func junctionPairKey(left, right, junction TableKey) string {
	if right.Schema < left.Schema || (right.Schema == left.Schema && right.Table < left.Table) {
		left, right = right, left
	}
	return fmt.Sprintf("%s|%s|%s", left, right, junction)
}

func attachManyToMany(lookup map[TableKey]*Table, baseKey, otherKey, junctionKey TableKey, viaColumns []string) {
	table, ok := lookup[baseKey]
	if !ok {
		return
	}
	table.Relationships.ManyToMany = append(table.Relationships.ManyToMany, ManyToManyRelationship{
		ViaTable:         junctionKey.Table,
		ViaSchema:        junctionKey.Schema,
		ToTable:          otherKey.Table,
		ToSchema:         otherKey.Schema,
		ViaColumns:       viaColumns,
		RelationshipType: "many_to_many",
	})
}

func (b *Builder) buildViews(raw *metadata.Snapshot) []*View {
	type viewKey struct {
		schema string
		view   string
	}
	columnsByView := make(map[viewKey][]metadata.ViewColumnRow)
	for _, row := range raw.ViewColumns {
		key := viewKey{schema: row.Schema, view: row.View}
		columnsByView[key] = append(columnsByView[key], row)
	}

	views := make([]*View, 0, len(raw.Views))
	for _, row := range raw.Views {
		columns := make([]ViewColumn, 0)
		for _, col := range columnsByView[viewKey{schema: row.Schema, view: row.View}] {
			columns = append(columns, ViewColumn{
				Name:        col.Column,
				Type:        strings.ToLower(col.DataType),
				MaxLength:   col.MaxLength,
				IsNullable:  col.IsNullable,
				Description: col.Description,
			})
		}

		views = append(views, &View{
			ViewName:     row.View,
			Schema:       row.Schema,
			ObjectType:   "view",
			Description:  row.Description,
			CreatedDate:  row.CreatedDate,
			ModifiedDate: row.ModifiedDate,
			Definition:   row.Definition,
			Columns:      columns,
			Keywords:     []string{},
		})
	}
	return views
}

func (b *Builder) buildSchemaIndex(databaseName string, tables []*Table, views []*View, summary RelationshipSummary) *SchemaIndex {
	type bucket struct {
		tableCount int
		viewCount  int
	}
	buckets := make(map[string]*bucket)
	var schemaOrder []string
	ensureBucket := func(schema string) *bucket {
		if existing, ok := buckets[schema]; ok {
			return existing
		}
		entry := &bucket{}
		buckets[schema] = entry
		schemaOrder = append(schemaOrder, schema)
		return entry
	}

	tablesPayload := make([]TableIndexEntry, 0, len(tables))
	for _, table := range tables {
		ensureBucket(table.Schema).tableCount++

		columnNames := make([]string, 0, len(table.Columns))
		for _, col := range table.Columns {
			columnNames = append(columnNames, col.Name)
		}

		var pkColumns []string
		if table.PrimaryKey != nil {
			pkColumns = table.PrimaryKey.Columns
		}

		tablesPayload = append(tablesPayload, TableIndexEntry{
			Table:            table.TableName,
			Schema:           table.Schema,
			ObjectType:       "table",
			Keywords:         table.Keywords,
			ColumnNames:      columnNames,
			PrimaryKey:       pkColumns,
			HasForeignKeys:   len(table.ForeignKeys) > 0,
			ShortDescription: table.Description,
		})
	}

	viewsPayload := make([]ViewIndexEntry, 0, len(views))
	for _, view := range views {
		ensureBucket(view.Schema).viewCount++

		columnNames := make([]string, 0, len(view.Columns))
		for _, col := range view.Columns {
			columnNames = append(columnNames, col.Name)
		}

		viewsPayload = append(viewsPayload, ViewIndexEntry{
			View:             view.ViewName,
			Schema:           view.Schema,
			ObjectType:       "view",
			Keywords:         view.Keywords,
			ColumnNames:      columnNames,
			ShortDescription: view.Description,
		})
	}

	schemas := make([]SchemaSummary, 0, len(schemaOrder))
	for _, name := range schemaOrder {
		schemas = append(schemas, SchemaSummary{
			Name:       name,
			TableCount: buckets[name].tableCount,
			ViewCount:  buckets[name].viewCount,
		})
	}

	return &SchemaIndex{
		DatabaseName:        databaseName,
		ExtractionID:        uuid.NewString(),
		ExtractionDate:      time.Now().UTC().Format(time.RFC3339),
		TotalSchemas:        len(schemas),
		TotalTables:         len(tablesPayload),
		TotalViews:          len(viewsPayload),
		Schemas:             schemas,
		Tables:              tablesPayload,
		Views:               viewsPayload,
		RelationshipSummary: summary,
	}
}
