package metadata

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/kadirbelkuyu/schemagraph/internal/database"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// sqliteSchemaName is the schema every SQLite object is reported under.
// SQLite has no schema namespaces, so everything lives in "main".
const sqliteSchemaName = "main"

// SQLiteIntrospector walks sqlite_master and the table PRAGMAs. Unlike the
// other engines there is no whole-database catalog query, so rows are
// collected table by table and flattened afterwards.
type SQLiteIntrospector struct {
	conn   *database.Connection
	logger *logger.Logger
}

func NewSQLiteIntrospector(conn *database.Connection, log *logger.Logger) *SQLiteIntrospector {
	return &SQLiteIntrospector{
		conn:   conn,
		logger: log,
	}
}

func (s *SQLiteIntrospector) Snapshot(filter Filter) (*Snapshot, error) {
	snapshot := &Snapshot{DatabaseName: s.conn.GetDatabaseName()}

	if !filter.Match(sqliteSchemaName) {
		s.logger.Warnf("Schema filter excludes %q, snapshot will be empty", sqliteSchemaName)
		return snapshot, nil
	}

	tables, err := s.listObjects("table")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	for _, name := range tables {
		snapshot.Tables = append(snapshot.Tables, TableRow{
			Schema: sqliteSchemaName,
			Table:  name,
		})

		if err := s.collectColumns(snapshot, name); err != nil {
			return nil, fmt.Errorf("failed to collect columns for %s: %w", name, err)
		}
		if err := s.collectForeignKeys(snapshot, name); err != nil {
			return nil, fmt.Errorf("failed to collect foreign keys for %s: %w", name, err)
		}
		if err := s.collectIndexes(snapshot, name); err != nil {
			return nil, fmt.Errorf("failed to collect indexes for %s: %w", name, err)
		}
	}

	if err := s.collectViews(snapshot); err != nil {
		return nil, fmt.Errorf("failed to collect views: %w", err)
	}

	s.logger.Infof("Catalog snapshot complete: %d tables, %d columns, %d foreign key rows",
		len(snapshot.Tables), len(snapshot.Columns), len(snapshot.ForeignKeys))

	return snapshot, nil
}

func (s *SQLiteIntrospector) listObjects(objectType string) ([]string, error) {
	rows, err := s.conn.DB.Query(
		"SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name",
		objectType,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteIntrospector) collectColumns(snapshot *Snapshot, tableName string) error {
	rows, err := s.conn.DB.Query(fmt.Sprintf("PRAGMA table_xinfo(%s)", quoteSQLiteIdent(tableName)))
	if err != nil {
		return err
	}
	defer rows.Close()

	type colInfo struct {
		row ColumnRow
		pk  int
	}
	var infos []colInfo

	for rows.Next() {
		var cid, notnull, pk, hidden int
		var name, declaredType string
		var defaultValue sql.NullString
		if err := rows.Scan(&cid, &name, &declaredType, &notnull, &defaultValue, &pk, &hidden); err != nil {
			return err
		}

		row := ColumnRow{
			Schema:       sqliteSchemaName,
			Table:        tableName,
			Column:       name,
			Ordinal:      cid + 1,
			DataType:     strings.ToLower(baseTypeName(declaredType)),
			IsNullable:   notnull == 0,
			IsComputed:   hidden == 2 || hidden == 3,
			DefaultValue: nullableString(defaultValue),
		}
		parseDeclaredTypeParams(&row, declaredType)

		infos = append(infos, colInfo{row: row, pk: pk})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	autoIncrement := s.detectAutoIncrement(tableName)

	// A single INTEGER primary key column is a rowid alias, which behaves
	// as auto-incrementing even without the AUTOINCREMENT keyword.
	pkCount := 0
	for _, info := range infos {
		if info.pk > 0 {
			pkCount++
		}
	}

	for _, info := range infos {
		row := info.row
		if autoIncrement[row.Column] {
			row.IsIdentity = true
		}
		if pkCount == 1 && info.pk > 0 && row.DataType == "integer" {
			row.IsIdentity = true
		}
		snapshot.Columns = append(snapshot.Columns, row)

		if info.pk > 0 {
			snapshot.PrimaryKeys = append(snapshot.PrimaryKeys, PrimaryKeyRow{
				Schema:         sqliteSchemaName,
				Table:          tableName,
				ConstraintName: "PRIMARY",
				Column:         row.Column,
				KeyOrdinal:     info.pk,
			})
		}
	}

	return nil
}

func (s *SQLiteIntrospector) detectAutoIncrement(tableName string) map[string]bool {
	result := make(map[string]bool)

	var createSQL sql.NullString
	err := s.conn.DB.QueryRow(
		"SELECT sql FROM sqlite_master WHERE type='table' AND name=?",
		tableName,
	).Scan(&createSQL)
	if err != nil || !createSQL.Valid {
		return result
	}

	upper := strings.ToUpper(createSQL.String)
	idx := strings.Index(upper, "AUTOINCREMENT")
	if idx <= 0 {
		return result
	}

	// The column name precedes "INTEGER PRIMARY KEY AUTOINCREMENT".
	tokens := strings.Fields(createSQL.String[:idx])
	for i := len(tokens) - 1; i >= 0; i-- {
		token := strings.ToUpper(tokens[i])
		if token == "INTEGER" || token == "PRIMARY" || token == "KEY" {
			continue
		}
		name := strings.Trim(tokens[i], ",(\"`[] \t\n\r")
		if name != "" {
			result[name] = true
		}
		break
	}
	return result
}

func (s *SQLiteIntrospector) collectForeignKeys(snapshot *Snapshot, tableName string) error {
	rows, err := s.conn.DB.Query(fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteSQLiteIdent(tableName)))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}

		// "to" is NULL when the constraint references the implied primary
		// key of the target table.
		referencedColumn := ""
		if to.Valid {
			referencedColumn = to.String
		}

		snapshot.ForeignKeys = append(snapshot.ForeignKeys, ForeignKeyRow{
			Schema:           sqliteSchemaName,
			Table:            tableName,
			ConstraintName:   fmt.Sprintf("fk_%s_%d", tableName, id),
			Column:           from,
			ReferencedSchema: sqliteSchemaName,
			ReferencedTable:  refTable,
			ReferencedColumn: referencedColumn,
			OnDelete:         normalizeRule(onDelete),
			OnUpdate:         normalizeRule(onUpdate),
		})
	}
	return rows.Err()
}

func (s *SQLiteIntrospector) collectIndexes(snapshot *Snapshot, tableName string) error {
	rows, err := s.conn.DB.Query(fmt.Sprintf("PRAGMA index_list(%s)", quoteSQLiteIdent(tableName)))
	if err != nil {
		return err
	}

	type indexMeta struct {
		name    string
		unique  bool
		origin  string
		partial bool
	}
	var metas []indexMeta

	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			rows.Close()
			return err
		}
		// PK indexes are reported by table_xinfo already.
		if origin == "pk" {
			continue
		}
		metas = append(metas, indexMeta{name: name, unique: unique == 1, origin: origin, partial: partial == 1})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, meta := range metas {
		columns, err := s.indexColumns(meta.name)
		if err != nil {
			return err
		}

		for ordinal, col := range columns {
			snapshot.Indexes = append(snapshot.Indexes, IndexRow{
				Schema:       sqliteSchemaName,
				Table:        tableName,
				IndexName:    meta.name,
				Column:       col.name,
				KeyOrdinal:   ordinal + 1,
				IsDescending: col.descending,
				IsUnique:     meta.unique,
				TypeDesc:     "BTREE",
			})

			// UNIQUE-constraint-backed indexes double as unique
			// constraint rows, matching how constraint-backed indexes
			// surface on the other engines.
			if meta.origin == "u" {
				snapshot.UniqueConstraints = append(snapshot.UniqueConstraints, UniqueConstraintRow{
					Schema:         sqliteSchemaName,
					Table:          tableName,
					ConstraintName: meta.name,
					Column:         col.name,
					KeyOrdinal:     ordinal + 1,
				})
			}
		}
	}

	return nil
}

type sqliteIndexColumn struct {
	name       string
	descending bool
}

func (s *SQLiteIntrospector) indexColumns(indexName string) ([]sqliteIndexColumn, error) {
	rows, err := s.conn.DB.Query(fmt.Sprintf("PRAGMA index_xinfo(%s)", quoteSQLiteIdent(indexName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []sqliteIndexColumn
	for rows.Next() {
		var seqno, cid, desc, key int
		var name sql.NullString
		var coll string
		if err := rows.Scan(&seqno, &cid, &name, &desc, &coll, &key); err != nil {
			return nil, err
		}
		// key=0 rows are the implicit rowid tail, name=NULL marks an
		// expression column. Neither maps to a named indexed column.
		if key == 0 || !name.Valid {
			continue
		}
		columns = append(columns, sqliteIndexColumn{name: name.String, descending: desc == 1})
	}
	return columns, rows.Err()
}

func (s *SQLiteIntrospector) collectViews(snapshot *Snapshot) error {
	rows, err := s.conn.DB.Query(
		"SELECT name, COALESCE(sql, '') FROM sqlite_master WHERE type='view' ORDER BY name",
	)
	if err != nil {
		return err
	}

	type viewMeta struct {
		name       string
		definition string
	}
	var views []viewMeta

	for rows.Next() {
		var meta viewMeta
		if err := rows.Scan(&meta.name, &meta.definition); err != nil {
			rows.Close()
			return err
		}
		views = append(views, meta)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, view := range views {
		snapshot.Views = append(snapshot.Views, ViewRow{
			Schema:     sqliteSchemaName,
			View:       view.name,
			Definition: view.definition,
		})

		colRows, err := s.conn.DB.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLiteIdent(view.name)))
		if err != nil {
			return err
		}
		for colRows.Next() {
			var cid, notnull, pk int
			var name, declaredType string
			var defaultValue sql.NullString
			if err := colRows.Scan(&cid, &name, &declaredType, &notnull, &defaultValue, &pk); err != nil {
				colRows.Close()
				return err
			}
			snapshot.ViewColumns = append(snapshot.ViewColumns, ViewColumnRow{
				Schema:     sqliteSchemaName,
				View:       view.name,
				Column:     name,
				DataType:   strings.ToLower(baseTypeName(declaredType)),
				IsNullable: notnull == 0,
			})
		}
		if err := colRows.Err(); err != nil {
			colRows.Close()
			return err
		}
		colRows.Close()
	}

	return nil
}

// baseTypeName strips any parameter list from a declared SQLite type.
// An empty declaration means BLOB affinity.
func baseTypeName(declaredType string) string {
	dt := strings.TrimSpace(declaredType)
	if dt == "" {
		return "blob"
	}
	if idx := strings.IndexByte(dt, '('); idx >= 0 {
		dt = dt[:idx]
	}
	return strings.TrimSpace(dt)
}

func parseDeclaredTypeParams(row *ColumnRow, declaredType string) {
	open := strings.IndexByte(declaredType, '(')
	closing := strings.LastIndexByte(declaredType, ')')
	if open < 0 || closing <= open {
		return
	}

	parts := strings.Split(declaredType[open+1:closing], ",")
	if len(parts) >= 1 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[0])); err == nil {
			row.MaxLength = &n
			precision := n
			row.Precision = &precision
		}
	}
	if len(parts) >= 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			row.Scale = &n
		}
	}
}

func normalizeRule(rule string) string {
	rule = strings.ToUpper(strings.TrimSpace(rule))
	if rule == "" {
		return "NO ACTION"
	}
	return rule
}

func quoteSQLiteIdent(name string) string {
	return fmt.Sprintf("\"%s\"", strings.ReplaceAll(name, "\"", "\"\""))
}
