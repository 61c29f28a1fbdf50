package metadata

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kadirbelkuyu/schemagraph/internal/database"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// MySQLIntrospector reads INFORMATION_SCHEMA for the connected database.
// MySQL has no schema level below the database, so every row carries the
// database name as its schema.
type MySQLIntrospector struct {
	conn   *database.Connection
	logger *logger.Logger
}

func NewMySQLIntrospector(conn *database.Connection, log *logger.Logger) *MySQLIntrospector {
	return &MySQLIntrospector{
		conn:   conn,
		logger: log,
	}
}

func (m *MySQLIntrospector) Snapshot(filter Filter) (*Snapshot, error) {
	dbName := m.conn.GetDatabaseName()
	snapshot := &Snapshot{DatabaseName: dbName}

	if !filter.Match(dbName) {
		m.logger.Warnf("Schema filter excludes database %s entirely, snapshot will be empty", dbName)
		return snapshot, nil
	}

	if err := m.collectTables(snapshot, dbName); err != nil {
		return nil, fmt.Errorf("failed to collect tables: %w", err)
	}
	if err := m.collectColumns(snapshot, dbName); err != nil {
		return nil, fmt.Errorf("failed to collect columns: %w", err)
	}
	if err := m.collectPrimaryKeys(snapshot, dbName); err != nil {
		return nil, fmt.Errorf("failed to collect primary keys: %w", err)
	}
	if err := m.collectForeignKeys(snapshot, dbName); err != nil {
		return nil, fmt.Errorf("failed to collect foreign keys: %w", err)
	}
	if err := m.collectIndexes(snapshot, dbName); err != nil {
		return nil, fmt.Errorf("failed to collect indexes: %w", err)
	}
	if err := m.collectUniqueConstraints(snapshot, dbName); err != nil {
		return nil, fmt.Errorf("failed to collect unique constraints: %w", err)
	}
	if err := m.collectCheckConstraints(snapshot, dbName); err != nil {
		// CHECK_CONSTRAINTS only exists on MySQL 8.0.16+. Older servers
		// still produce a usable snapshot without it.
		m.logger.Warnf("Skipping check constraints: %v", err)
	}
	if err := m.collectViews(snapshot, dbName); err != nil {
		return nil, fmt.Errorf("failed to collect views: %w", err)
	}
	if err := m.collectViewColumns(snapshot, dbName); err != nil {
		return nil, fmt.Errorf("failed to collect view columns: %w", err)
	}

	m.logger.Infof("Catalog snapshot complete: %d tables, %d columns, %d foreign key rows",
		len(snapshot.Tables), len(snapshot.Columns), len(snapshot.ForeignKeys))

	return snapshot, nil
}

func (m *MySQLIntrospector) collectTables(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT TABLE_SCHEMA, TABLE_NAME, COALESCE(TABLE_COMMENT, ''), CREATE_TIME, UPDATE_TIME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row TableRow
		var created, modified sql.NullTime
		if err := rows.Scan(&row.Schema, &row.Table, &row.Description, &created, &modified); err != nil {
			return fmt.Errorf("failed to read table metadata: %w", err)
		}
		row.CreatedDate = formatNullTime(created)
		row.ModifiedDate = formatNullTime(modified)
		snapshot.Tables = append(snapshot.Tables, row)
	}
	return rows.Err()
}

func (m *MySQLIntrospector) collectColumns(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT
			c.TABLE_SCHEMA,
			c.TABLE_NAME,
			c.COLUMN_NAME,
			c.ORDINAL_POSITION,
			c.DATA_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.NUMERIC_PRECISION,
			c.NUMERIC_SCALE,
			c.IS_NULLABLE,
			c.EXTRA,
			c.GENERATION_EXPRESSION,
			c.COLUMN_DEFAULT,
			c.COLLATION_NAME,
			COALESCE(c.COLUMN_COMMENT, '')
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.TABLES t
			ON t.TABLE_SCHEMA = c.TABLE_SCHEMA AND t.TABLE_NAME = c.TABLE_NAME
		WHERE c.TABLE_SCHEMA = ? AND t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ColumnRow
		var maxLength, precision, scale sql.NullInt64
		var isNullable, extra string
		var generationExpr, defaultValue, collation sql.NullString

		err := rows.Scan(
			&row.Schema,
			&row.Table,
			&row.Column,
			&row.Ordinal,
			&row.DataType,
			&maxLength,
			&precision,
			&scale,
			&isNullable,
			&extra,
			&generationExpr,
			&defaultValue,
			&collation,
			&row.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to read column metadata: %w", err)
		}

		extraLower := strings.ToLower(extra)
		row.MaxLength = nullableInt(maxLength)
		row.Precision = nullableInt(precision)
		row.Scale = nullableInt(scale)
		row.IsNullable = isNullable == "YES"
		row.IsIdentity = strings.Contains(extraLower, "auto_increment")
		row.IsComputed = strings.Contains(extraLower, "generated")
		if row.IsComputed {
			row.ComputedDefinition = nullableString(generationExpr)
		}
		row.DefaultValue = nullableString(defaultValue)
		row.Collation = nullableString(collation)

		snapshot.Columns = append(snapshot.Columns, row)
	}
	return rows.Err()
}

func (m *MySQLIntrospector) collectPrimaryKeys(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT TABLE_SCHEMA, TABLE_NAME, COLUMN_NAME, SEQ_IN_INDEX, COALESCE(COLLATION, 'A')
		FROM INFORMATION_SCHEMA.STATISTICS
		WHERE TABLE_SCHEMA = ? AND INDEX_NAME = 'PRIMARY'
		ORDER BY TABLE_NAME, SEQ_IN_INDEX
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row PrimaryKeyRow
		var collation string
		if err := rows.Scan(&row.Schema, &row.Table, &row.Column, &row.KeyOrdinal, &collation); err != nil {
			return fmt.Errorf("failed to read primary key metadata: %w", err)
		}
		row.ConstraintName = "PRIMARY"
		row.IsDescending = collation == "D"
		snapshot.PrimaryKeys = append(snapshot.PrimaryKeys, row)
	}
	return rows.Err()
}

func (m *MySQLIntrospector) collectForeignKeys(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT
			kcu.TABLE_SCHEMA,
			kcu.TABLE_NAME,
			kcu.CONSTRAINT_NAME,
			kcu.COLUMN_NAME,
			kcu.REFERENCED_TABLE_SCHEMA,
			kcu.REFERENCED_TABLE_NAME,
			kcu.REFERENCED_COLUMN_NAME,
			rc.DELETE_RULE,
			rc.UPDATE_RULE
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
			ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
			AND kcu.TABLE_SCHEMA = rc.CONSTRAINT_SCHEMA
		WHERE kcu.TABLE_SCHEMA = ?
		AND kcu.REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY kcu.TABLE_NAME, kcu.CONSTRAINT_NAME, kcu.ORDINAL_POSITION
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ForeignKeyRow
		err := rows.Scan(
			&row.Schema,
			&row.Table,
			&row.ConstraintName,
			&row.Column,
			&row.ReferencedSchema,
			&row.ReferencedTable,
			&row.ReferencedColumn,
			&row.OnDelete,
			&row.OnUpdate,
		)
		if err != nil {
			return fmt.Errorf("failed to read foreign key metadata: %w", err)
		}
		snapshot.ForeignKeys = append(snapshot.ForeignKeys, row)
	}
	return rows.Err()
}

func (m *MySQLIntrospector) collectIndexes(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT
			TABLE_SCHEMA,
			TABLE_NAME,
			INDEX_NAME,
			COLUMN_NAME,
			SEQ_IN_INDEX,
			COALESCE(COLLATION, 'A'),
			NON_UNIQUE,
			INDEX_TYPE
		FROM INFORMATION_SCHEMA.STATISTICS
		WHERE TABLE_SCHEMA = ? AND INDEX_NAME != 'PRIMARY'
		ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row IndexRow
		var collation string
		var nonUnique int

		err := rows.Scan(
			&row.Schema,
			&row.Table,
			&row.IndexName,
			&row.Column,
			&row.KeyOrdinal,
			&collation,
			&nonUnique,
			&row.TypeDesc,
		)
		if err != nil {
			return fmt.Errorf("failed to read index metadata: %w", err)
		}

		row.IsDescending = collation == "D"
		row.IsUnique = nonUnique == 0

		snapshot.Indexes = append(snapshot.Indexes, row)
	}
	return rows.Err()
}

func (m *MySQLIntrospector) collectUniqueConstraints(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT
			tc.TABLE_SCHEMA,
			tc.TABLE_NAME,
			tc.CONSTRAINT_NAME,
			kcu.COLUMN_NAME,
			kcu.ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
			AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA
			AND kcu.TABLE_NAME = tc.TABLE_NAME
		WHERE tc.TABLE_SCHEMA = ? AND tc.CONSTRAINT_TYPE = 'UNIQUE'
		ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query unique constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row UniqueConstraintRow
		if err := rows.Scan(&row.Schema, &row.Table, &row.ConstraintName, &row.Column, &row.KeyOrdinal); err != nil {
			return fmt.Errorf("failed to read unique constraint metadata: %w", err)
		}
		snapshot.UniqueConstraints = append(snapshot.UniqueConstraints, row)
	}
	return rows.Err()
}

func (m *MySQLIntrospector) collectCheckConstraints(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT
			tc.TABLE_SCHEMA,
			tc.TABLE_NAME,
			tc.CONSTRAINT_NAME,
			cc.CHECK_CLAUSE,
			tc.ENFORCED
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.CHECK_CONSTRAINTS cc
			ON cc.CONSTRAINT_SCHEMA = tc.TABLE_SCHEMA
			AND cc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
		WHERE tc.TABLE_SCHEMA = ? AND tc.CONSTRAINT_TYPE = 'CHECK'
		ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query check constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row CheckConstraintRow
		var enforced string
		if err := rows.Scan(&row.Schema, &row.Table, &row.ConstraintName, &row.Definition, &enforced); err != nil {
			return fmt.Errorf("failed to read check constraint metadata: %w", err)
		}
		row.IsDisabled = enforced == "NO"
		snapshot.CheckConstraints = append(snapshot.CheckConstraints, row)
	}
	return rows.Err()
}

func (m *MySQLIntrospector) collectViews(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT TABLE_SCHEMA, TABLE_NAME, COALESCE(VIEW_DEFINITION, '')
		FROM INFORMATION_SCHEMA.VIEWS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ViewRow
		if err := rows.Scan(&row.Schema, &row.View, &row.Definition); err != nil {
			return fmt.Errorf("failed to read view metadata: %w", err)
		}
		snapshot.Views = append(snapshot.Views, row)
	}
	return rows.Err()
}

func (m *MySQLIntrospector) collectViewColumns(snapshot *Snapshot, dbName string) error {
	query := `
		SELECT
			c.TABLE_SCHEMA,
			c.TABLE_NAME,
			c.COLUMN_NAME,
			c.DATA_TYPE,
			c.CHARACTER_MAXIMUM_LENGTH,
			c.IS_NULLABLE,
			COALESCE(c.COLUMN_COMMENT, '')
		FROM INFORMATION_SCHEMA.COLUMNS c
		JOIN INFORMATION_SCHEMA.VIEWS v
			ON v.TABLE_SCHEMA = c.TABLE_SCHEMA AND v.TABLE_NAME = c.TABLE_NAME
		WHERE c.TABLE_SCHEMA = ?
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
	`

	rows, err := m.conn.DB.Query(query, dbName)
	if err != nil {
		return fmt.Errorf("failed to query view columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ViewColumnRow
		var maxLength sql.NullInt64
		var isNullable string

		if err := rows.Scan(&row.Schema, &row.View, &row.Column, &row.DataType, &maxLength, &isNullable, &row.Description); err != nil {
			return fmt.Errorf("failed to read view column metadata: %w", err)
		}

		row.MaxLength = nullableInt(maxLength)
		row.IsNullable = isNullable == "YES"

		snapshot.ViewColumns = append(snapshot.ViewColumns, row)
	}
	return rows.Err()
}

func formatNullTime(v sql.NullTime) string {
	if !v.Valid {
		return ""
	}
	return v.Time.UTC().Format(time.RFC3339)
}
