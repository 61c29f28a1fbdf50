package metadata

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/kadirbelkuyu/schemagraph/internal/database"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// PostgresIntrospector reads the catalog through information_schema and
// pg_catalog. Identifier casing is preserved exactly as stored.
type PostgresIntrospector struct {
	conn   *database.Connection
	logger *logger.Logger
}

func NewPostgresIntrospector(conn *database.Connection, log *logger.Logger) *PostgresIntrospector {
	return &PostgresIntrospector{
		conn:   conn,
		logger: log,
	}
}

func (p *PostgresIntrospector) Snapshot(filter Filter) (*Snapshot, error) {
	snapshot := &Snapshot{DatabaseName: p.conn.GetDatabaseName()}

	steps := []struct {
		name string
		fn   func(*Snapshot, Filter) error
	}{
		{"tables", p.collectTables},
		{"columns", p.collectColumns},
		{"primary keys", p.collectPrimaryKeys},
		{"foreign keys", p.collectForeignKeys},
		{"indexes", p.collectIndexes},
		{"unique constraints", p.collectUniqueConstraints},
		{"check constraints", p.collectCheckConstraints},
		{"views", p.collectViews},
		{"view columns", p.collectViewColumns},
	}

	for _, step := range steps {
		p.logger.Debugf("Collecting %s...", step.name)
		if err := step.fn(snapshot, filter); err != nil {
			return nil, fmt.Errorf("failed to collect %s: %w", step.name, err)
		}
	}

	p.logger.Infof("Catalog snapshot complete: %d tables, %d columns, %d foreign key rows",
		len(snapshot.Tables), len(snapshot.Columns), len(snapshot.ForeignKeys))

	return snapshot, nil
}

func (p *PostgresIntrospector) collectTables(snapshot *Snapshot, filter Filter) error {
	query := `
		SELECT
			n.nspname,
			c.relname,
			COALESCE(obj_description(c.oid, 'pg_class'), '')
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE c.relkind IN ('r', 'p')
		AND n.nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY n.nspname, c.relname
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row TableRow
		if err := rows.Scan(&row.Schema, &row.Table, &row.Description); err != nil {
			return fmt.Errorf("failed to read table metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}
		snapshot.Tables = append(snapshot.Tables, row)
	}
	return rows.Err()
}

func (p *PostgresIntrospector) collectColumns(snapshot *Snapshot, filter Filter) error {
	query := `
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.ordinal_position,
			c.udt_name,
			c.character_maximum_length,
			c.numeric_precision,
			c.numeric_scale,
			c.is_nullable,
			c.is_identity,
			c.identity_start,
			c.identity_increment,
			c.is_generated,
			c.generation_expression,
			c.column_default,
			c.collation_name,
			COALESCE(d.description, '')
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		LEFT JOIN pg_catalog.pg_statio_all_tables st
			ON st.schemaname = c.table_schema AND st.relname = c.table_name
		LEFT JOIN pg_catalog.pg_description d
			ON d.objoid = st.relid AND d.objsubid = c.ordinal_position
		WHERE t.table_type = 'BASE TABLE'
		AND c.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ColumnRow
		var maxLength, precision, scale sql.NullInt64
		var isNullable, isIdentity, isGenerated string
		var identityStart, identityIncrement sql.NullString
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
			&isIdentity,
			&identityStart,
			&identityIncrement,
			&isGenerated,
			&generationExpr,
			&defaultValue,
			&collation,
			&row.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to read column metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}

		row.MaxLength = nullableInt(maxLength)
		row.Precision = nullableInt(precision)
		row.Scale = nullableInt(scale)
		row.IsNullable = isNullable == "YES"
		row.IsIdentity = isIdentity == "YES"
		row.IdentitySeed = parseNullableInt64(identityStart)
		row.IdentityIncrement = parseNullableInt64(identityIncrement)
		row.IsComputed = isGenerated == "ALWAYS"
		row.ComputedDefinition = nullableString(generationExpr)
		row.DefaultValue = nullableString(defaultValue)
		row.Collation = nullableString(collation)

		snapshot.Columns = append(snapshot.Columns, row)
	}
	return rows.Err()
}

func (p *PostgresIntrospector) collectPrimaryKeys(snapshot *Snapshot, filter Filter) error {
	query := `
		SELECT
			tc.table_schema,
			tc.table_name,
			tc.constraint_name,
			kcu.column_name,
			kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		AND tc.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row PrimaryKeyRow
		if err := rows.Scan(&row.Schema, &row.Table, &row.ConstraintName, &row.Column, &row.KeyOrdinal); err != nil {
			return fmt.Errorf("failed to read primary key metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}
		snapshot.PrimaryKeys = append(snapshot.PrimaryKeys, row)
	}
	return rows.Err()
}

func (p *PostgresIntrospector) collectForeignKeys(snapshot *Snapshot, filter Filter) error {
	// pg_constraint keeps local and referenced column numbers as parallel
	// arrays, so unnesting them together is the only way to pair composite
	// key columns correctly.
	query := `
		SELECT
			sn.nspname,
			st.relname,
			con.conname,
			sa.attname,
			tn.nspname,
			tt.relname,
			ta.attname,
			con.confdeltype,
			con.confupdtype,
			NOT con.convalidated
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class st ON st.oid = con.conrelid
		JOIN pg_catalog.pg_namespace sn ON sn.oid = st.relnamespace
		JOIN pg_catalog.pg_class tt ON tt.oid = con.confrelid
		JOIN pg_catalog.pg_namespace tn ON tn.oid = tt.relnamespace
		CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, fattnum, ord)
		JOIN pg_catalog.pg_attribute sa ON sa.attrelid = con.conrelid AND sa.attnum = k.attnum
		JOIN pg_catalog.pg_attribute ta ON ta.attrelid = con.confrelid AND ta.attnum = k.fattnum
		WHERE con.contype = 'f'
		AND sn.nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY sn.nspname, st.relname, con.conname, k.ord
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ForeignKeyRow
		var deleteCode, updateCode string

		err := rows.Scan(
			&row.Schema,
			&row.Table,
			&row.ConstraintName,
			&row.Column,
			&row.ReferencedSchema,
			&row.ReferencedTable,
			&row.ReferencedColumn,
			&deleteCode,
			&updateCode,
			&row.IsDisabled,
		)
		if err != nil {
			return fmt.Errorf("failed to read foreign key metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}

		row.OnDelete = referentialAction(deleteCode)
		row.OnUpdate = referentialAction(updateCode)

		snapshot.ForeignKeys = append(snapshot.ForeignKeys, row)
	}
	return rows.Err()
}

func (p *PostgresIntrospector) collectIndexes(snapshot *Snapshot, filter Filter) error {
	query := `
		SELECT
			n.nspname,
			t.relname,
			i.relname,
			a.attname,
			k.ord,
			(ix.indoption[k.ord - 1] & 1) = 1,
			k.ord > ix.indnkeyatts,
			ix.indisunique,
			CASE WHEN ix.indisclustered
				THEN 'CLUSTERED ' || upper(am.amname)
				ELSE upper(am.amname)
			END,
			pg_get_expr(ix.indpred, ix.indrelid)
		FROM pg_catalog.pg_index ix
		JOIN pg_catalog.pg_class i ON i.oid = ix.indexrelid
		JOIN pg_catalog.pg_class t ON t.oid = ix.indrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_catalog.pg_am am ON am.oid = i.relam
		CROSS JOIN LATERAL unnest(ix.indkey) WITH ORDINALITY AS k(attnum, ord)
		JOIN pg_catalog.pg_attribute a ON a.attrelid = t.oid AND a.attnum = k.attnum
		WHERE NOT ix.indisprimary
		AND n.nspname NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY n.nspname, t.relname, i.relname, k.ord
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row IndexRow
		var ordinal int64
		var filterDef sql.NullString

		err := rows.Scan(
			&row.Schema,
			&row.Table,
			&row.IndexName,
			&row.Column,
			&ordinal,
			&row.IsDescending,
			&row.IsIncluded,
			&row.IsUnique,
			&row.TypeDesc,
			&filterDef,
		)
		if err != nil {
			return fmt.Errorf("failed to read index metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}

		row.KeyOrdinal = int(ordinal)
		row.FilterDefinition = nullableString(filterDef)

		snapshot.Indexes = append(snapshot.Indexes, row)
	}
	return rows.Err()
}

func (p *PostgresIntrospector) collectUniqueConstraints(snapshot *Snapshot, filter Filter) error {
	query := `
		SELECT
			tc.table_schema,
			tc.table_name,
			tc.constraint_name,
			kcu.column_name,
			kcu.ordinal_position
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'UNIQUE'
		AND tc.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name, kcu.ordinal_position
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query unique constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row UniqueConstraintRow
		if err := rows.Scan(&row.Schema, &row.Table, &row.ConstraintName, &row.Column, &row.KeyOrdinal); err != nil {
			return fmt.Errorf("failed to read unique constraint metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}
		snapshot.UniqueConstraints = append(snapshot.UniqueConstraints, row)
	}
	return rows.Err()
}

func (p *PostgresIntrospector) collectCheckConstraints(snapshot *Snapshot, filter Filter) error {
	// The trailing NOT LIKE drops the synthetic NOT NULL checks postgres
	// mirrors into information_schema for every non-nullable column.
	query := `
		SELECT
			tc.table_schema,
			tc.table_name,
			tc.constraint_name,
			cc.check_clause
		FROM information_schema.table_constraints tc
		JOIN information_schema.check_constraints cc
			ON cc.constraint_name = tc.constraint_name
			AND cc.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'CHECK'
		AND tc.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		AND tc.constraint_name NOT LIKE '%_not_null'
		ORDER BY tc.table_schema, tc.table_name, tc.constraint_name
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query check constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row CheckConstraintRow
		if err := rows.Scan(&row.Schema, &row.Table, &row.ConstraintName, &row.Definition); err != nil {
			return fmt.Errorf("failed to read check constraint metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}
		snapshot.CheckConstraints = append(snapshot.CheckConstraints, row)
	}
	return rows.Err()
}

func (p *PostgresIntrospector) collectViews(snapshot *Snapshot, filter Filter) error {
	query := `
		SELECT
			v.table_schema,
			v.table_name,
			COALESCE(obj_description(c.oid, 'pg_class'), ''),
			COALESCE(v.view_definition, '')
		FROM information_schema.views v
		JOIN pg_catalog.pg_namespace n ON n.nspname = v.table_schema
		JOIN pg_catalog.pg_class c ON c.relnamespace = n.oid AND c.relname = v.table_name
		WHERE v.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY v.table_schema, v.table_name
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query views: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ViewRow
		if err := rows.Scan(&row.Schema, &row.View, &row.Description, &row.Definition); err != nil {
			return fmt.Errorf("failed to read view metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}
		snapshot.Views = append(snapshot.Views, row)
	}
	return rows.Err()
}

func (p *PostgresIntrospector) collectViewColumns(snapshot *Snapshot, filter Filter) error {
	query := `
		SELECT
			c.table_schema,
			c.table_name,
			c.column_name,
			c.udt_name,
			c.character_maximum_length,
			c.is_nullable
		FROM information_schema.columns c
		JOIN information_schema.views v
			ON v.table_schema = c.table_schema AND v.table_name = c.table_name
		WHERE c.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
		ORDER BY c.table_schema, c.table_name, c.ordinal_position
	`

	rows, err := p.conn.DB.Query(query)
	if err != nil {
		return fmt.Errorf("failed to query view columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row ViewColumnRow
		var maxLength sql.NullInt64
		var isNullable string

		if err := rows.Scan(&row.Schema, &row.View, &row.Column, &row.DataType, &maxLength, &isNullable); err != nil {
			return fmt.Errorf("failed to read view column metadata: %w", err)
		}
		if !filter.Match(row.Schema) {
			continue
		}

		row.MaxLength = nullableInt(maxLength)
		row.IsNullable = isNullable == "YES"

		snapshot.ViewColumns = append(snapshot.ViewColumns, row)
	}
	return rows.Err()
}

func referentialAction(code string) string {
	switch code {
	case "a":
		return "NO ACTION"
	case "r":
		return "RESTRICT"
	case "c":
		return "CASCADE"
	case "n":
		return "SET NULL"
	case "d":
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func parseNullableInt64(v sql.NullString) *int64 {
	if !v.Valid {
		return nil
	}
	n, err := strconv.ParseInt(v.String, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
