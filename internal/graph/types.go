package graph

import "fmt"

// TableKey identifies a table across the whole snapshot.
type TableKey struct {
	Schema string
	Table  string
}

func (k TableKey) String() string {
	return fmt.Sprintf("%s.%s", k.Schema, k.Table)
}

// Column is the persisted per-column record. Pointer fields serialize as
// null when the catalog had no value, plain fields always serialize.
type Column struct {
	Name               string   `yaml:"name" bson:"name"`
	Type               string   `yaml:"type" bson:"type"`
	SQLType            string   `yaml:"sql_type" bson:"sql_type"`
	MaxLength          *int     `yaml:"max_length" bson:"max_length"`
	Precision          *int     `yaml:"precision" bson:"precision"`
	Scale              *int     `yaml:"scale" bson:"scale"`
	IsNullable         bool     `yaml:"is_nullable" bson:"is_nullable"`
	IsIdentity         bool     `yaml:"is_identity" bson:"is_identity"`
	IdentitySeed       *int64   `yaml:"identity_seed" bson:"identity_seed"`
	IdentityIncrement  *int64   `yaml:"identity_increment" bson:"identity_increment"`
	IsComputed         bool     `yaml:"is_computed" bson:"is_computed"`
	ComputedDefinition *string  `yaml:"computed_definition" bson:"computed_definition"`
	DefaultValue       *string  `yaml:"default_value" bson:"default_value"`
	Collation          *string  `yaml:"collation" bson:"collation"`
	Description        string   `yaml:"description" bson:"description"`
	Keywords           []string `yaml:"keywords" bson:"keywords"`
}

type PrimaryKeyColumn struct {
	Name         string `yaml:"name" bson:"name"`
	Ordinal      int    `yaml:"ordinal" bson:"ordinal"`
	IsDescending bool   `yaml:"is_descending" bson:"is_descending"`
}

type PrimaryKey struct {
	ConstraintName string             `yaml:"constraint_name" bson:"constraint_name"`
	Columns        []string           `yaml:"columns" bson:"columns"`
	ColumnDetails  []PrimaryKeyColumn `yaml:"column_details" bson:"column_details"`
}

type ForeignKey struct {
	ConstraintName    string   `yaml:"constraint_name" bson:"constraint_name"`
	Columns           []string `yaml:"columns" bson:"columns"`
	ReferencedSchema  string   `yaml:"referenced_schema" bson:"referenced_schema"`
	ReferencedTable   string   `yaml:"referenced_table" bson:"referenced_table"`
	ReferencedColumns []string `yaml:"referenced_columns" bson:"referenced_columns"`
	OnDelete          string   `yaml:"on_delete" bson:"on_delete"`
	OnUpdate          string   `yaml:"on_update" bson:"on_update"`
	IsDisabled        bool     `yaml:"is_disabled" bson:"is_disabled"`
}

type IndexColumn struct {
	Column       string `yaml:"column" bson:"column"`
	IsDescending bool   `yaml:"is_descending" bson:"is_descending"`
	IsIncluded   bool   `yaml:"is_included" bson:"is_included"`
}

type Index struct {
	IndexName        string        `yaml:"index_name" bson:"index_name"`
	IsUnique         bool          `yaml:"is_unique" bson:"is_unique"`
	IsClustered      bool          `yaml:"is_clustered" bson:"is_clustered"`
	FilterDefinition *string       `yaml:"filter_definition" bson:"filter_definition"`
	Columns          []IndexColumn `yaml:"columns" bson:"columns"`
}

type UniqueConstraint struct {
	ConstraintName string   `yaml:"constraint_name" bson:"constraint_name"`
	Columns        []string `yaml:"columns" bson:"columns"`
}

type CheckConstraint struct {
	ConstraintName string `yaml:"constraint_name" bson:"constraint_name"`
	Definition     string `yaml:"definition" bson:"definition"`
	IsDisabled     bool   `yaml:"is_disabled" bson:"is_disabled"`
}

type OutgoingRelationship struct {
	ToSchema         string   `yaml:"to_schema" bson:"to_schema"`
	ToTable          string   `yaml:"to_table" bson:"to_table"`
	ViaColumns       []string `yaml:"via_columns" bson:"via_columns"`
	RelationshipType string   `yaml:"relationship_type" bson:"relationship_type"`
}

type IncomingRelationship struct {
	FromSchema       string   `yaml:"from_schema" bson:"from_schema"`
	FromTable        string   `yaml:"from_table" bson:"from_table"`
	ViaColumns       []string `yaml:"via_columns" bson:"via_columns"`
	RelationshipType string   `yaml:"relationship_type" bson:"relationship_type"`
}

type ManyToManyRelationship struct {
	ViaTable         string   `yaml:"via_table" bson:"via_table"`
	ViaSchema        string   `yaml:"via_schema" bson:"via_schema"`
	ToTable          string   `yaml:"to_table" bson:"to_table"`
	ToSchema         string   `yaml:"to_schema" bson:"to_schema"`
	ViaColumns       []string `yaml:"via_columns" bson:"via_columns"`
	RelationshipType string   `yaml:"relationship_type" bson:"relationship_type"`
}

type Relationships struct {
	Outgoing   []OutgoingRelationship   `yaml:"outgoing" bson:"outgoing"`
	Incoming   []IncomingRelationship   `yaml:"incoming" bson:"incoming"`
	ManyToMany []ManyToManyRelationship `yaml:"many_to_many" bson:"many_to_many"`
}

type Statistics struct {
	TotalColumns    int `yaml:"total_columns" bson:"total_columns"`
	NullableColumns int `yaml:"nullable_columns" bson:"nullable_columns"`
	ComputedColumns int `yaml:"computed_columns" bson:"computed_columns"`
	IndexedColumns  int `yaml:"indexed_columns" bson:"indexed_columns"`
}

// Table is the aggregate persisted per table: structure, constraints,
// derived relationships, and the documentation fields (description,
// keywords) the merge-on-write path preserves across re-extractions.
type Table struct {
	TableName         string             `yaml:"table_name" bson:"table_name"`
	Schema            string             `yaml:"schema" bson:"schema"`
	ObjectType        string             `yaml:"object_type" bson:"object_type"`
	Description       string             `yaml:"description" bson:"description"`
	CreatedDate       string             `yaml:"created_date,omitempty" bson:"created_date,omitempty"`
	ModifiedDate      string             `yaml:"modified_date,omitempty" bson:"modified_date,omitempty"`
	Columns           []Column           `yaml:"columns" bson:"columns"`
	PrimaryKey        *PrimaryKey        `yaml:"primary_key" bson:"primary_key"`
	ForeignKeys       []ForeignKey       `yaml:"foreign_keys" bson:"foreign_keys"`
	UniqueConstraints []UniqueConstraint `yaml:"unique_constraints" bson:"unique_constraints"`
	Indexes           []Index            `yaml:"indexes" bson:"indexes"`
	CheckConstraints  []CheckConstraint  `yaml:"check_constraints" bson:"check_constraints"`
	Keywords          []string           `yaml:"keywords" bson:"keywords"`
	Relationships     Relationships      `yaml:"relationships" bson:"relationships"`
	Statistics        Statistics         `yaml:"statistics" bson:"statistics"`
}

func (t *Table) Key() TableKey {
	return TableKey{Schema: t.Schema, Table: t.TableName}
}

type ViewColumn struct {
	Name        string `yaml:"name" bson:"name"`
	Type        string `yaml:"type" bson:"type"`
	MaxLength   *int   `yaml:"max_length" bson:"max_length"`
	IsNullable  bool   `yaml:"is_nullable" bson:"is_nullable"`
	Description string `yaml:"description" bson:"description"`
}

type View struct {
	ViewName     string       `yaml:"view_name" bson:"view_name"`
	Schema       string       `yaml:"schema" bson:"schema"`
	ObjectType   string       `yaml:"object_type" bson:"object_type"`
	Description  string       `yaml:"description" bson:"description"`
	CreatedDate  string       `yaml:"created_date,omitempty" bson:"created_date,omitempty"`
	ModifiedDate string       `yaml:"modified_date,omitempty" bson:"modified_date,omitempty"`
	Definition   string       `yaml:"definition" bson:"definition"`
	Columns      []ViewColumn `yaml:"columns" bson:"columns"`
	Keywords     []string     `yaml:"keywords" bson:"keywords"`
}

type SchemaSummary struct {
	Name       string `yaml:"name" bson:"name"`
	TableCount int    `yaml:"table_count" bson:"table_count"`
	ViewCount  int    `yaml:"view_count" bson:"view_count"`
}

type TableIndexEntry struct {
	Table            string   `yaml:"table" bson:"table"`
	Schema           string   `yaml:"schema" bson:"schema"`
	ObjectType       string   `yaml:"object_type" bson:"object_type"`
	Keywords         []string `yaml:"keywords" bson:"keywords"`
	ColumnNames      []string `yaml:"column_names" bson:"column_names"`
	PrimaryKey       []string `yaml:"primary_key" bson:"primary_key"`
	HasForeignKeys   bool     `yaml:"has_foreign_keys" bson:"has_foreign_keys"`
	ShortDescription string   `yaml:"short_description" bson:"short_description"`
}

type ViewIndexEntry struct {
	View             string   `yaml:"view" bson:"view"`
	Schema           string   `yaml:"schema" bson:"schema"`
	ObjectType       string   `yaml:"object_type" bson:"object_type"`
	Keywords         []string `yaml:"keywords" bson:"keywords"`
	ColumnNames      []string `yaml:"column_names" bson:"column_names"`
	ShortDescription string   `yaml:"short_description" bson:"short_description"`
}

type ManyToManyPattern struct {
	JunctionTable  string `yaml:"junction_table" bson:"junction_table"`
	JunctionSchema string `yaml:"junction_schema" bson:"junction_schema"`
	LeftTable      string `yaml:"left_table" bson:"left_table"`
	LeftSchema     string `yaml:"left_schema" bson:"left_schema"`
	RightTable     string `yaml:"right_table" bson:"right_table"`
	RightSchema    string `yaml:"right_schema" bson:"right_schema"`
}

type RelationshipSummary struct {
	ManyToManyPatterns []ManyToManyPattern `yaml:"many_to_many_patterns" bson:"many_to_many_patterns"`
}

// SchemaIndex is the flat catalog persisted next to the table documents.
// Consumers list and search against it without opening every document.
type SchemaIndex struct {
	DatabaseName        string              `yaml:"database_name" bson:"database_name"`
	ExtractionID        string              `yaml:"extraction_id" bson:"extraction_id"`
	ExtractionDate      string              `yaml:"extraction_date" bson:"extraction_date"`
	TotalSchemas        int                 `yaml:"total_schemas" bson:"total_schemas"`
	TotalTables         int                 `yaml:"total_tables" bson:"total_tables"`
	TotalViews          int                 `yaml:"total_views" bson:"total_views"`
	Schemas             []SchemaSummary     `yaml:"schemas" bson:"schemas"`
	Tables              []TableIndexEntry   `yaml:"tables" bson:"tables"`
	Views               []ViewIndexEntry    `yaml:"views" bson:"views"`
	RelationshipSummary RelationshipSummary `yaml:"relationship_summary" bson:"relationship_summary"`
}

// Artifacts is one complete build result. TableOrder preserves the order
// tables arrived from the catalog so every downstream pass and the
// persisted output stay deterministic for a fixed snapshot.
type Artifacts struct {
	DatabaseName string
	Tables       map[TableKey]*Table
	TableOrder   []TableKey
	Views        []*View
	Index        *SchemaIndex
}

// TablesInOrder returns the built tables in catalog order.
func (a *Artifacts) TablesInOrder() []*Table {
	tables := make([]*Table, 0, len(a.TableOrder))
	for _, key := range a.TableOrder {
		if table, ok := a.Tables[key]; ok {
			tables = append(tables, table)
		}
	}
	return tables
}
