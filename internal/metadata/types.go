package metadata

// Snapshot holds one full read of a database catalog as flat row lists.
// The graph builder groups these rows itself, so introspectors only need
// to emit them in whatever order the catalog returns.
type Snapshot struct {
	DatabaseName      string
	Tables            []TableRow
	Columns           []ColumnRow
	PrimaryKeys       []PrimaryKeyRow
	ForeignKeys       []ForeignKeyRow
	Indexes           []IndexRow
	UniqueConstraints []UniqueConstraintRow
	CheckConstraints  []CheckConstraintRow
	Views             []ViewRow
	ViewColumns       []ViewColumnRow
}

type TableRow struct {
	Schema       string
	Table        string
	Description  string
	CreatedDate  string
	ModifiedDate string
}

type ColumnRow struct {
	Schema             string
	Table              string
	Column             string
	Ordinal            int
	DataType           string
	MaxLength          *int
	Precision          *int
	Scale              *int
	IsNullable         bool
	IsIdentity         bool
	IdentitySeed       *int64
	IdentityIncrement  *int64
	IsComputed         bool
	ComputedDefinition *string
	DefaultValue       *string
	Collation          *string
	Description        string
}

type PrimaryKeyRow struct {
	Schema         string
	Table          string
	ConstraintName string
	Column         string
	KeyOrdinal     int
	IsDescending   bool
}

type ForeignKeyRow struct {
	Schema           string
	Table            string
	ConstraintName   string
	Column           string
	ReferencedSchema string
	ReferencedTable  string
	ReferencedColumn string
	OnDelete         string
	OnUpdate         string
	IsDisabled       bool
}

type IndexRow struct {
	Schema           string
	Table            string
	IndexName        string
	Column           string
	KeyOrdinal       int
	IsDescending     bool
	IsIncluded       bool
	IsUnique         bool
	TypeDesc         string
	FilterDefinition *string
}

type UniqueConstraintRow struct {
	Schema         string
	Table          string
	ConstraintName string
	Column         string
	KeyOrdinal     int
}

type CheckConstraintRow struct {
	Schema         string
	Table          string
	ConstraintName string
	Definition     string
	IsDisabled     bool
}

type ViewRow struct {
	Schema       string
	View         string
	Description  string
	Definition   string
	CreatedDate  string
	ModifiedDate string
}

type ViewColumnRow struct {
	Schema      string
	View        string
	Column      string
	DataType    string
	MaxLength   *int
	IsNullable  bool
	Description string
}

// TotalRows reports how many raw rows the snapshot carries across all
// entity lists. Used for progress reporting only.
func (s *Snapshot) TotalRows() int {
	return len(s.Tables) + len(s.Columns) + len(s.PrimaryKeys) + len(s.ForeignKeys) +
		len(s.Indexes) + len(s.UniqueConstraints) + len(s.CheckConstraints) +
		len(s.Views) + len(s.ViewColumns)
}
