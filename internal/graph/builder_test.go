package graph_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/metadata"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

func newBuilder() *graph.Builder {
	return graph.NewBuilder(graph.DefaultSettings(), logger.NewNop())
}

func intPtr(v int) *int { return &v }

// clinicSnapshot models a small clinic database: two entity tables, a
// junction between them, a detail table, and one reporting view.
func clinicSnapshot() *metadata.Snapshot {
	return &metadata.Snapshot{
		DatabaseName: "clinic",
		Tables: []metadata.TableRow{
			{Schema: "public", Table: "patients", Description: "Registered patients"},
			{Schema: "public", Table: "doctors"},
			{Schema: "public", Table: "patient_doctors"},
			{Schema: "public", Table: "prescriptions"},
		},
		Columns: []metadata.ColumnRow{
			{Schema: "public", Table: "patients", Column: "id", Ordinal: 1, DataType: "INT4", IsIdentity: true},
			{Schema: "public", Table: "patients", Column: "mrn", Ordinal: 2, DataType: "varchar", MaxLength: intPtr(32)},
			{Schema: "public", Table: "patients", Column: "full_name", Ordinal: 3, DataType: "varchar", MaxLength: intPtr(120)},
			{Schema: "public", Table: "patients", Column: "balance", Ordinal: 4, DataType: "numeric", Precision: intPtr(12), Scale: intPtr(2)},
			{Schema: "public", Table: "patients", Column: "notes", Ordinal: 5, DataType: "text", IsNullable: true},

			{Schema: "public", Table: "doctors", Column: "id", Ordinal: 1, DataType: "int4", IsIdentity: true},
			{Schema: "public", Table: "doctors", Column: "full_name", Ordinal: 2, DataType: "varchar", MaxLength: intPtr(120)},

			{Schema: "public", Table: "patient_doctors", Column: "patient_id", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "patient_doctors", Column: "doctor_id", Ordinal: 2, DataType: "int4"},
			{Schema: "public", Table: "patient_doctors", Column: "assigned_at", Ordinal: 3, DataType: "timestamptz"},

			{Schema: "public", Table: "prescriptions", Column: "id", Ordinal: 1, DataType: "int4", IsIdentity: true},
			{Schema: "public", Table: "prescriptions", Column: "patient_id", Ordinal: 2, DataType: "int4"},
			{Schema: "public", Table: "prescriptions", Column: "refill_count", Ordinal: 3, DataType: "int4"},
		},
		PrimaryKeys: []metadata.PrimaryKeyRow{
			{Schema: "public", Table: "patients", ConstraintName: "pk_patients", Column: "id", KeyOrdinal: 1},
			{Schema: "public", Table: "doctors", ConstraintName: "pk_doctors", Column: "id", KeyOrdinal: 1},
			{Schema: "public", Table: "patient_doctors", ConstraintName: "pk_patient_doctors", Column: "doctor_id", KeyOrdinal: 2},
			{Schema: "public", Table: "patient_doctors", ConstraintName: "pk_patient_doctors", Column: "patient_id", KeyOrdinal: 1},
			{Schema: "public", Table: "prescriptions", ConstraintName: "pk_prescriptions", Column: "id", KeyOrdinal: 1},
		},
		ForeignKeys: []metadata.ForeignKeyRow{
			{Schema: "public", Table: "patient_doctors", ConstraintName: "fk_pd_patient", Column: "patient_id", ReferencedSchema: "public", ReferencedTable: "patients", ReferencedColumn: "id", OnDelete: "CASCADE", OnUpdate: "NO ACTION"},
			{Schema: "public", Table: "patient_doctors", ConstraintName: "fk_pd_doctor", Column: "doctor_id", ReferencedSchema: "public", ReferencedTable: "doctors", ReferencedColumn: "id", OnDelete: "CASCADE", OnUpdate: "NO ACTION"},
			{Schema: "public", Table: "prescriptions", ConstraintName: "fk_rx_patient", Column: "patient_id", ReferencedSchema: "public", ReferencedTable: "patients", ReferencedColumn: "id", OnDelete: "NO ACTION", OnUpdate: "NO ACTION"},
		},
		Indexes: []metadata.IndexRow{
			{Schema: "public", Table: "patients", IndexName: "ix_patients_mrn", Column: "mrn", KeyOrdinal: 1, IsUnique: true, TypeDesc: "BTREE"},
			{Schema: "public", Table: "patients", IndexName: "ix_patients_name", Column: "full_name", KeyOrdinal: 1, TypeDesc: "BTREE"},
			{Schema: "public", Table: "patients", IndexName: "ix_patients_name", Column: "notes", KeyOrdinal: 0, IsIncluded: true, TypeDesc: "BTREE"},
		},
		UniqueConstraints: []metadata.UniqueConstraintRow{
			{Schema: "public", Table: "patients", ConstraintName: "uq_patients_mrn", Column: "mrn", KeyOrdinal: 1},
		},
		CheckConstraints: []metadata.CheckConstraintRow{
			{Schema: "public", Table: "prescriptions", ConstraintName: "chk_refill_count", Definition: "refill_count >= 0"},
		},
		Views: []metadata.ViewRow{
			{Schema: "public", View: "v_patient_roster", Definition: "SELECT p.full_name AS patient, d.full_name AS doctor FROM ..."},
		},
		ViewColumns: []metadata.ViewColumnRow{
			{Schema: "public", View: "v_patient_roster", Column: "patient", DataType: "varchar", MaxLength: intPtr(120)},
			{Schema: "public", View: "v_patient_roster", Column: "doctor", DataType: "varchar", MaxLength: intPtr(120)},
		},
	}
}

func TestBuildAssemblesTablePayload(t *testing.T) {
	artifacts := newBuilder().Build(clinicSnapshot())

	patients, ok := artifacts.Tables[graph.TableKey{Schema: "public", Table: "patients"}]
	require.True(t, ok)

	assert.Equal(t, "patients", patients.TableName)
	assert.Equal(t, "public", patients.Schema)
	assert.Equal(t, "table", patients.ObjectType)
	assert.Equal(t, "Registered patients", patients.Description)

	require.Len(t, patients.Columns, 5)
	assert.Equal(t, "id", patients.Columns[0].Name)
	assert.Equal(t, "int4", patients.Columns[0].Type, "type names are lowercased")
	assert.True(t, patients.Columns[0].IsIdentity)
	assert.Equal(t, "varchar(120)", patients.Columns[2].SQLType)
	assert.Equal(t, "numeric(12,2)", patients.Columns[3].SQLType)
	assert.Equal(t, "text", patients.Columns[4].SQLType)
	assert.NotNil(t, patients.Columns[0].Keywords, "keywords start empty, not null")

	require.NotNil(t, patients.PrimaryKey)
	assert.Equal(t, "pk_patients", patients.PrimaryKey.ConstraintName)
	assert.Equal(t, []string{"id"}, patients.PrimaryKey.Columns)

	require.Len(t, patients.Indexes, 2)
	assert.True(t, patients.Indexes[0].IsUnique)
	require.Len(t, patients.Indexes[1].Columns, 2)
	assert.Equal(t, "notes", patients.Indexes[1].Columns[0].Column, "key ordinal 0 sorts first")
	assert.True(t, patients.Indexes[1].Columns[0].IsIncluded)
	assert.False(t, patients.Indexes[1].Columns[1].IsIncluded)

	require.Len(t, patients.UniqueConstraints, 1)
	assert.Equal(t, []string{"mrn"}, patients.UniqueConstraints[0].Columns)

	assert.Equal(t, 5, patients.Statistics.TotalColumns)
	assert.Equal(t, 1, patients.Statistics.NullableColumns)
	assert.Equal(t, 0, patients.Statistics.ComputedColumns)
	assert.Equal(t, 2, patients.Statistics.IndexedColumns, "included columns do not count as indexed")

	prescriptions := artifacts.Tables[graph.TableKey{Schema: "public", Table: "prescriptions"}]
	require.Len(t, prescriptions.CheckConstraints, 1)
	assert.Equal(t, "refill_count >= 0", prescriptions.CheckConstraints[0].Definition)
}

func TestBuildOrdersCompositePrimaryKey(t *testing.T) {
	artifacts := newBuilder().Build(clinicSnapshot())

	junction := artifacts.Tables[graph.TableKey{Schema: "public", Table: "patient_doctors"}]
	require.NotNil(t, junction.PrimaryKey)

	// Snapshot rows arrive with ordinal 2 before ordinal 1; the payload
	// must follow key ordinals.
	assert.Equal(t, []string{"patient_id", "doctor_id"}, junction.PrimaryKey.Columns)
	assert.Equal(t, 1, junction.PrimaryKey.ColumnDetails[0].Ordinal)
	assert.Equal(t, 2, junction.PrimaryKey.ColumnDetails[1].Ordinal)
}

func TestBuildLeavesPrimaryKeyNilWhenAbsent(t *testing.T) {
	snap := &metadata.Snapshot{
		DatabaseName: "clinic",
		Tables:       []metadata.TableRow{{Schema: "public", Table: "audit_log"}},
		Columns: []metadata.ColumnRow{
			{Schema: "public", Table: "audit_log", Column: "message", Ordinal: 1, DataType: "text"},
		},
	}

	artifacts := newBuilder().Build(snap)

	table := artifacts.Tables[graph.TableKey{Schema: "public", Table: "audit_log"}]
	assert.Nil(t, table.PrimaryKey)

	require.Len(t, artifacts.Index.Tables, 1)
	assert.Nil(t, artifacts.Index.Tables[0].PrimaryKey)
	assert.False(t, artifacts.Index.Tables[0].HasForeignKeys)
}

func TestBuildSortsCompositeForeignKeyColumnsByName(t *testing.T) {
	snap := &metadata.Snapshot{
		DatabaseName: "clinic",
		Tables: []metadata.TableRow{
			{Schema: "public", Table: "order_lines"},
			{Schema: "public", Table: "orders"},
		},
		Columns: []metadata.ColumnRow{
			{Schema: "public", Table: "order_lines", Column: "zone", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "order_lines", Column: "batch", Ordinal: 2, DataType: "int4"},
			{Schema: "public", Table: "orders", Column: "zone", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "orders", Column: "batch", Ordinal: 2, DataType: "int4"},
		},
		ForeignKeys: []metadata.ForeignKeyRow{
			{Schema: "public", Table: "order_lines", ConstraintName: "fk_lines_orders", Column: "zone", ReferencedSchema: "public", ReferencedTable: "orders", ReferencedColumn: "zone"},
			{Schema: "public", Table: "order_lines", ConstraintName: "fk_lines_orders", Column: "batch", ReferencedSchema: "public", ReferencedTable: "orders", ReferencedColumn: "batch"},
		},
	}

	artifacts := newBuilder().Build(snap)

	lines := artifacts.Tables[graph.TableKey{Schema: "public", Table: "order_lines"}]
	require.Len(t, lines.ForeignKeys, 1)
	assert.Equal(t, []string{"batch", "zone"}, lines.ForeignKeys[0].Columns)
	assert.Equal(t, []string{"batch", "zone"}, lines.ForeignKeys[0].ReferencedColumns)
}

func TestBuildDerivesIncomingRelationships(t *testing.T) {
	artifacts := newBuilder().Build(clinicSnapshot())

	patients := artifacts.Tables[graph.TableKey{Schema: "public", Table: "patients"}]
	require.Len(t, patients.Relationships.Incoming, 2)
	for _, incoming := range patients.Relationships.Incoming {
		assert.Equal(t, "one_to_many", incoming.RelationshipType)
	}

	junction := artifacts.Tables[graph.TableKey{Schema: "public", Table: "patient_doctors"}]
	require.Len(t, junction.Relationships.Outgoing, 2)
	assert.Equal(t, "many_to_one", junction.Relationships.Outgoing[0].RelationshipType)
	assert.Empty(t, junction.Relationships.Incoming)
}

func TestBuildSkipsDanglingForeignKeyTargets(t *testing.T) {
	snap := &metadata.Snapshot{
		DatabaseName: "clinic",
		Tables:       []metadata.TableRow{{Schema: "public", Table: "visits"}},
		Columns: []metadata.ColumnRow{
			{Schema: "public", Table: "visits", Column: "ward_id", Ordinal: 1, DataType: "int4"},
		},
		ForeignKeys: []metadata.ForeignKeyRow{
			{Schema: "public", Table: "visits", ConstraintName: "fk_visits_ward", Column: "ward_id", ReferencedSchema: "public", ReferencedTable: "wards", ReferencedColumn: "id"},
		},
	}

	artifacts := newBuilder().Build(snap)

	visits := artifacts.Tables[graph.TableKey{Schema: "public", Table: "visits"}]
	require.Len(t, visits.Relationships.Outgoing, 1, "outgoing edge survives even when the target was filtered out")
	assert.Empty(t, visits.Relationships.Incoming)
}

func TestBuildHandlesSelfReference(t *testing.T) {
	snap := &metadata.Snapshot{
		DatabaseName: "clinic",
		Tables:       []metadata.TableRow{{Schema: "public", Table: "staff"}},
		Columns: []metadata.ColumnRow{
			{Schema: "public", Table: "staff", Column: "id", Ordinal: 1, DataType: "int4", IsIdentity: true},
			{Schema: "public", Table: "staff", Column: "manager_id", Ordinal: 2, DataType: "int4", IsNullable: true},
		},
		ForeignKeys: []metadata.ForeignKeyRow{
			{Schema: "public", Table: "staff", ConstraintName: "fk_staff_manager", Column: "manager_id", ReferencedSchema: "public", ReferencedTable: "staff", ReferencedColumn: "id"},
		},
	}

	artifacts := newBuilder().Build(snap)

	staff := artifacts.Tables[graph.TableKey{Schema: "public", Table: "staff"}]
	require.Len(t, staff.Relationships.Outgoing, 1)
	require.Len(t, staff.Relationships.Incoming, 1)
	assert.Equal(t, "staff", staff.Relationships.Incoming[0].FromTable)
}

func TestBuildDetectsManyToMany(t *testing.T) {
	artifacts := newBuilder().Build(clinicSnapshot())

	require.Len(t, artifacts.Index.RelationshipSummary.ManyToManyPatterns, 1)
	pattern := artifacts.Index.RelationshipSummary.ManyToManyPatterns[0]
	assert.Equal(t, "patient_doctors", pattern.JunctionTable)

	patients := artifacts.Tables[graph.TableKey{Schema: "public", Table: "patients"}]
	require.Len(t, patients.Relationships.ManyToMany, 1)
	assert.Equal(t, "doctors", patients.Relationships.ManyToMany[0].ToTable)
	assert.Equal(t, "patient_doctors", patients.Relationships.ManyToMany[0].ViaTable)
	assert.Equal(t, []string{"patient_id"}, patients.Relationships.ManyToMany[0].ViaColumns)
	assert.Equal(t, "many_to_many", patients.Relationships.ManyToMany[0].RelationshipType)

	doctors := artifacts.Tables[graph.TableKey{Schema: "public", Table: "doctors"}]
	require.Len(t, doctors.Relationships.ManyToMany, 1)
	assert.Equal(t, "patients", doctors.Relationships.ManyToMany[0].ToTable)
	assert.Equal(t, []string{"doctor_id"}, doctors.Relationships.ManyToMany[0].ViaColumns)

	junction := artifacts.Tables[graph.TableKey{Schema: "public", Table: "patient_doctors"}]
	assert.Empty(t, junction.Relationships.ManyToMany, "the junction itself carries no many-to-many entries")
}

func TestManyToManyRespectsColumnLimit(t *testing.T) {
	snap := clinicSnapshot()
	// Pile extra payload columns onto the junction so it no longer looks
	// like a pure link table.
	snap.Columns = append(snap.Columns,
		metadata.ColumnRow{Schema: "public", Table: "patient_doctors", Column: "notes", Ordinal: 4, DataType: "text", IsNullable: true},
		metadata.ColumnRow{Schema: "public", Table: "patient_doctors", Column: "ended_at", Ordinal: 5, DataType: "timestamptz", IsNullable: true},
	)

	artifacts := newBuilder().Build(snap)

	assert.Empty(t, artifacts.Index.RelationshipSummary.ManyToManyPatterns)
	patients := artifacts.Tables[graph.TableKey{Schema: "public", Table: "patients"}]
	assert.Empty(t, patients.Relationships.ManyToMany)
}

func TestManyToManyThreeWayJunction(t *testing.T) {
	snap := &metadata.Snapshot{
		DatabaseName: "clinic",
		Tables: []metadata.TableRow{
			{Schema: "public", Table: "patients"},
			{Schema: "public", Table: "doctors"},
			{Schema: "public", Table: "clinics"},
			{Schema: "public", Table: "assignments"},
		},
		Columns: []metadata.ColumnRow{
			{Schema: "public", Table: "patients", Column: "id", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "doctors", Column: "id", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "clinics", Column: "id", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "assignments", Column: "patient_id", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "assignments", Column: "doctor_id", Ordinal: 2, DataType: "int4"},
			{Schema: "public", Table: "assignments", Column: "clinic_id", Ordinal: 3, DataType: "int4"},
		},
		ForeignKeys: []metadata.ForeignKeyRow{
			{Schema: "public", Table: "assignments", ConstraintName: "fk_a_patient", Column: "patient_id", ReferencedSchema: "public", ReferencedTable: "patients", ReferencedColumn: "id"},
			{Schema: "public", Table: "assignments", ConstraintName: "fk_a_doctor", Column: "doctor_id", ReferencedSchema: "public", ReferencedTable: "doctors", ReferencedColumn: "id"},
			{Schema: "public", Table: "assignments", ConstraintName: "fk_a_clinic", Column: "clinic_id", ReferencedSchema: "public", ReferencedTable: "clinics", ReferencedColumn: "id"},
		},
	}

	artifacts := newBuilder().Build(snap)

	// Three foreign keys to three distinct targets yield all three pairs.
	assert.Len(t, artifacts.Index.RelationshipSummary.ManyToManyPatterns, 3)

	patients := artifacts.Tables[graph.TableKey{Schema: "public", Table: "patients"}]
	assert.Len(t, patients.Relationships.ManyToMany, 2)
}

func TestManyToManyIgnoresDoubledReference(t *testing.T) {
	snap := &metadata.Snapshot{
		DatabaseName: "clinic",
		Tables: []metadata.TableRow{
			{Schema: "public", Table: "people"},
			{Schema: "public", Table: "referrals"},
		},
		Columns: []metadata.ColumnRow{
			{Schema: "public", Table: "people", Column: "id", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "referrals", Column: "referrer_id", Ordinal: 1, DataType: "int4"},
			{Schema: "public", Table: "referrals", Column: "referred_id", Ordinal: 2, DataType: "int4"},
		},
		ForeignKeys: []metadata.ForeignKeyRow{
			{Schema: "public", Table: "referrals", ConstraintName: "fk_r_referrer", Column: "referrer_id", ReferencedSchema: "public", ReferencedTable: "people", ReferencedColumn: "id"},
			{Schema: "public", Table: "referrals", ConstraintName: "fk_r_referred", Column: "referred_id", ReferencedSchema: "public", ReferencedTable: "people", ReferencedColumn: "id"},
		},
	}

	artifacts := newBuilder().Build(snap)

	// Two foreign keys into the same table link one target, not two.
	assert.Empty(t, artifacts.Index.RelationshipSummary.ManyToManyPatterns)
}

func TestBuildViews(t *testing.T) {
	artifacts := newBuilder().Build(clinicSnapshot())

	require.Len(t, artifacts.Views, 1)
	view := artifacts.Views[0]
	assert.Equal(t, "v_patient_roster", view.ViewName)
	assert.Equal(t, "view", view.ObjectType)
	assert.Contains(t, view.Definition, "SELECT")
	require.Len(t, view.Columns, 2)
	assert.Equal(t, "patient", view.Columns[0].Name)
	assert.Equal(t, "varchar", view.Columns[0].Type)
}

func TestBuildSchemaIndex(t *testing.T) {
	artifacts := newBuilder().Build(clinicSnapshot())
	index := artifacts.Index

	assert.Equal(t, "clinic", index.DatabaseName)
	assert.NotEmpty(t, index.ExtractionID)
	_, err := time.Parse(time.RFC3339, index.ExtractionDate)
	assert.NoError(t, err)

	assert.Equal(t, 1, index.TotalSchemas)
	assert.Equal(t, 4, index.TotalTables)
	assert.Equal(t, 1, index.TotalViews)

	require.Len(t, index.Schemas, 1)
	assert.Equal(t, "public", index.Schemas[0].Name)
	assert.Equal(t, 4, index.Schemas[0].TableCount)
	assert.Equal(t, 1, index.Schemas[0].ViewCount)

	require.Len(t, index.Tables, 4)
	patients := index.Tables[0]
	assert.Equal(t, "patients", patients.Table)
	assert.Equal(t, []string{"id", "mrn", "full_name", "balance", "notes"}, patients.ColumnNames)
	assert.Equal(t, []string{"id"}, patients.PrimaryKey)
	assert.False(t, patients.HasForeignKeys)
	assert.Equal(t, "Registered patients", patients.ShortDescription)

	junction := index.Tables[2]
	assert.True(t, junction.HasForeignKeys)

	require.Len(t, index.Views, 1)
	assert.Equal(t, "v_patient_roster", index.Views[0].View)
	assert.Equal(t, []string{"patient", "doctor"}, index.Views[0].ColumnNames)
}

func TestBuildIsDeterministic(t *testing.T) {
	builder := newBuilder()

	first := builder.Build(clinicSnapshot())
	second := builder.Build(clinicSnapshot())

	require.Equal(t, first.TableOrder, second.TableOrder)
	for _, key := range first.TableOrder {
		assert.Equal(t, first.Tables[key], second.Tables[key])
	}

	// Everything except the per-run extraction stamp must match.
	second.Index.ExtractionID = first.Index.ExtractionID
	second.Index.ExtractionDate = first.Index.ExtractionDate
	assert.Equal(t, first.Index, second.Index)
}

func TestBuildSingleWorkerMatchesParallel(t *testing.T) {
	parallel := graph.NewBuilder(graph.Settings{JunctionColumnLimit: 2, Workers: 8}, logger.NewNop()).Build(clinicSnapshot())
	serial := graph.NewBuilder(graph.Settings{JunctionColumnLimit: 2, Workers: 1}, logger.NewNop()).Build(clinicSnapshot())

	require.Equal(t, parallel.TableOrder, serial.TableOrder)
	for _, key := range parallel.TableOrder {
		assert.Equal(t, parallel.Tables[key], serial.Tables[key])
	}
}
