package toolkit_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
)

func TestFormatTableRendersFlagsAndDescriptions(t *testing.T) {
	tk := newClinicToolkit(t)

	detail := tk.DescribeTable("PatientDoctors")
	require.NotNil(t, detail)

	text := toolkit.FormatTable(detail, 8)
	lines := strings.Split(text, "\n")

	assert.Equal(t, "Table public.PatientDoctors: No description provided.", lines[0])
	assert.Contains(t, text, "  - patient_id (int4) [PK FK->Patients]")
	assert.Contains(t, text, "  - doctor_id (int4) [PK FK->Doctors]")
	assert.NotContains(t, text, "more columns")
}

func TestFormatTableTruncatesColumns(t *testing.T) {
	columns := make([]graph.Column, 0, 12)
	for _, name := range []string{
		"id", "line_no", "product_code", "quantity", "unit_price",
		"discount", "tax_code", "warehouse", "batch_no", "expiry_date",
		"packed_by", "note_text",
	} {
		columns = append(columns, graph.Column{Name: name, Type: "text", SQLType: "text", Keywords: []string{}})
	}

	detail := &graph.Table{
		TableName:   "OrderLines",
		Schema:      "sales",
		ObjectType:  "table",
		Description: "One row per ordered item.",
		Keywords:    []string{"order", "line", "item"},
		Columns:     columns,
	}

	text := toolkit.FormatTable(detail, 8)

	assert.Contains(t, text, "Table sales.OrderLines: One row per ordered item.")
	assert.Contains(t, text, "  - ... 4 more columns")
	assert.Contains(t, text, "  Keywords: order, line, item")
	assert.NotContains(t, text, "packed_by", "columns past the cap are not rendered")
}

func TestFormatTableColumnDescription(t *testing.T) {
	detail := &graph.Table{
		TableName: "Patients",
		Schema:    "public",
		Columns: []graph.Column{
			{Name: "mrn", Type: "varchar", SQLType: "varchar(32)", Description: "Medical record number.", Keywords: []string{}},
		},
	}

	text := toolkit.FormatTable(detail, 8)
	assert.Contains(t, text, "  - mrn (varchar(32)) - Medical record number.")
}

func TestSummarizeJoinPathsRendersEqualities(t *testing.T) {
	tk := newClinicToolkit(t)

	summary := toolkit.SummarizeJoinPaths(tk, []string{"Patients", "Doctors"}, 5, 2)

	assert.Contains(t, summary, "Joins between Patients and Doctors:")
	assert.Contains(t, summary, "  - Patients.id = PatientDoctors.patient_id THEN PatientDoctors.doctor_id = Doctors.id")
}

func TestSummarizeJoinPathsSkipsUnconnectedPairs(t *testing.T) {
	tk := newClinicToolkit(t)

	summary := toolkit.SummarizeJoinPaths(tk, []string{"Patients", "Patients", "Doctors"}, 5, 2)

	// The duplicate collapses, leaving exactly one pair.
	assert.Equal(t, 1, strings.Count(summary, "Joins between"))
}

func TestSummarizeJoinPathsEmptyWhenNothingConnects(t *testing.T) {
	tk := newClinicToolkit(t)

	assert.Empty(t, toolkit.SummarizeJoinPaths(tk, []string{"Patients"}, 5, 2))
}
