package explorer

import (
	"strings"
	"testing"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
)

func sampleTable() *graph.Table {
	return &graph.Table{
		TableName: "Orders",
		Schema:    "public",
		Columns: []graph.Column{
			{Name: "OrderID", Type: "int", SQLType: "int"},
			{Name: "CustomerID", Type: "int", IsNullable: true},
		},
		PrimaryKey: &graph.PrimaryKey{Columns: []string{"OrderID"}},
		ForeignKeys: []graph.ForeignKey{
			{Columns: []string{"CustomerID"}, ReferencedTable: "Customers", ReferencedColumns: []string{"CustomerID"}},
		},
		Statistics: graph.Statistics{TotalColumns: 2, NullableColumns: 1},
	}
}

func TestColumnRows(t *testing.T) {
	rows := columnRows(sampleTable())
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0][0] != "OrderID" || rows[0][2] != "no" || rows[0][3] != "PK" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
	if rows[1][2] != "yes" || rows[1][3] != "FK->Customers" {
		t.Fatalf("unexpected second row: %v", rows[1])
	}
}

func TestTableMetaTextFallsBackWithoutDescription(t *testing.T) {
	text := tableMetaText(sampleTable())
	if !strings.Contains(text, "public.Orders") {
		t.Fatalf("expected qualified name in meta text, got %q", text)
	}
	if !strings.Contains(text, "No description recorded.") {
		t.Fatalf("expected description fallback, got %q", text)
	}
	if !strings.Contains(text, "Columns: 2 (1 nullable)") {
		t.Fatalf("expected statistics line, got %q", text)
	}
}

func TestPathLines(t *testing.T) {
	paths := []toolkit.JoinPath{
		{Source: "Orders", Target: "Orders", Length: 0},
		{
			Source: "Orders",
			Target: "Customers",
			Length: 1,
			Steps: []toolkit.JoinStep{
				{FromTable: "Orders", ToTable: "Customers", Columns: []string{"CustomerID"}, ReferencedColumns: []string{"CustomerID"}},
			},
		},
	}

	lines := pathLines(paths)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "same table") {
		t.Fatalf("expected identity wording, got %q", lines[0])
	}
	if lines[1] != "1 hop(s): Orders.CustomerID = Customers.CustomerID" {
		t.Fatalf("unexpected path line: %q", lines[1])
	}
}
