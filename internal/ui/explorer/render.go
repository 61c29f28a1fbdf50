package explorer

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
)

var columnHeaders = []string{"Column", "Type", "Null", "Flags", "Description"}

// columnRows flattens a table document into preview rows matching
// columnHeaders.
func columnRows(detail *graph.Table) [][]string {
	pkColumns := make(map[string]struct{})
	if detail.PrimaryKey != nil {
		for _, col := range detail.PrimaryKey.Columns {
			pkColumns[col] = struct{}{}
		}
	}
	fkTargets := make(map[string]string)
	for _, fk := range detail.ForeignKeys {
		for _, col := range fk.Columns {
			fkTargets[col] = fk.ReferencedTable
		}
	}

	rows := make([][]string, 0, len(detail.Columns))
	for _, col := range detail.Columns {
		nullable := "no"
		if col.IsNullable {
			nullable = "yes"
		}

		var flags []string
		if _, ok := pkColumns[col.Name]; ok {
			flags = append(flags, "PK")
		}
		if target, ok := fkTargets[col.Name]; ok && target != "" {
			flags = append(flags, "FK->"+target)
		}
		if col.IsIdentity {
			flags = append(flags, "ID")
		}
		if col.IsComputed {
			flags = append(flags, "COMPUTED")
		}

		colType := col.SQLType
		if colType == "" {
			colType = col.Type
		}

		rows = append(rows, []string{
			col.Name,
			colType,
			nullable,
			strings.Join(flags, " "),
			col.Description,
		})
	}
	return rows
}

// tableMetaText builds the detail pane text for one table.
func tableMetaText(detail *graph.Table) string {
	description := detail.Description
	if description == "" {
		description = "No description recorded."
	}

	lines := []string{
		fmt.Sprintf("[::b]%s.%s[-:-:-]", detail.Schema, detail.TableName),
		description,
		fmt.Sprintf("Columns: %d (%d nullable) • Indexed: %d",
			detail.Statistics.TotalColumns, detail.Statistics.NullableColumns, detail.Statistics.IndexedColumns),
		fmt.Sprintf("References out: %d • in: %d • many-to-many: %d",
			len(detail.Relationships.Outgoing), len(detail.Relationships.Incoming), len(detail.Relationships.ManyToMany)),
	}
	if len(detail.Keywords) > 0 {
		lines = append(lines, "Keywords: "+strings.Join(detail.Keywords, ", "))
	}
	lines = append(lines, "'/' search • 'j' join paths • 'q' exit")

	return strings.Join(lines, "\n")
}

// matchRows flattens search results into preview rows.
func matchRows(matches []toolkit.TableMatch) [][]string {
	rows := make([][]string, 0, len(matches))
	for _, match := range matches {
		rows = append(rows, []string{
			match.TableName,
			fmt.Sprintf("%.1f", match.Score),
			match.Reason,
			match.Description,
		})
	}
	return rows
}

// pathLines renders join paths as one chained-equality line per path.
func pathLines(paths []toolkit.JoinPath) []string {
	lines := make([]string, 0, len(paths))
	for _, path := range paths {
		if path.Length == 0 {
			lines = append(lines, fmt.Sprintf("%s is the same table (0 hops)", path.Source))
			continue
		}

		segments := make([]string, 0, len(path.Steps))
		for _, step := range path.Steps {
			segments = append(segments, fmt.Sprintf("%s.%s = %s.%s",
				step.FromTable, strings.Join(step.Columns, ","),
				step.ToTable, strings.Join(step.ReferencedColumns, ",")))
		}
		lines = append(lines, fmt.Sprintf("%d hop(s): %s", path.Length, strings.Join(segments, " THEN ")))
	}
	return lines
}

func renderColumns(view *tview.Table, detail *graph.Table) {
	renderGrid(view, columnHeaders, columnRows(detail))
}

func renderMatches(view *tview.Table, matches []toolkit.TableMatch) {
	renderGrid(view, []string{"Table", "Score", "Matched", "Description"}, matchRows(matches))
}

func renderGrid(view *tview.Table, headers []string, rows [][]string) {
	view.Clear()
	for i, header := range headers {
		cell := tview.NewTableCell(header).SetSelectable(false).SetAlign(tview.AlignCenter).SetAttributes(tcell.AttrBold)
		view.SetCell(0, i, cell)
	}
	for r, row := range rows {
		for c, val := range row {
			view.SetCell(r+1, c, tview.NewTableCell(val).SetExpansion(1))
		}
	}
}
