package toolkit

import (
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
)

// FormatTable renders a compact plain-text card for one table: header with
// description, up to maxColumns column lines with PK/FK flags, an overflow
// marker, and a trailing keyword line. maxColumns falls back to 8.
func FormatTable(detail *graph.Table, maxColumns int) string {
	if maxColumns <= 0 {
		maxColumns = 8
	}

	description := detail.Description
	if description == "" {
		description = "No description provided."
	}

	lines := []string{fmt.Sprintf("Table %s.%s: %s", detail.Schema, detail.TableName, description)}

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

	shown := detail.Columns
	if len(shown) > maxColumns {
		shown = shown[:maxColumns]
	}
	for _, col := range shown {
		var flags []string
		if _, ok := pkColumns[col.Name]; ok {
			flags = append(flags, "PK")
		}
		if target, ok := fkTargets[col.Name]; ok && target != "" {
			flags = append(flags, "FK->"+target)
		}

		colType := col.SQLType
		if colType == "" {
			colType = col.Type
		}
		if colType == "" {
			colType = "unknown"
		}

		line := fmt.Sprintf("  - %s (%s)", col.Name, colType)
		if len(flags) > 0 {
			line += fmt.Sprintf(" [%s]", strings.Join(flags, " "))
		}
		if col.Description != "" {
			line += " - " + col.Description
		}
		lines = append(lines, line)
	}

	if len(detail.Columns) > maxColumns {
		lines = append(lines, fmt.Sprintf("  - ... %d more columns", len(detail.Columns)-maxColumns))
	}

	if len(detail.Keywords) > 0 {
		keywords := detail.Keywords
		if len(keywords) > 10 {
			keywords = keywords[:10]
		}
		lines = append(lines, "  Keywords: "+strings.Join(keywords, ", "))
	}

	return strings.Join(lines, "\n")
}

// SummarizeJoinPaths renders the join options between every unordered
// pair of the given tables, bounded by maxPairs pairs and maxPaths paths
// per pair (defaults 5 and 2). Pairs with no path are silently omitted.
func SummarizeJoinPaths(t *Toolkit, tableNames []string, maxPairs, maxPaths int) string {
	if maxPairs <= 0 {
		maxPairs = 5
	}
	if maxPaths <= 0 {
		maxPaths = 2
	}

	var unique []string
	seen := make(map[string]struct{})
	for _, name := range tableNames {
		lower := strings.ToLower(name)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		unique = append(unique, name)
	}

	var lines []string
	pairs := 0
	for i := 0; i < len(unique) && pairs < maxPairs; i++ {
		for j := i + 1; j < len(unique) && pairs < maxPairs; j++ {
			pairs++

			paths := t.FindJoinPaths(unique[i], unique[j], 0, maxPaths)
			if len(paths) == 0 {
				continue
			}

			lines = append(lines, fmt.Sprintf("Joins between %s and %s:", unique[i], unique[j]))
			for _, path := range paths {
				segments := make([]string, 0, len(path.Steps))
				for _, step := range path.Steps {
					left := strings.Join(step.Columns, ",")
					if left == "" {
						left = "?"
					}
					right := strings.Join(step.ReferencedColumns, ",")
					if right == "" {
						right = "?"
					}
					segments = append(segments, fmt.Sprintf("%s.%s = %s.%s", step.FromTable, left, step.ToTable, right))
				}
				lines = append(lines, "  - "+strings.Join(segments, " THEN "))
			}
		}
	}

	return strings.Join(lines, "\n")
}
