// Package export renders a loaded schema graph into derived artifacts:
// per-table markdown with an overview, a compact one-line-per-table
// prompt context, and the keyword ontology map.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

const (
	FormatMarkdown = "markdown"
	FormatPrompt   = "prompt"
	FormatKeywords = "keywords"

	overviewFileName = "_overview.md"
	promptFileName   = "schema_prompt.txt"
	keywordsFileName = "keyword_map.yaml"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

type Exporter struct {
	tk  *toolkit.Toolkit
	log *logger.Logger
}

func NewExporter(tk *toolkit.Toolkit, log *logger.Logger) *Exporter {
	return &Exporter{tk: tk, log: log}
}

// Summary reports what one export run produced.
type Summary struct {
	Format    string
	OutputDir string
	Files     int
}

func (e *Exporter) Export(format, outputDir string) (*Summary, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	switch format {
	case FormatMarkdown:
		return e.exportMarkdown(outputDir)
	case FormatPrompt:
		return e.exportPrompt(outputDir)
	case FormatKeywords:
		return e.exportKeywords(outputDir)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func (e *Exporter) exportMarkdown(outputDir string) (*Summary, error) {
	tables := e.tk.Tables()

	files := 0
	for _, table := range tables {
		name := safeFileName(table.Schema) + "." + safeFileName(table.TableName) + ".md"
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(MarkdownTable(table)), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write table file for %s.%s: %w", table.Schema, table.TableName, err)
		}
		files++
	}

	overview := markdownOverview(e.tk.Index(), tables)
	if err := os.WriteFile(filepath.Join(outputDir, overviewFileName), []byte(overview), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write overview: %w", err)
	}
	files++

	e.log.Infof("exported %d markdown files to %s", files, outputDir)
	return &Summary{Format: FormatMarkdown, OutputDir: outputDir, Files: files}, nil
}

func (e *Exporter) exportPrompt(outputDir string) (*Summary, error) {
	tables := e.tk.Tables()

	lines := make([]string, 0, len(tables))
	for _, table := range tables {
		lines = append(lines, PromptLine(table))
	}

	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}

	path := filepath.Join(outputDir, promptFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write prompt file: %w", err)
	}

	e.log.Infof("exported %d table lines to %s", len(lines), path)
	return &Summary{Format: FormatPrompt, OutputDir: outputDir, Files: 1}, nil
}

func (e *Exporter) exportKeywords(outputDir string) (*Summary, error) {
	keywordMap := e.tk.KeywordMap(toolkit.NewKeywordSuggester(nil))

	data, err := yaml.Marshal(keywordMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keyword map: %w", err)
	}

	path := filepath.Join(outputDir, keywordsFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write keyword map: %w", err)
	}

	e.log.Infof("exported %d keywords to %s", len(keywordMap), path)
	return &Summary{Format: FormatKeywords, OutputDir: outputDir, Files: 1}, nil
}

// MarkdownTable renders one table document as a standalone markdown
// section: description, keywords, columns, relationships, indexes.
func MarkdownTable(table *graph.Table) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s.%s\n\n", table.Schema, table.TableName)

	if table.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", table.Description)
	}
	if len(table.Keywords) > 0 {
		fmt.Fprintf(&b, "**Keywords:** %s\n\n", strings.Join(table.Keywords, ", "))
	}

	b.WriteString("### Columns\n\n")
	for _, col := range table.Columns {
		line := fmt.Sprintf("- **%s:** %s", col.Name, columnType(col))
		if constraints := columnConstraints(col, table.PrimaryKey); constraints != "" {
			line += ", " + constraints
		}
		if col.Description != "" {
			line += " - " + col.Description
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	if len(table.Relationships.Outgoing) > 0 {
		b.WriteString("### References\n\n")
		for _, rel := range table.Relationships.Outgoing {
			fmt.Fprintf(&b, "- %s → %s.%s (%s)\n",
				strings.Join(rel.ViaColumns, ", "), rel.ToSchema, rel.ToTable, rel.RelationshipType)
		}
		b.WriteString("\n")
	}

	if len(table.Relationships.Incoming) > 0 {
		b.WriteString("### Referenced by\n\n")
		for _, rel := range table.Relationships.Incoming {
			fmt.Fprintf(&b, "- %s.%s → %s (%s)\n",
				rel.FromSchema, rel.FromTable, strings.Join(rel.ViaColumns, ", "), rel.RelationshipType)
		}
		b.WriteString("\n")
	}

	if len(table.Relationships.ManyToMany) > 0 {
		b.WriteString("### Many-to-many\n\n")
		for _, rel := range table.Relationships.ManyToMany {
			fmt.Fprintf(&b, "- %s.%s via %s.%s\n", rel.ToSchema, rel.ToTable, rel.ViaSchema, rel.ViaTable)
		}
		b.WriteString("\n")
	}

	if len(table.Indexes) > 0 {
		b.WriteString("### Indexes\n\n")
		for _, idx := range table.Indexes {
			cols := make([]string, 0, len(idx.Columns))
			for _, col := range idx.Columns {
				cols = append(cols, col.Column)
			}
			if idx.IsUnique {
				fmt.Fprintf(&b, "- %s on (%s), unique\n", idx.IndexName, strings.Join(cols, ", "))
			} else {
				fmt.Fprintf(&b, "- %s on (%s)\n", idx.IndexName, strings.Join(cols, ", "))
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}

// PromptLine renders a table as one pipe-delimited line: name,
// description, columns with nullability, primary key, foreign keys, and
// indexes. Entries missing a name or type are skipped rather than
// rendered half-empty.
func PromptLine(table *graph.Table) string {
	parts := []string{
		"Table:" + table.TableName,
		"Desc:" + table.Description,
	}

	if cols := promptColumns(table.Columns); len(cols) > 0 {
		parts = append(parts, "Columns:"+strings.Join(cols, ";"))
	}
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 0 {
		parts = append(parts, "PK:"+strings.Join(table.PrimaryKey.Columns, ","))
	}
	if fks := promptForeignKeys(table.ForeignKeys); len(fks) > 0 {
		parts = append(parts, "FKs:"+strings.Join(fks, ";"))
	}
	if indexes := promptIndexes(table.Indexes); len(indexes) > 0 {
		parts = append(parts, "Indexes:"+strings.Join(indexes, ";"))
	}

	return strings.Join(parts, "|")
}

func promptColumns(columns []graph.Column) []string {
	formatted := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.Name == "" || col.Type == "" {
			continue
		}
		entry := fmt.Sprintf("%s(%s)", col.Name, col.Type)
		if col.IsNullable {
			entry += ":NULL"
		}
		formatted = append(formatted, entry)
	}
	return formatted
}

func promptForeignKeys(fks []graph.ForeignKey) []string {
	formatted := make([]string, 0, len(fks))
	for _, fk := range fks {
		if len(fk.Columns) == 0 || fk.ReferencedTable == "" {
			continue
		}
		formatted = append(formatted, fmt.Sprintf("%s->%s", strings.Join(fk.Columns, ","), fk.ReferencedTable))
	}
	return formatted
}

func promptIndexes(indexes []graph.Index) []string {
	formatted := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		cols := make([]string, 0, len(idx.Columns))
		for _, col := range idx.Columns {
			if col.Column != "" {
				cols = append(cols, col.Column)
			}
		}
		if idx.IndexName == "" || len(cols) == 0 {
			continue
		}
		formatted = append(formatted, fmt.Sprintf("%s(%s)", idx.IndexName, strings.Join(cols, ",")))
	}
	return formatted
}

func markdownOverview(index *graph.SchemaIndex, tables []*graph.Table) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Schema Overview: %s\n\n", index.DatabaseName)
	fmt.Fprintf(&b, "%d tables and %d views across %d schemas, extracted %s.\n\n",
		index.TotalTables, index.TotalViews, index.TotalSchemas, index.ExtractionDate)
	b.WriteString("Each table has a corresponding file: `<schema>.<table>.md`\n\n")

	b.WriteString("## Tables\n\n")

	sorted := make([]*graph.Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Schema != sorted[j].Schema {
			return sorted[i].Schema < sorted[j].Schema
		}
		return sorted[i].TableName < sorted[j].TableName
	})

	for _, table := range sorted {
		fmt.Fprintf(&b, "- **%s.%s**", table.Schema, table.TableName)
		if targets := referenceTargets(table); len(targets) > 0 {
			fmt.Fprintf(&b, " (references: %s)", strings.Join(targets, ", "))
		}
		if table.Description != "" {
			fmt.Fprintf(&b, " - %s", table.Description)
		}
		b.WriteString("\n")
	}

	if len(index.Views) > 0 {
		b.WriteString("\n## Views\n\n")
		for _, view := range index.Views {
			fmt.Fprintf(&b, "- **%s.%s**", view.Schema, view.View)
			if view.ShortDescription != "" {
				fmt.Fprintf(&b, " - %s", view.ShortDescription)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func referenceTargets(table *graph.Table) []string {
	seen := make(map[string]struct{})
	var targets []string
	for _, rel := range table.Relationships.Outgoing {
		target := rel.ToSchema + "." + rel.ToTable
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		targets = append(targets, target)
	}
	return targets
}

func columnType(col graph.Column) string {
	switch {
	case col.SQLType != "":
		return col.SQLType
	case col.Type != "":
		return col.Type
	default:
		return "unknown"
	}
}

func columnConstraints(col graph.Column, pk *graph.PrimaryKey) string {
	var constraints []string

	if pk != nil {
		for _, name := range pk.Columns {
			if strings.EqualFold(name, col.Name) {
				constraints = append(constraints, "PK")
				break
			}
		}
	}
	if col.IsIdentity {
		constraints = append(constraints, "IDENTITY")
	}
	if !col.IsNullable {
		constraints = append(constraints, "NOT NULL")
	}
	if col.DefaultValue != nil {
		constraints = append(constraints, fmt.Sprintf("DEFAULT %s", *col.DefaultValue))
	}

	return strings.Join(constraints, ", ")
}

func safeFileName(name string) string {
	cleaned := unsafeNameChars.ReplaceAllString(name, "_")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}
