package app

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kadirbelkuyu/schemagraph/internal/backup"
	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/export"
	"github.com/kadirbelkuyu/schemagraph/internal/pipeline"
	"github.com/kadirbelkuyu/schemagraph/internal/store"
	"github.com/kadirbelkuyu/schemagraph/internal/toolkit"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

// Service bundles the workflows shared by the CLI commands and the
// interactive application.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

func (s *Service) Extract(cfg *config.Config, opts pipeline.Options, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)
	log.Info("Starting schema extraction...")

	if opts.Logger == nil {
		opts.Logger = log
	}

	result, err := pipeline.NewService(cfg, opts).Execute()
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Extraction completed successfully.")
	fmt.Printf("Database: %s\n", result.DatabaseName)
	fmt.Printf("Tables: %d, views: %d across %d schema(s)\n", result.TableCount, result.ViewCount, result.SchemaCount)
	fmt.Printf("Store: %s (%s)\n", result.StoreKind, result.OutputDir)
	if result.BackupDir != "" {
		fmt.Printf("Previous graph copied to: %s\n", result.BackupDir)
	}
	if result.Pruned > 0 {
		fmt.Printf("Stale documents pruned: %d\n", result.Pruned)
	}
	fmt.Printf("Duration: %s\n", result.Duration.Round(time.Millisecond))

	return nil
}

func (s *Service) Search(cfg *config.Config, query string, topK int, includeColumns, verboseFlag bool) error {
	tk, err := s.openToolkit(cfg, verboseFlag)
	if err != nil {
		return err
	}

	matches := tk.Search(query, topK, includeColumns)
	if len(matches) == 0 {
		fmt.Printf("No tables matched %q.\n", query)
		return nil
	}

	fmt.Printf("\nTop %d match(es) for %q:\n", len(matches), query)
	fmt.Println(strings.Repeat("=", 60))
	for i, match := range matches {
		fmt.Printf("%d. %s (score %.1f)\n", i+1, match.TableName, match.Score)
		if match.Reason != "" {
			fmt.Printf("   matched: %s\n", match.Reason)
		}
		if match.Description != "" {
			fmt.Printf("   %s\n", match.Description)
		}
		if len(match.Columns) > 0 {
			fmt.Printf("   columns: %s\n", strings.Join(match.Columns, ", "))
		}
	}

	return nil
}

func (s *Service) JoinPaths(cfg *config.Config, source, target string, maxDepth, maxPaths int, verboseFlag bool) error {
	tk, err := s.openToolkit(cfg, verboseFlag)
	if err != nil {
		return err
	}

	paths := tk.FindJoinPaths(source, target, maxDepth, maxPaths)
	if len(paths) == 0 {
		fmt.Printf("No join path found from %s to %s within %d hop(s).\n", source, target, maxDepth)
		return nil
	}

	fmt.Printf("\nJoin paths from %s to %s:\n", source, target)
	fmt.Println(strings.Repeat("=", 60))
	for i, path := range paths {
		if path.Length == 0 {
			fmt.Printf("%d. %s is the same table (0 hops)\n", i+1, source)
			continue
		}
		fmt.Printf("%d. %d hop(s): %s\n", i+1, path.Length, RenderJoinPath(path))
	}

	return nil
}

func (s *Service) ListTables(cfg *config.Config, schemaFilter string, verboseFlag bool) error {
	tk, err := s.openToolkit(cfg, verboseFlag)
	if err != nil {
		return err
	}

	index := tk.Index()
	entries := index.Tables
	if schemaFilter != "" {
		filtered := entries[:0:0]
		for _, entry := range entries {
			if strings.EqualFold(entry.Schema, schemaFilter) {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Schema != entries[j].Schema {
			return entries[i].Schema < entries[j].Schema
		}
		return entries[i].Table < entries[j].Table
	})

	fmt.Printf("\nTables in %s (extracted %s):\n", index.DatabaseName, index.ExtractionDate)
	fmt.Println(strings.Repeat("=", 60))
	for _, entry := range entries {
		line := fmt.Sprintf("%s.%s", entry.Schema, entry.Table)
		if len(entry.PrimaryKey) > 0 {
			line += fmt.Sprintf("  [pk: %s]", strings.Join(entry.PrimaryKey, ", "))
		}
		if entry.HasForeignKeys {
			line += "  [fk]"
		}
		fmt.Println(line)
		if entry.ShortDescription != "" {
			fmt.Printf("    %s\n", entry.ShortDescription)
		}
	}
	fmt.Printf("\nTotal: %d table(s)\n", len(entries))

	return nil
}

func (s *Service) Describe(cfg *config.Config, tableName string, promptFormat, verboseFlag bool) error {
	tk, err := s.openToolkit(cfg, verboseFlag)
	if err != nil {
		return err
	}

	detail := tk.DescribeTable(tableName)
	if detail == nil {
		return fmt.Errorf("table %s is not in the schema graph", tableName)
	}

	if promptFormat {
		fmt.Println(toolkit.FormatTable(detail, 0))
		return nil
	}

	fmt.Println(export.MarkdownTable(detail))
	return nil
}

// AnnotateOptions describes a documentation edit on one table document.
type AnnotateOptions struct {
	Table             string
	Description       string
	Keywords          []string
	Column            string
	ColumnDescription string
	ColumnKeywords    []string
	// Auto fills empty table and column keywords from name tokens run
	// through the synonym ontology.
	Auto bool
}

func (s *Service) Annotate(cfg *config.Config, opts AnnotateOptions, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)

	st, err := store.NewStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	tk, err := toolkit.New(st, cfg.Search, log)
	if err != nil {
		return err
	}

	detail := tk.DescribeTable(opts.Table)
	if detail == nil {
		return fmt.Errorf("table %s is not in the schema graph", opts.Table)
	}

	if opts.Description != "" {
		detail.Description = opts.Description
	}
	if len(opts.Keywords) > 0 {
		detail.Keywords = append([]string(nil), opts.Keywords...)
	}

	if opts.Column != "" {
		applied := false
		for i := range detail.Columns {
			if !strings.EqualFold(detail.Columns[i].Name, opts.Column) {
				continue
			}
			if opts.ColumnDescription != "" {
				detail.Columns[i].Description = opts.ColumnDescription
			}
			if len(opts.ColumnKeywords) > 0 {
				detail.Columns[i].Keywords = append([]string(nil), opts.ColumnKeywords...)
			}
			applied = true
			break
		}
		if !applied {
			return fmt.Errorf("table %s has no column %s", detail.TableName, opts.Column)
		}
	}

	if opts.Auto {
		suggester := toolkit.NewKeywordSuggester(nil)
		if len(detail.Keywords) == 0 {
			detail.Keywords = suggester.SuggestTableKeywords(detail)
		}
		for i := range detail.Columns {
			if len(detail.Columns[i].Keywords) == 0 {
				detail.Columns[i].Keywords = suggester.SuggestColumnKeywords(detail.Columns[i].Name)
			}
		}
	}

	if err := st.WriteTable(detail); err != nil {
		return fmt.Errorf("failed to write annotated document: %w", err)
	}

	log.Infof("annotated %s.%s", detail.Schema, detail.TableName)
	fmt.Printf("Updated documentation for %s.%s.\n", detail.Schema, detail.TableName)
	return nil
}

func (s *Service) Export(cfg *config.Config, format, outDir string, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)

	tk, err := s.openToolkitWith(cfg, log)
	if err != nil {
		return err
	}

	if outDir == "" {
		outDir = "./schema_export"
	}

	summary, err := export.NewExporter(tk, log).Export(format, outDir)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d file(s) in %s format to %s.\n", summary.Files, summary.Format, summary.OutputDir)
	return nil
}

func (s *Service) Backup(cfg *config.Config, opts backup.BackupOptions, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)
	log.Info("Archiving schema graph...")

	metadata, err := backup.NewService(cfg, log).CreateBackup(opts)
	if err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	fmt.Println()
	fmt.Println("Backup completed successfully.")
	fmt.Printf("File: %s\n", metadata.Location)
	fmt.Printf("Size: %d bytes (%d files)\n", metadata.BackupSize, metadata.FileCount)
	fmt.Printf("Checksum: %s\n", shortChecksum(metadata.Checksum))
	fmt.Printf("Duration: %s\n", metadata.CompletedAt.Sub(metadata.StartedAt).Round(time.Millisecond))

	return nil
}

func (s *Service) Restore(cfg *config.Config, opts backup.RestoreOptions, verboseFlag bool) error {
	log := logger.NewLogger(verboseFlag)
	log.Info("Restoring schema graph...")

	if err := backup.NewService(cfg, log).RestoreBackup(opts); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Restore completed successfully.")
	return nil
}

func (s *Service) ListBackups(cfg *config.Config) ([]backup.ArchiveInfo, error) {
	return backup.NewService(cfg, logger.NewNop()).ListBackups()
}

func (s *Service) openToolkit(cfg *config.Config, verboseFlag bool) (*toolkit.Toolkit, error) {
	return s.openToolkitWith(cfg, logger.NewLogger(verboseFlag))
}

func (s *Service) openToolkitWith(cfg *config.Config, log *logger.Logger) (*toolkit.Toolkit, error) {
	st, err := store.NewStore(cfg, log)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	tk, err := toolkit.New(st, cfg.Search, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema graph: %w", err)
	}
	return tk, nil
}

// RenderJoinPath renders a path as chained equality conditions:
// A.col = B.col THEN B.col2 = C.col2.
func RenderJoinPath(path toolkit.JoinPath) string {
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
	return strings.Join(segments, " THEN ")
}

func shortChecksum(checksum string) string {
	if len(checksum) <= 16 {
		return checksum
	}
	return checksum[:16] + "..."
}
