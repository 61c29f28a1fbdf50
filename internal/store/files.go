package store

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

const (
	indexFileName    = "schema_index.yaml"
	metadataFileName = "metadata.yaml"
)

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FilesStore persists the graph as YAML files: one document per table
// under a per-schema directory, with the schema index and a small
// metadata summary at the directory root.
type FilesStore struct {
	dir string
	log *logger.Logger
}

func NewFilesStore(dir string, log *logger.Logger) *FilesStore {
	return &FilesStore{dir: dir, log: log}
}

func (s *FilesStore) Kind() string { return "files" }

// Dir returns the root directory the store writes under.
func (s *FilesStore) Dir() string { return s.dir }

// Backup copies the output directory to a timestamped sibling. The
// originals stay in place so the rewrite that follows can still merge
// against them.
func (s *FilesStore) Backup() (string, error) {
	info, err := os.Stat(s.dir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to inspect graph directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("graph path %s is not a directory", s.dir)
	}

	timestamp := time.Now().UTC().Format("20060102_150405")
	backupDir := filepath.Join(
		filepath.Dir(s.dir),
		fmt.Sprintf("%s_backup_%s", filepath.Base(s.dir), timestamp),
	)

	if err := copyTree(s.dir, backupDir); err != nil {
		return "", fmt.Errorf("failed to back up graph directory: %w", err)
	}

	s.log.Infof("existing graph copied to %s", backupDir)
	return backupDir, nil
}

func (s *FilesStore) WriteTable(table *graph.Table) error {
	path := s.tablePath(table.Schema, table.TableName)

	if existing, err := s.readTableFile(path); err == nil {
		mergeTable(table, existing)
	}

	return s.writeYAML(path, table)
}

func (s *FilesStore) WriteIndex(index *graph.SchemaIndex) error {
	if existing, err := s.LoadIndex(); err == nil {
		mergeIndex(index, existing)
	}

	if err := s.writeYAML(filepath.Join(s.dir, metadataFileName), metadataFor(index)); err != nil {
		return err
	}

	return s.writeYAML(filepath.Join(s.dir, indexFileName), index)
}

func (s *FilesStore) Prune(keep map[graph.TableKey]struct{}) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to scan graph directory: %w", err)
	}

	// Compare in sanitized file-name space; that is what sits on disk.
	keepFiles := make(map[string]struct{}, len(keep))
	for key := range keep {
		keepFiles[filepath.Join(sanitizeName(key.Schema), sanitizeName(key.Table)+".yaml")] = struct{}{}
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		schemaDir := filepath.Join(s.dir, entry.Name())
		docs, err := os.ReadDir(schemaDir)
		if err != nil {
			return removed, fmt.Errorf("failed to scan schema directory %s: %w", schemaDir, err)
		}

		for _, doc := range docs {
			if doc.IsDir() || !strings.HasSuffix(doc.Name(), ".yaml") {
				continue
			}
			rel := filepath.Join(entry.Name(), doc.Name())
			if _, ok := keepFiles[rel]; ok {
				continue
			}
			if err := os.Remove(filepath.Join(s.dir, rel)); err != nil {
				return removed, fmt.Errorf("failed to remove stale document %s: %w", rel, err)
			}
			s.log.Debugf("pruned stale table document %s", rel)
			removed++
		}

		if remaining, err := os.ReadDir(schemaDir); err == nil && len(remaining) == 0 {
			_ = os.Remove(schemaDir)
		}
	}

	return removed, nil
}

func (s *FilesStore) LoadTable(schema, table string) (*graph.Table, error) {
	doc, err := s.readTableFile(s.tablePath(schema, table))
	if err != nil {
		return nil, fmt.Errorf("failed to load table document %s.%s: %w", schema, table, err)
	}
	return doc, nil
}

// LoadTables reads every table document under the graph directory. Files
// that fail to parse are logged and skipped rather than failing the
// whole load.
func (s *FilesStore) LoadTables() ([]*graph.Table, error) {
	var tables []*graph.Table

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}

		stem := strings.TrimSuffix(d.Name(), ".yaml")
		switch strings.ToLower(stem) {
		case "schema_index", "metadata":
			return nil
		}

		doc, err := s.readTableFile(path)
		if err != nil {
			s.log.Warnf("skipping unreadable table document %s: %v", path, err)
			return nil
		}
		if doc.TableName == "" {
			doc.TableName = stem
		}
		tables = append(tables, doc)
		return nil
	})
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("graph directory %s does not exist", s.dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to walk graph directory: %w", err)
	}

	return tables, nil
}

func (s *FilesStore) LoadIndex() (*graph.SchemaIndex, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFileName))
	if os.IsNotExist(err) {
		return nil, ErrIndexNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema index: %w", err)
	}

	var index graph.SchemaIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse schema index: %w", err)
	}

	return &index, nil
}

func (s *FilesStore) Close() error { return nil }

func (s *FilesStore) tablePath(schema, table string) string {
	return filepath.Join(s.dir, sanitizeName(schema), sanitizeName(table)+".yaml")
}

func (s *FilesStore) readTableFile(path string) (*graph.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc graph.Table
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	return &doc, nil
}

// writeYAML writes through a temporary file and renames it into place so
// readers never observe a half-written document.
func (s *FilesStore) writeYAML(path string, payload any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	data, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

// graphMetadata is the small companion document written next to the
// index so shell tooling can read counts without parsing the full index.
type graphMetadata struct {
	DatabaseName string `yaml:"database_name"`
	ExtractedAt  string `yaml:"extracted_at"`
	TotalSchemas int    `yaml:"total_schemas"`
	TotalTables  int    `yaml:"total_tables"`
	TotalViews   int    `yaml:"total_views"`
}

func metadataFor(index *graph.SchemaIndex) graphMetadata {
	return graphMetadata{
		DatabaseName: index.DatabaseName,
		ExtractedAt:  index.ExtractionDate,
		TotalSchemas: index.TotalSchemas,
		TotalTables:  index.TotalTables,
		TotalViews:   index.TotalViews,
	}
}

// sanitizeName keeps schema and table names usable as path segments.
func sanitizeName(name string) string {
	cleaned := unsafePathChars.ReplaceAllString(name, "_")
	if cleaned == "" {
		return "_"
	}
	return cleaned
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
