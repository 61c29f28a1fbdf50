// Package backup archives the persisted schema graph directory into
// compressed tarballs and restores them. Archives only cover file-store
// graphs; a mongo-backed graph is snapshotted with mongo's own tooling.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
)

const archiveSuffix = ".tar.gz"

type Service struct {
	cfg *config.Config
	log *logger.Logger
}

func NewService(cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		cfg: cfg,
		log: log,
	}
}

// CreateBackup archives the graph directory into a single tar.gz file
// named after the extracted database and the current time.
func (s *Service) CreateBackup(options BackupOptions) (*BackupMetadata, error) {
	start := time.Now()

	graphDir := options.GraphDir
	if graphDir == "" {
		graphDir = s.cfg.Graph.Dir
	}

	info, err := os.Stat(graphDir)
	if err != nil {
		return nil, fmt.Errorf("graph directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("graph path %s is not a directory", graphDir)
	}

	outputPath, err := s.ensureOutputPath(graphDir, options)
	if err != nil {
		return nil, err
	}

	files, err := writeArchive(graphDir, outputPath)
	if err != nil {
		return nil, err
	}

	s.log.Infof("graph archived to %s (%d files)", outputPath, files)
	return buildBackupMetadata(outputPath, files, start)
}

// RestoreBackup extracts an archive into the graph directory.
func (s *Service) RestoreBackup(options RestoreOptions) error {
	if options.BackupPath == "" {
		return fmt.Errorf("backup path is required")
	}
	if _, err := os.Stat(options.BackupPath); err != nil {
		return fmt.Errorf("backup file not found: %w", err)
	}

	targetDir := options.TargetDir
	if targetDir == "" {
		targetDir = s.cfg.Graph.Dir
	}

	if options.CleanFirst {
		if err := os.RemoveAll(targetDir); err != nil {
			return fmt.Errorf("failed to clean target directory: %w", err)
		}
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("failed to prepare target directory: %w", err)
	}

	files, err := extractArchive(options.BackupPath, targetDir)
	if err != nil {
		return err
	}

	s.log.Infof("graph restored to %s (%d files)", targetDir, files)
	return nil
}

// ListBackups returns the archives in the configured backup directory,
// oldest first. A missing directory is an empty list, not an error.
func (s *Service) ListBackups() ([]ArchiveInfo, error) {
	entries, err := os.ReadDir(s.cfg.Graph.BackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var archives []ArchiveInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), archiveSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat backup %s: %w", entry.Name(), err)
		}
		archives = append(archives, ArchiveInfo{
			Name:      entry.Name(),
			Path:      filepath.Join(s.cfg.Graph.BackupDir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(archives, func(i, j int) bool { return archives[i].Name < archives[j].Name })
	return archives, nil
}

func (s *Service) ensureOutputPath(graphDir string, options BackupOptions) (string, error) {
	outputPath := options.OutputPath
	if outputPath == "" {
		if err := os.MkdirAll(s.cfg.Graph.BackupDir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create backup directory: %w", err)
		}

		fileName := fmt.Sprintf("%s_%s%s",
			databaseLabel(graphDir), time.Now().Format("20060102_150405"), archiveSuffix)
		outputPath = filepath.Join(s.cfg.Graph.BackupDir, fileName)
	} else {
		if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
			return "", fmt.Errorf("failed to prepare backup directory: %w", err)
		}
	}

	return outputPath, nil
}

// databaseLabel names the archive after the database recorded in the
// schema index, falling back to the directory name.
func databaseLabel(graphDir string) string {
	data, err := os.ReadFile(filepath.Join(graphDir, "schema_index.yaml"))
	if err == nil {
		var header struct {
			DatabaseName string `yaml:"database_name"`
		}
		if yaml.Unmarshal(data, &header) == nil && header.DatabaseName != "" {
			return header.DatabaseName
		}
	}
	return filepath.Base(graphDir)
}
