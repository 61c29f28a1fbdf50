package backup

import "time"

// ArchiveInfo describes one backup archive found on disk.
type ArchiveInfo struct {
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

type BackupOptions struct {
	// GraphDir overrides the configured graph directory to archive.
	GraphDir string
	// OutputPath overrides the generated archive path.
	OutputPath string
}

type RestoreOptions struct {
	BackupPath string
	// TargetDir overrides the configured graph directory to restore into.
	TargetDir string
	// CleanFirst removes the target directory before extracting, so
	// documents pruned since the backup do not linger.
	CleanFirst bool
}

type BackupMetadata struct {
	BackupSize  int64
	Checksum    string
	Location    string
	FileCount   int
	StartedAt   time.Time
	CompletedAt time.Time
}
