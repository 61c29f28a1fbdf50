// Package pipeline wires the extraction stages together: connect to the
// source database, read its catalog, build the schema graph, and persist
// the merged documents.
package pipeline

import (
	"fmt"
	"time"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/database"
	"github.com/kadirbelkuyu/schemagraph/internal/graph"
	"github.com/kadirbelkuyu/schemagraph/internal/metadata"
	"github.com/kadirbelkuyu/schemagraph/internal/store"
	"github.com/kadirbelkuyu/schemagraph/pkg/logger"
	"github.com/kadirbelkuyu/schemagraph/pkg/progress"
)

// Options adjust a single extraction run on top of the loaded config.
type Options struct {
	OutputDir      string
	IncludeSchemas []string
	ExcludeSchemas []string
	Workers        int
	NoBackup       bool
	ShowProgress   bool
	Logger         *logger.Logger
}

// Result summarizes one completed extraction.
type Result struct {
	DatabaseName string
	SchemaCount  int
	TableCount   int
	ViewCount    int
	Pruned       int
	BackupDir    string
	StoreKind    string
	OutputDir    string
	Duration     time.Duration
}

type Service struct {
	cfg  *config.Config
	opts Options
	log  *logger.Logger
}

func NewService(cfg *config.Config, opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewLogger(false)
	}
	return &Service{cfg: cfg, opts: opts, log: log}
}

// Execute runs the full extraction: read the catalog, build the graph,
// back up the previous output, write the merged documents, and drop
// documents for tables that no longer exist.
func (s *Service) Execute() (*Result, error) {
	start := time.Now()

	cfg := s.effectiveConfig()

	conn, err := database.NewConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer conn.Close()

	s.log.Infof("connected to %s database %s", cfg.Database.Type, conn.GetDatabaseName())

	introspector, err := metadata.NewIntrospector(conn, s.log)
	if err != nil {
		return nil, err
	}

	filter := metadata.Filter{
		IncludeSchemas: cfg.Builder.IncludeSchemas,
		ExcludeSchemas: cfg.Builder.ExcludeSchemas,
	}

	var spinner *progress.Bar
	if s.opts.ShowProgress {
		spinner = progress.NewSpinner("Reading catalog")
	}
	snapshot, err := introspector.Snapshot(filter)
	if spinner != nil {
		spinner.Finish()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to introspect catalog: %w", err)
	}

	builder := graph.NewBuilder(graph.Settings{
		JunctionColumnLimit: cfg.Builder.JunctionColumnLimit,
		Workers:             cfg.Builder.Workers,
	}, s.log)
	artifacts := builder.Build(snapshot)

	st, err := store.NewStore(cfg, s.log)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	result := &Result{
		DatabaseName: artifacts.DatabaseName,
		SchemaCount:  artifacts.Index.TotalSchemas,
		TableCount:   artifacts.Index.TotalTables,
		ViewCount:    artifacts.Index.TotalViews,
		StoreKind:    st.Kind(),
		OutputDir:    cfg.Graph.Dir,
	}

	if !s.opts.NoBackup {
		backupDir, err := st.Backup()
		if err != nil {
			return nil, err
		}
		result.BackupDir = backupDir
	}

	tables := artifacts.TablesInOrder()

	var bar *progress.Bar
	if s.opts.ShowProgress && len(tables) > 0 {
		bar = progress.NewBar(int64(len(tables)), "Writing table documents")
	}
	for _, table := range tables {
		if err := st.WriteTable(table); err != nil {
			return nil, err
		}
		if bar != nil {
			bar.Add(1)
		}
	}
	if bar != nil {
		bar.Finish()
	}

	if err := st.WriteIndex(artifacts.Index); err != nil {
		return nil, err
	}

	keep := make(map[graph.TableKey]struct{}, len(artifacts.Tables))
	for key := range artifacts.Tables {
		keep[key] = struct{}{}
	}
	pruned, err := st.Prune(keep)
	if err != nil {
		return nil, err
	}
	result.Pruned = pruned

	result.Duration = time.Since(start)

	s.log.Infof("extraction finished: %d tables, %d views across %d schemas in %s",
		result.TableCount, result.ViewCount, result.SchemaCount, result.Duration.Round(time.Millisecond))

	return result, nil
}

// effectiveConfig layers the run options over the loaded config without
// mutating it.
func (s *Service) effectiveConfig() *config.Config {
	cfg := *s.cfg
	if s.opts.OutputDir != "" {
		cfg.Graph.Dir = s.opts.OutputDir
	}
	if len(s.opts.IncludeSchemas) > 0 {
		cfg.Builder.IncludeSchemas = s.opts.IncludeSchemas
	}
	if len(s.opts.ExcludeSchemas) > 0 {
		cfg.Builder.ExcludeSchemas = s.opts.ExcludeSchemas
	}
	if s.opts.Workers > 0 {
		cfg.Builder.Workers = s.opts.Workers
	}
	return &cfg
}
