package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kadirbelkuyu/schemagraph/internal/app"
	"github.com/kadirbelkuyu/schemagraph/internal/backup"
	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/export"
	"github.com/kadirbelkuyu/schemagraph/internal/pipeline"
	"github.com/kadirbelkuyu/schemagraph/internal/ui/desktop"
	"github.com/kadirbelkuyu/schemagraph/internal/ui/explorer"

	"github.com/spf13/cobra"
)

const appName = "Schema Graph Toolkit"

const asciiBanner = `
   _____      __                                                    __
  / ___/_____/ /_  ___  ____ ___  ____ _____ __________ _____  ____/ /_
  \__ \/ ___/ __ \/ _ \/ __ '__ \/ __ '/ __ '/ ___/ __ '/ __ \/ __  __ \
 ___/ / /__/ / / /  __/ / / / / / /_/ / /_/ / /  / /_/ / /_/ / / / / / /
/____/\___/_/ /_/\___/_/ /_/ /_/\__,_/\__, /_/   \__,_/ .___/_/ /_/ /_/
                                     /____/          /_/
`

var rootCmd = &cobra.Command{
	Use:   "schemagraph",
	Short: "Turn a relational database catalog into a searchable schema graph",
	Long:  `Extract the structure of a PostgreSQL, MySQL, or SQLite database into a relationship-aware schema graph, then search it by keyword and discover join paths between tables.`,
	RunE:  runInteractive,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a schema graph from a database",
	RunE:  runExtract,
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search graph tables by keyword",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var pathsCmd = &cobra.Command{
	Use:   "paths SOURCE TARGET",
	Short: "Find join paths between two tables",
	Args:  cobra.ExactArgs(2),
	RunE:  runPaths,
}

var listTablesCmd = &cobra.Command{
	Use:   "list-tables",
	Short: "List the tables recorded in the schema index",
	RunE:  runListTables,
}

var describeCmd = &cobra.Command{
	Use:   "describe TABLE",
	Short: "Show the full document for one table",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

var annotateCmd = &cobra.Command{
	Use:   "annotate TABLE",
	Short: "Edit the documentation fields of a table document",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnnotate,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the graph into markdown, prompt text, or a keyword map",
	RunE:  runExport,
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse the schema graph in the console UI",
	RunE:  runExplore,
}

var studioCmd = &cobra.Command{
	Use:   "studio",
	Short: "Open the desktop studio",
	RunE:  runStudio,
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Archive the graph directory into a tar.gz file",
	RunE:  runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore ARCHIVE",
	Short: "Restore a graph archive into the graph directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Launch the guided interactive workflow",
	RunE:  runInteractive,
}

var workflowService = app.NewService()

var (
	configPath     string
	outputDir      string
	includeSchemas []string
	excludeSchemas []string
	workers        int
	noBackup       bool
	verbose        bool

	topK      int
	noColumns bool

	maxDepth int
	maxPaths int

	schemaFilter string

	promptFormat bool

	annotateDescription string
	annotateKeywords    []string
	annotateColumn      string
	annotateColumnDesc  string
	annotateColumnKw    []string
	annotateAuto        bool

	exportFormat string
	exportOut    string

	studioConfigDir string

	restoreClean bool
)

func init() {
	extractCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	extractCmd.Flags().StringVar(&outputDir, "output", "", "Override the graph output directory")
	extractCmd.Flags().StringSliceVar(&includeSchemas, "schemas", nil, "Only extract these schemas")
	extractCmd.Flags().StringSliceVar(&excludeSchemas, "exclude-schemas", nil, "Skip these schemas")
	extractCmd.Flags().IntVar(&workers, "workers", 0, "Number of parallel table-assembly workers")
	extractCmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip backing up the existing graph before writing")
	extractCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	extractCmd.MarkFlagRequired("config")

	searchCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	searchCmd.Flags().IntVar(&topK, "top-k", 0, "Number of results to return")
	searchCmd.Flags().BoolVar(&noColumns, "no-columns", false, "Skip matching against column names")
	searchCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	searchCmd.MarkFlagRequired("config")

	pathsCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	pathsCmd.Flags().IntVar(&maxDepth, "max-depth", 3, "Maximum number of hops")
	pathsCmd.Flags().IntVar(&maxPaths, "max-paths", 3, "Maximum number of paths to return")
	pathsCmd.MarkFlagRequired("config")

	listTablesCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	listTablesCmd.Flags().StringVar(&schemaFilter, "schema", "", "Only list tables from this schema")
	listTablesCmd.MarkFlagRequired("config")

	describeCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	describeCmd.Flags().BoolVar(&promptFormat, "prompt", false, "Render the compact prompt format instead of markdown")
	describeCmd.MarkFlagRequired("config")

	annotateCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	annotateCmd.Flags().StringVar(&annotateDescription, "description", "", "Table description to set")
	annotateCmd.Flags().StringSliceVar(&annotateKeywords, "keywords", nil, "Table keywords to set")
	annotateCmd.Flags().StringVar(&annotateColumn, "column", "", "Column to annotate")
	annotateCmd.Flags().StringVar(&annotateColumnDesc, "column-description", "", "Column description to set")
	annotateCmd.Flags().StringSliceVar(&annotateColumnKw, "column-keywords", nil, "Column keywords to set")
	annotateCmd.Flags().BoolVar(&annotateAuto, "auto", false, "Fill empty keywords from name tokens and synonyms")
	annotateCmd.MarkFlagRequired("config")

	exportCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatMarkdown, "Export format: markdown, prompt, or keywords")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Export output directory")
	exportCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	exportCmd.MarkFlagRequired("config")

	exploreCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	exploreCmd.MarkFlagRequired("config")

	studioCmd.Flags().StringVar(&studioConfigDir, "config-dir", "", "Directory holding the saved profiles")

	backupCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	backupCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	backupCmd.MarkFlagRequired("config")

	restoreCmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	restoreCmd.Flags().BoolVar(&restoreClean, "clean", false, "Remove the current graph directory before restoring")
	restoreCmd.Flags().BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	restoreCmd.MarkFlagRequired("config")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(listTablesCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(exploreCmd)
	rootCmd.AddCommand(studioCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(interactiveCmd)

	cobra.OnInitialize(func() {
		rootCmd.SilenceUsage = true
		rootCmd.SilenceErrors = true
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load config: %w", err)
	}
	return cfg, nil
}

func runInteractive(cmd *cobra.Command, args []string) error {
	application := app.NewApplication(os.Stdin, printBanner)
	return application.RunInteractive()
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return workflowService.Extract(cfg, pipeline.Options{
		OutputDir:      outputDir,
		IncludeSchemas: includeSchemas,
		ExcludeSchemas: excludeSchemas,
		Workers:        workers,
		NoBackup:       noBackup,
		ShowProgress:   true,
	}, verbose)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	return workflowService.Search(cfg, query, topK, !noColumns, verbose)
}

func runPaths(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return workflowService.JoinPaths(cfg, args[0], args[1], maxDepth, maxPaths, verbose)
}

func runListTables(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return workflowService.ListTables(cfg, schemaFilter, verbose)
}

func runDescribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return workflowService.Describe(cfg, args[0], promptFormat, verbose)
}

func runAnnotate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return workflowService.Annotate(cfg, app.AnnotateOptions{
		Table:             args[0],
		Description:       annotateDescription,
		Keywords:          annotateKeywords,
		Column:            annotateColumn,
		ColumnDescription: annotateColumnDesc,
		ColumnKeywords:    annotateColumnKw,
		Auto:              annotateAuto,
	}, verbose)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return workflowService.Export(cfg, exportFormat, exportOut, verbose)
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return explorer.Run(cfg)
}

func runStudio(cmd *cobra.Command, args []string) error {
	return desktop.Run(studioConfigDir)
}

func runBackup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return workflowService.Backup(cfg, backup.BackupOptions{}, verbose)
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	return workflowService.Restore(cfg, backup.RestoreOptions{
		BackupPath: args[0],
		CleanFirst: restoreClean,
	}, verbose)
}

func printBanner() {
	fmt.Print(asciiBanner)
	fmt.Println(appName)
	fmt.Println(strings.Repeat("-", len(appName)))
}
