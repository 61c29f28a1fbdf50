package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kadirbelkuyu/schemagraph/internal/config"
	"github.com/kadirbelkuyu/schemagraph/internal/pipeline"
	"github.com/kadirbelkuyu/schemagraph/internal/profiles"
	"github.com/kadirbelkuyu/schemagraph/internal/ui/explorer"
	"github.com/kadirbelkuyu/schemagraph/pkg/interactive"
)

const defaultConfigDir = "configs"

type Application struct {
	reader         *bufio.Reader
	printBanner    func()
	profileManager *profiles.Manager
	service        *Service
}

func NewApplication(r io.Reader, printBanner func()) *Application {
	if r == nil {
		r = os.Stdin
	}

	var reader *bufio.Reader
	if br, ok := r.(*bufio.Reader); ok {
		reader = br
	} else {
		reader = bufio.NewReader(r)
	}

	return &Application{
		reader:         reader,
		printBanner:    printBanner,
		profileManager: profiles.NewManager(defaultConfigDir),
		service:        NewService(),
	}
}

func (a *Application) RunInteractive() error {
	if a.printBanner != nil {
		a.printBanner()
	}
	fmt.Println("Interactive mode is ready. Press Ctrl+C or choose option 9 to exit.")

	for {
		fmt.Println()
		fmt.Println("Select an operation:")
		fmt.Println("  1) Extract a schema graph from a database")
		fmt.Println("  2) Search tables by keyword")
		fmt.Println("  3) Find join paths between two tables")
		fmt.Println("  4) List tables in the graph")
		fmt.Println("  5) Describe a table")
		fmt.Println("  6) Explore the graph with the TUI")
		fmt.Println("  7) Archive the graph directory")
		fmt.Println("  8) Restore a graph archive")
		fmt.Println("  9) Exit")

		fmt.Print("\nChoice: ")
		choice, err := a.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				fmt.Println("Exiting interactive mode.")
				return nil
			}
			return err
		}

		var handlerErr error
		switch strings.ToLower(strings.TrimSpace(choice)) {
		case "1", "extract":
			handlerErr = a.handleExtract()
		case "2", "search":
			handlerErr = a.handleSearch()
		case "3", "paths":
			handlerErr = a.handleJoinPaths()
		case "4", "list":
			handlerErr = a.handleListTables()
		case "5", "describe":
			handlerErr = a.handleDescribe()
		case "6", "explore":
			handlerErr = a.handleExplore()
		case "7", "backup":
			handlerErr = a.handleBackup()
		case "8", "restore":
			handlerErr = a.handleRestore()
		case "9", "exit", "quit", "q":
			fmt.Println()
			fmt.Println("Exiting interactive mode.")
			return nil
		default:
			fmt.Println("Invalid selection. Try again.")
			continue
		}

		if handlerErr != nil {
			if errors.Is(handlerErr, io.EOF) {
				fmt.Println()
				fmt.Println("Exiting interactive mode.")
				return nil
			}
			fmt.Printf("Operation failed: %v\n", handlerErr)
		}
	}
}

func (a *Application) handleExtract() error {
	fmt.Println()
	fmt.Println("Extract a schema graph")

	cfg, err := a.loadOrPromptConfig()
	if err != nil {
		return err
	}

	noBackup, err := a.promptYesNo("Skip the pre-write backup of the existing graph?", false)
	if err != nil {
		return err
	}

	verboseFlag, err := a.promptYesNo("Enable verbose logging?", false)
	if err != nil {
		return err
	}

	return a.service.Extract(cfg, pipeline.Options{
		NoBackup:     noBackup,
		ShowProgress: true,
	}, verboseFlag)
}

func (a *Application) handleSearch() error {
	fmt.Println()
	fmt.Println("Search tables by keyword")

	cfg, err := a.loadOrPromptConfig()
	if err != nil {
		return err
	}

	query, err := a.promptString("Search query", true)
	if err != nil {
		return err
	}

	topK, err := a.promptInt("Number of results", cfg.Search.TopK)
	if err != nil {
		return err
	}

	return a.service.Search(cfg, query, topK, true, false)
}

func (a *Application) handleJoinPaths() error {
	fmt.Println()
	fmt.Println("Find join paths between two tables")

	cfg, err := a.loadOrPromptConfig()
	if err != nil {
		return err
	}

	source, err := a.promptString("Source table", true)
	if err != nil {
		return err
	}
	target, err := a.promptString("Target table", true)
	if err != nil {
		return err
	}
	maxDepth, err := a.promptInt("Maximum hops", 3)
	if err != nil {
		return err
	}

	return a.service.JoinPaths(cfg, source, target, maxDepth, 3, false)
}

func (a *Application) handleListTables() error {
	fmt.Println()
	fmt.Println("List tables in the graph")

	cfg, err := a.loadOrPromptConfig()
	if err != nil {
		return err
	}

	schema, err := a.promptString("Schema filter (leave blank for all)", false)
	if err != nil {
		return err
	}

	return a.service.ListTables(cfg, schema, false)
}

func (a *Application) handleDescribe() error {
	fmt.Println()
	fmt.Println("Describe a table")

	cfg, err := a.loadOrPromptConfig()
	if err != nil {
		return err
	}

	tk, err := a.service.openToolkit(cfg, false)
	if err != nil {
		return err
	}

	selector := interactive.NewSelector()
	tableName, err := selector.SelectTable(tk.ListTables())
	if err != nil {
		return err
	}

	return a.service.Describe(cfg, tableName, false, false)
}

func (a *Application) handleExplore() error {
	fmt.Println()
	fmt.Println("Explore the schema graph in the console UI")

	cfg, err := a.loadOrPromptConfig()
	if err != nil {
		return err
	}

	return explorer.Run(cfg)
}

func (a *Application) handleBackup() error {
	fmt.Println()
	fmt.Println("Archive the graph directory")

	cfg, err := a.loadOrPromptConfig()
	if err != nil {
		return err
	}

	selector := interactive.NewSelector()
	options := selector.GetBackupOptions()

	target := options.GraphDir
	if target == "" {
		target = cfg.Graph.Dir
	}
	if !selector.ConfirmAction("Backup", target) {
		fmt.Println("Operation cancelled.")
		return nil
	}

	return a.service.Backup(cfg, options, false)
}

func (a *Application) handleRestore() error {
	fmt.Println()
	fmt.Println("Restore a graph archive")

	cfg, err := a.loadOrPromptConfig()
	if err != nil {
		return err
	}

	archives, err := a.service.ListBackups(cfg)
	if err != nil {
		return err
	}

	selector := interactive.NewSelector()
	options := selector.GetRestoreOptions(archives)

	if !selector.ConfirmAction("Restore", options.BackupPath) {
		fmt.Println("Operation cancelled.")
		return nil
	}

	return a.service.Restore(cfg, options, false)
}

func (a *Application) promptString(label string, required bool) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		input, err := a.readLine()
		if err != nil {
			return "", err
		}
		if input == "" && required {
			fmt.Println("Please provide a value.")
			continue
		}
		return input, nil
	}
}

func (a *Application) promptYesNo(question string, defaultValue bool) (bool, error) {
	suffix := "(y/N)"
	if defaultValue {
		suffix = "(Y/n)"
	}

	for {
		fmt.Printf("%s %s ", question, suffix)
		input, err := a.readLine()
		if err != nil {
			return false, err
		}

		if input == "" {
			return defaultValue, nil
		}

		switch strings.ToLower(input) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Println("Please answer with y or n.")
		}
	}
}

func (a *Application) promptInt(question string, defaultValue int) (int, error) {
	for {
		fmt.Printf("%s [%d]: ", question, defaultValue)
		input, err := a.readLine()
		if err != nil {
			return 0, err
		}

		if input == "" {
			return defaultValue, nil
		}

		value, err := strconv.Atoi(input)
		if err != nil {
			fmt.Println("Please enter a valid number.")
			continue
		}

		return value, nil
	}
}

func (a *Application) loadOrPromptConfig() (*config.Config, error) {
	for {
		fmt.Println("\nConfigure the extraction profile")

		if cfg, ok, err := a.selectProfile(); err != nil {
			return nil, err
		} else if ok {
			return cfg, nil
		}

		dbType, err := a.promptDatabaseType()
		if err != nil {
			return nil, err
		}

		cfg, err := a.promptManualConfig(dbType)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, err
			}
			fmt.Printf("Error: %v\n", err)
			continue
		}

		if err := a.persistConfig(cfg); err != nil {
			fmt.Printf("Warning: failed to save config: %v\n", err)
		}

		return cfg, nil
	}
}

func (a *Application) promptManualConfig(dbType string) (*config.Config, error) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: dbType,
		},
	}

	switch dbType {
	case "postgres", "mysql":
		fmt.Printf("\nEnter %s connection details:\n", dbType)

		defaultPort := 5432
		if dbType == "mysql" {
			defaultPort = 3306
		}

		host, err := a.promptStringWithDefault("Host", "localhost")
		if err != nil {
			return nil, err
		}
		port, err := a.promptInt("Port", defaultPort)
		if err != nil {
			return nil, err
		}
		dbName, err := a.promptString("Database name", true)
		if err != nil {
			return nil, err
		}
		username, err := a.promptString("Username (leave blank for none)", false)
		if err != nil {
			return nil, err
		}
		password, err := a.promptString("Password (leave blank for none)", false)
		if err != nil {
			return nil, err
		}

		cfg.Database.Host = host
		cfg.Database.Port = port
		cfg.Database.Database = dbName
		cfg.Database.Username = username
		cfg.Database.Password = password

		if dbType == "postgres" {
			sslMode, err := a.promptStringWithDefault("SSL mode", "disable")
			if err != nil {
				return nil, err
			}
			cfg.Database.SSLMode = strings.TrimSpace(sslMode)
		}

	case "sqlite":
		fmt.Println("\nEnter SQLite details:")

		path, err := a.promptString("Database file path", true)
		if err != nil {
			return nil, err
		}
		cfg.Database.Path = path

	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	graphDir, err := a.promptStringWithDefault("Graph output directory", "./schema_graph")
	if err != nil {
		return nil, err
	}
	cfg.Graph.Dir = graphDir

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (a *Application) promptDatabaseType() (string, error) {
	for {
		fmt.Println()
		fmt.Println("Select database type:")
		fmt.Println("1. PostgreSQL")
		fmt.Println("2. MySQL")
		fmt.Println("3. SQLite")
		fmt.Print("Selection: ")

		input, err := a.readLine()
		if err != nil {
			return "", err
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "1", "postgres", "postgresql":
			return "postgres", nil
		case "2", "mysql", "mariadb":
			return "mysql", nil
		case "3", "sqlite", "sqlite3":
			return "sqlite", nil
		default:
			fmt.Println("Please choose 1, 2, or 3.")
		}
	}
}

func (a *Application) promptStringWithDefault(label, defaultValue string) (string, error) {
	for {
		if defaultValue != "" {
			fmt.Printf("%s [%s]: ", label, defaultValue)
		} else {
			fmt.Printf("%s: ", label)
		}

		input, err := a.readLine()
		if err != nil {
			return "", err
		}

		if input == "" {
			if defaultValue != "" {
				return defaultValue, nil
			}
			fmt.Println("Please provide a value.")
			continue
		}

		return input, nil
	}
}

func (a *Application) readLine() (string, error) {
	line, err := a.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *Application) selectProfile() (*config.Config, bool, error) {
	saved, err := a.profileManager.List("")
	if err != nil {
		return nil, false, err
	}

	if len(saved) == 0 {
		return nil, false, nil
	}

	for {
		fmt.Println("Saved profiles:")
		for i, profile := range saved {
			label := profile.Name
			if profile.Type != "" {
				label = fmt.Sprintf("%s (%s, graph: %s)", label, profile.Type, profile.GraphDir)
			}
			fmt.Printf("  %d) %s\n", i+1, label)
		}
		fmt.Println("  n) Create a new profile")

		choice, err := a.promptString("Select a profile (number) or 'n'", true)
		if err != nil {
			return nil, false, err
		}

		choice = strings.ToLower(strings.TrimSpace(choice))
		if choice == "n" || choice == "new" {
			return nil, false, nil
		}

		index, err := strconv.Atoi(choice)
		if err != nil || index < 1 || index > len(saved) {
			fmt.Println("Please choose a valid option.")
			continue
		}

		cfg, err := config.LoadConfig(saved[index-1].Path)
		if err != nil {
			fmt.Printf("Failed to load %s: %v\n", saved[index-1].Name, err)
			continue
		}

		return cfg, true, nil
	}
}

func (a *Application) persistConfig(cfg *config.Config) error {
	save, err := a.promptYesNo("Save this profile for future use?", true)
	if err != nil || !save {
		return err
	}

	defaultName := fmt.Sprintf("%s-%s_%s", cfg.Database.Type, cfg.Database.Database, time.Now().Format("20060102_150405"))
	if cfg.Database.Type == "sqlite" {
		defaultName = fmt.Sprintf("sqlite_%s", time.Now().Format("20060102_150405"))
	}
	name, err := a.promptStringWithDefault("Profile name", defaultName)
	if err != nil {
		return err
	}

	_, err = a.profileManager.Save(name, cfg)
	return err
}
