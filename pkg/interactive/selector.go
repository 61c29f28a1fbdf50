package interactive

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kadirbelkuyu/schemagraph/internal/backup"
)

// Selector drives the numbered-list prompts the interactive workflows
// share: picking a table out of the graph and collecting archive options.
type Selector struct {
	reader *bufio.Reader
}

func NewSelector() *Selector {
	return &Selector{reader: bufio.NewReader(os.Stdin)}
}

// SelectTable presents the loaded table names and returns the chosen one.
func (s *Selector) SelectTable(tableNames []string) (string, error) {
	if len(tableNames) == 0 {
		return "", fmt.Errorf("the schema graph holds no tables")
	}

	fmt.Println()
	fmt.Println("Tables in the schema graph:")
	fmt.Println(strings.Repeat("=", 60))
	for i, name := range tableNames {
		fmt.Printf("%-4d %s\n", i+1, name)
	}
	fmt.Println(strings.Repeat("=", 60))

	for {
		fmt.Printf("\nSelect a table number (1-%d): ", len(tableNames))

		input, err := s.reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("unable to read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			fmt.Println("Please enter a number.")
			continue
		}

		choice, err := strconv.Atoi(input)
		if err != nil {
			fmt.Println("Please enter a valid number.")
			continue
		}

		if choice < 1 || choice > len(tableNames) {
			fmt.Printf("Please select a number between 1 and %d.\n", len(tableNames))
			continue
		}

		selected := tableNames[choice-1]
		fmt.Printf("\nSelected table: %s\n", selected)
		return selected, nil
	}
}

func (s *Selector) ConfirmAction(action, target string) bool {
	fmt.Printf("\nConfirm running %s for %s (y/N): ", action, target)

	input, err := s.reader.ReadString('\n')
	if err != nil {
		return false
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}

// GetBackupOptions collects the optional overrides for a graph archive.
func (s *Selector) GetBackupOptions() backup.BackupOptions {
	var options backup.BackupOptions

	fmt.Print("Graph directory to archive (leave empty for the configured one): ")
	dirInput, _ := s.reader.ReadString('\n')
	options.GraphDir = strings.TrimSpace(dirInput)

	fmt.Print("Archive path (leave empty to auto-create under the backup directory): ")
	outputInput, _ := s.reader.ReadString('\n')
	options.OutputPath = strings.TrimSpace(outputInput)

	return options
}

// GetRestoreOptions lets the user pick one of the known archives, or type
// a path when none are listed, and asks whether to clean the target first.
func (s *Selector) GetRestoreOptions(archives []backup.ArchiveInfo) backup.RestoreOptions {
	var options backup.RestoreOptions

	if len(archives) > 0 {
		fmt.Println()
		fmt.Println("Available archives:")
		fmt.Printf("%-4s %-40s %-12s %s\n", "No", "Archive", "Size", "Created")
		fmt.Println(strings.Repeat("-", 80))
		for i, archive := range archives {
			fmt.Printf("%-4d %-40s %-12d %s\n",
				i+1, archive.Name, archive.Size, archive.CreatedAt.Format("2006-01-02 15:04"))
		}

		for {
			fmt.Printf("\nSelect an archive (1-%d) or enter a path: ", len(archives))
			input, _ := s.reader.ReadString('\n')
			input = strings.TrimSpace(input)

			if input == "" {
				fmt.Println("Please choose an archive.")
				continue
			}

			if choice, err := strconv.Atoi(input); err == nil {
				if choice < 1 || choice > len(archives) {
					fmt.Printf("Please select a number between 1 and %d.\n", len(archives))
					continue
				}
				options.BackupPath = archives[choice-1].Path
			} else {
				options.BackupPath = input
			}
			break
		}
	} else {
		fmt.Print("Archive file path: ")
		pathInput, _ := s.reader.ReadString('\n')
		options.BackupPath = strings.TrimSpace(pathInput)
	}

	fmt.Print("Remove the current graph directory before restoring? (y/N): ")
	cleanInput, _ := s.reader.ReadString('\n')
	cleanInput = strings.ToLower(strings.TrimSpace(cleanInput))
	options.CleanFirst = cleanInput == "y" || cleanInput == "yes"

	return options
}
