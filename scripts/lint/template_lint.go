package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

// Procedure templates are deployed verbatim after token substitution, so the
// two defects worth linting are tab indentation (the DDL style is four
// spaces) and braces that do not form a well-formed {{UPPER_SNAKE}} token and
// would therefore never be substituted.

var wellFormedToken = regexp.MustCompile(`^\{\{[A-Z][A-Z0-9_]*\}\}`)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "template-lint",
		Short: "Lints procedure template files, replacing tabs with spaces and flagging malformed tokens",
	}
	dirPath := rootCmd.Flags().String("dir", "./pkg/fhirschema/templates", "Directory containing the .sql templates to process")
	fix := rootCmd.Flags().Bool("fix", false, "Apply changes (without this flag, only shows what would change)")
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !*fix {
			fmt.Println("Running in dry-run mode. Use --fix to apply changes.")
		}

		var filesRequiringChanges []string
		var malformed []string
		if err := filepath.Walk(*dirPath, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() || filepath.Ext(path) != ".sql" {
				return nil
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			contents := string(raw)

			malformed = append(malformed, malformedTokens(path, contents)...)

			if strings.Contains(contents, "\t") {
				filesRequiringChanges = append(filesRequiringChanges, path)
				if *fix {
					fixed := strings.ReplaceAll(contents, "\t", "    ")
					if err := os.WriteFile(path, []byte(fixed), info.Mode()); err != nil {
						return fmt.Errorf("writing %s: %w", path, err)
					}
				}
			}
			return nil
		}); err != nil {
			return err
		}

		for _, m := range malformed {
			fmt.Println(m)
		}
		if len(filesRequiringChanges) > 0 {
			if *fix {
				fmt.Printf("Replaced tabs in %d files\n", len(filesRequiringChanges))
			} else {
				fmt.Printf("Files with tab indentation:\n%s\n", strings.Join(filesRequiringChanges, "\n"))
			}
		}
		if len(malformed) > 0 || (len(filesRequiringChanges) > 0 && !*fix) {
			return fmt.Errorf("lint found issues")
		}
		return nil
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// malformedTokens reports every "{{" that does not open a substitutable token
func malformedTokens(path, contents string) []string {
	var found []string
	line := 1
	for i := 0; i < len(contents); i++ {
		switch {
		case contents[i] == '\n':
			line++
		case strings.HasPrefix(contents[i:], "{{"):
			if !wellFormedToken.MatchString(contents[i:]) {
				found = append(found, fmt.Sprintf("%s:%d: malformed template token", path, line))
			}
			i++
		}
	}
	return found
}
