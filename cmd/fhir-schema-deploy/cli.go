package main

import (
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

// header centers a title in an 80-wide hashtag bar, "##### like this #####"
func header(title string) string {
	const width = 80

	if len(title) >= width {
		return title
	}
	if len(title) > 0 {
		title = " " + title + " "
	}
	pad := width - len(title)
	return strings.Repeat("#", pad-pad/2) + title + strings.Repeat("#", pad/2)
}

// mustContinuePrompt asks the user to confirm before a destructive step.
// promptui needs the label to be a single line
func mustContinuePrompt(label string) error {
	if label == "" {
		label = "Continue?"
	}
	prompt := promptui.Select{
		Label: label,
		Items: []string{"No", "Yes"},
	}
	_, answer, err := prompt.Run()
	if err != nil {
		return err
	}
	if answer == "No" {
		return fmt.Errorf("user aborted")
	}
	return nil
}

// The cmd.Print helpers fall back to stderr when no output is set. These
// variants fall back to stdout, so command output can be piped while still
// being capturable in tests via SetOut
func cmdPrint(cmd *cobra.Command, args ...any) {
	fmt.Fprint(cmd.OutOrStdout(), args...)
}

func cmdPrintln(cmd *cobra.Command, args ...any) {
	fmt.Fprintln(cmd.OutOrStdout(), args...)
}

func cmdPrintf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
