package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/draco-tlw/rayzor/internal/dedup"
)

// NewDedupeCommand builds the `dedupe` subcommand, which runs just the
// fingerprint-based deduplication step and prints the surviving links.
func NewDedupeCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "dedupe <input-file>",
		Short: "Deduplicate a file of links by semantic fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedupe(args[0], output)
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "write surviving links here instead of stdout")
	return cmd
}

func runDedupe(inputPath, outputPath string) error {
	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", inputPath, err)
	}

	var links []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			links = append(links, line)
		}
	}
	closeErr := f.Close()
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", inputPath, err)
	}
	if closeErr != nil {
		return closeErr
	}

	kept, report := dedup.Dedupe(links)

	out := os.Stdout
	if outputPath != "" {
		file, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outputPath, err)
		}
		defer file.Close()
		out = file
	}

	for _, link := range kept {
		fmt.Fprintln(out, link)
	}
	fmt.Fprintf(os.Stderr, "kept %d of %d links (%d dropped)\n", report.KeptCount, report.InputCount, report.DroppedCount)
	return nil
}
