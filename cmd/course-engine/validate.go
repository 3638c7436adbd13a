// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/course-engine/internal/doi"
)

var validateCmd = &cobra.Command{
	Use:   "validate [identifiers...]",
	Short: "Check DOIs against the handle resolver",
	Long: `Validate normalizes each identifier (resolver prefixes and trailing
punctuation are removed), checks every unique one against the DOI handle
service in parallel, and prints one line per input. Identifiers are read
from the arguments, or one per line from --file or stdin.

Network failures count as valid; only identifiers the resolver reports as
unknown are listed as stale.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("file", "", "read identifiers from this file, one per line")
	validateCmd.Flags().Int("concurrency", 0, "parallel resolver requests (default 8)")

	_ = viper.BindPFlag("validation.concurrency", validateCmd.Flags().Lookup("concurrency"))

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ids := args
	if len(ids) == 0 {
		path, _ := cmd.Flags().GetString("file")
		data, err := readInput(path)
		if err != nil {
			return err
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		for sc.Scan() {
			if line := strings.TrimSpace(sc.Text()); line != "" {
				ids = append(ids, line)
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("reading identifiers: %w", err)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("provide one or more identifiers")
	}

	ctx, cancel := signalContext()
	defer cancel()

	results := newValidator(pipelineConfig().Validation).Validate(ctx, ids)
	for _, id := range ids {
		status := "ok   "
		if !results[id] {
			status = "stale"
		}
		fmt.Fprintf(os.Stdout, "%s  %s  (%s)\n", status, id, doi.Normalize(id))
	}

	stale := doi.Stale(results)
	fmt.Fprintf(os.Stdout, "\nchecked: %d, stale: %d\n", len(results), len(stale))
	if len(stale) > 0 {
		return fmt.Errorf("%d identifier(s) did not resolve", len(stale))
	}
	return nil
}
