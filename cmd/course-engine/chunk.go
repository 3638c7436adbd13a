// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/pdiddy/course-engine/internal/transcript"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [transcript.txt]",
	Short: "Split narration text into speech-synthesis sized chunks",
	Long: `Chunk splits a transcript into pieces no longer than the ceiling,
preferring paragraph boundaries, then sentence boundaries, then word
boundaries. Chunks are printed separated by "---" lines, or as a JSON array
with --json.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().Int("ceiling", transcript.DefaultCeiling, "maximum characters per chunk")
	chunkCmd.Flags().Bool("json", false, "output chunks as a JSON array")

	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	data, err := readInput(argOrStdin(args))
	if err != nil {
		return err
	}
	ceiling, _ := cmd.Flags().GetInt("ceiling")
	chunks := transcript.Split(string(data), ceiling)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}
	for i, c := range chunks {
		if i > 0 {
			fmt.Fprintln(os.Stdout, "---")
		}
		fmt.Fprintln(os.Stdout, c)
	}
	total := 0
	for _, c := range chunks {
		total += utf8.RuneCountInString(c)
	}
	fmt.Fprintf(os.Stderr, "%d chunks, %d characters\n", len(chunks), total)
	return nil
}
