// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/course-engine/internal/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Recover a JSON or HTML payload from raw model output",
	Long: `Extract reads raw model output (a file, or stdin) and prints the
structured payload it contains. JSON payloads are located in a fenced
block or between the outermost brackets, trailing commas are removed, and
unescaped quotes at the decoder's reported offset are repaired. HTML
payloads are located between <!DOCTYPE or <html and the last </html>.

--lenient falls back to a general-purpose JSON repair when the targeted
repairs are not enough.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("format", "json", "payload format: json or html")
	extractCmd.Flags().Bool("lenient", false, "apply general-purpose JSON repair as a last resort")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	data, err := readInput(argOrStdin(args))
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("format")
	lenient, _ := cmd.Flags().GetBool("lenient")

	switch format {
	case "html":
		doc, err := extract.HTML(string(data))
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, doc)
		return nil
	case "json":
		var v any
		if lenient {
			err = extract.Lenient(string(data), &v)
		} else {
			err = extract.JSON(string(data), &v)
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q: use json or html", format)
	}
}
