// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/course-engine/internal/audit"
	"github.com/pdiddy/course-engine/pkg/types"
)

var auditCmd = &cobra.Command{
	Use:   "audit [quiz.yaml]",
	Short: "Rewrite distractors when correct answers are too often the longest",
	Long: `Audit reads a YAML list of quiz items and counts the items whose
correct answer is longer than every distractor. When that count exceeds
the 25% expected by chance, a random subset of the excess is sent to the
model to lengthen one or two distractors. Correct answers are never
changed, and any failure leaves the batch as it was.

The audited batch is written as YAML to --out, or stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().String("out", "", "write the audited batch to this file (default stdout)")
	auditCmd.Flags().Int("min-items", 0, "smallest batch worth auditing (default 5)")
	auditCmd.Flags().Bool("dry-run", false, "report the finding without calling the model")

	_ = viper.BindPFlag("audit.min_items", auditCmd.Flags().Lookup("min-items"))

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	data, err := readInput(argOrStdin(args))
	if err != nil {
		return err
	}
	var items []types.QuizItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parsing quiz items: %w", err)
	}

	var (
		out    = items
		report types.AuditReport
	)
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		report.Finding = audit.Analyze(items)
	} else {
		cfg := pipelineConfig().Audit
		inv, err := newInvoker(cfg.AIConfig)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		a := &audit.Auditor{Invoker: inv, Config: cfg, Logger: logger}
		out, report = a.Audit(ctx, items)
	}

	f := report.Finding
	switch {
	case report.Skipped != "":
		fmt.Fprintf(os.Stderr, "audit skipped: %s\n", report.Skipped)
	case report.FallbackReason != "":
		fmt.Fprintf(os.Stderr, "audit fell back to the original batch: %s\n", report.FallbackReason)
	default:
		fmt.Fprintf(os.Stderr, "flagged: %d of %d, excess: %d, selected: %d, rewritten: %d\n",
			len(f.FlaggedIndices), f.Total, f.Excess, len(report.Selected), report.Rewritten)
	}

	encoded, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling quiz items: %w", err)
	}
	if path, _ := cmd.Flags().GetString("out"); path != "" {
		return os.WriteFile(path, encoded, 0o644)
	}
	_, err = os.Stdout.Write(encoded)
	return err
}
