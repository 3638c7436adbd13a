// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/course-engine/internal/research"
	"github.com/pdiddy/course-engine/internal/store"
)

var researchCmd = &cobra.Command{
	Use:   "research [topics.yaml]",
	Short: "Research course units into cited dossiers",
	Long: `Research runs one web-search-backed generation per course unit, in
parallel, and commits a dossier of sources and synthesis notes for each.
Identifiers in each dossier are checked against the DOI resolver and
stripped when they do not resolve.

Units that already have a stored dossier are skipped; use --force to
research them again. A unit whose search tool is unavailable commits a
degraded dossier, and a unit whose output cannot be parsed commits the raw
search results.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().Int("max-searches", 0, "web searches allowed per unit (default 5)")
	researchCmd.Flags().String("db", "", "dossier database path (default research/dossiers.db)")
	researchCmd.Flags().String("export", "", "write all dossiers to this YAML file after the run")
	researchCmd.Flags().Bool("force", false, "research units again even if a dossier is stored")

	_ = viper.BindPFlag("research.max_searches", researchCmd.Flags().Lookup("max-searches"))
	_ = viper.BindPFlag("research.db_path", researchCmd.Flags().Lookup("db"))

	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	data, err := readInput(argOrStdin(args))
	if err != nil {
		return err
	}
	topics, err := loadTopics(data)
	if err != nil {
		return err
	}

	cfg := pipelineConfig()
	inv, err := newInvoker(cfg.Research.AIConfig)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	db, err := store.Open(cfg.Research.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	force, _ := cmd.Flags().GetBool("force")
	reg := research.NewRegistry()
	if !force {
		stored, err := db.List(ctx)
		if err != nil {
			return err
		}
		for _, d := range stored {
			reg.Seed(d)
		}
	}

	o := &research.Orchestrator{
		Invoker:   inv,
		Validator: newValidator(cfg.Validation),
		Registry:  reg,
		Config:    cfg.Research,
		Logger:    logger,
	}

	fmt.Fprintf(os.Stdout, "Researching %d units\n", len(topics))
	summary := o.ResearchAll(ctx, topics, os.Stdout)
	for _, u := range reg.Snapshot() {
		logger.Debug("unit settled",
			zap.String("unit", u.Key),
			zap.Int("queries", len(u.QueriesIssued)),
			zap.Int("results", len(u.ResultsCollected)),
			zap.String("last_error", u.LastError))
	}

	saved := 0
	for _, t := range topics {
		d, ok := reg.Dossier(t.Key)
		if !ok {
			continue
		}
		if err := db.Save(ctx, d); err != nil {
			logger.Error("saving dossier", zap.String("unit", t.Key), zap.Error(err))
			continue
		}
		saved++
	}
	logger.Debug("dossiers saved", zap.Int("count", saved), zap.String("db", db.Path()))

	if path, _ := cmd.Flags().GetString("export"); path != "" {
		n, err := db.ExportYAML(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Exported %d dossiers to %s\n", n, path)
	}

	if summary.HasFailures() {
		return fmt.Errorf("%d unit(s) failed research", summary.Failed)
	}
	return nil
}
