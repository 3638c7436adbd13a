// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/course-engine/internal/store"
)

var dossiersCmd = &cobra.Command{
	Use:   "dossiers",
	Short: "List, show, export, or delete stored dossiers",
	Long: `Dossiers manages the SQLite database of committed research dossiers.
Use subcommands to list them, print one as YAML, export all of them, or
delete one so that the next research run repeats it.`,
}

var dossiersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored dossiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s *store.Store) error {
			list, err := s.List(ctx)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No dossiers stored.")
				return nil
			}
			fmt.Fprintf(os.Stdout, "%-24s  %-8s  %-8s  %-8s  %s\n", "Unit", "Sources", "Verified", "Kind", "Committed")
			fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
			for _, d := range list {
				verified := 0
				for _, src := range d.Sources {
					if src.Verified {
						verified++
					}
				}
				kind := "full"
				switch {
				case d.Degraded:
					kind = "degraded"
				case d.Fallback:
					kind = "fallback"
				}
				fmt.Fprintf(os.Stdout, "%-24s  %-8d  %-8d  %-8s  %s\n",
					d.Key, len(d.Sources), verified, kind, d.CommittedAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var dossiersShowCmd = &cobra.Command{
	Use:   "show [unit]",
	Short: "Print one dossier as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s *store.Store) error {
			d, ok, err := s.Load(ctx, args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no dossier stored for %s", args[0])
			}
			data, err := yaml.Marshal(d)
			if err != nil {
				return fmt.Errorf("marshaling YAML: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		})
	},
}

var dossiersExportCmd = &cobra.Command{
	Use:   "export [path]",
	Short: "Write all dossiers to a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s *store.Store) error {
			n, err := s.ExportYAML(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Exported %d dossiers to %s\n", n, args[0])
			return nil
		})
	},
}

var dossiersDeleteCmd = &cobra.Command{
	Use:   "delete [unit...]",
	Short: "Delete stored dossiers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, s *store.Store) error {
			for _, key := range args {
				if err := s.Delete(ctx, key); err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "deleted %s\n", key)
			}
			return nil
		})
	},
}

func withStore(fn func(ctx context.Context, s *store.Store) error) error {
	s, err := store.Open(viper.GetString("research.db_path"))
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(context.Background(), s)
}

func init() {
	dossiersCmd.AddCommand(dossiersListCmd)
	dossiersCmd.AddCommand(dossiersShowCmd)
	dossiersCmd.AddCommand(dossiersExportCmd)
	dossiersCmd.AddCommand(dossiersDeleteCmd)

	rootCmd.AddCommand(dossiersCmd)
}
