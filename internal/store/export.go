// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/course-engine/pkg/types"
)

// ExportYAML writes every stored dossier to path as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, path string) (int, error) {
	dossiers, err := s.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("querying for export: %w", err)
	}
	if dossiers == nil {
		dossiers = []types.Dossier{}
	}

	data, err := yaml.Marshal(dossiers)
	if err != nil {
		return 0, fmt.Errorf("marshaling YAML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return len(dossiers), nil
}
