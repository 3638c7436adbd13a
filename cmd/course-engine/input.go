// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/course-engine/pkg/types"
)

// readInput returns the contents of path, or stdin when path is "" or "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// courseFile is the topics input: a course title plus its units.
type courseFile struct {
	CourseTitle string                `yaml:"course_title"`
	Units       []types.ResearchTopic `yaml:"units"`
}

// loadTopics parses a course file. A bare YAML list of units is accepted.
func loadTopics(data []byte) ([]types.ResearchTopic, error) {
	var cf courseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		var list []types.ResearchTopic
		if lerr := yaml.Unmarshal(data, &list); lerr != nil {
			return nil, fmt.Errorf("parsing topics: %w", err)
		}
		cf.Units = list
	}
	for i := range cf.Units {
		if cf.Units[i].CourseTitle == "" {
			cf.Units[i].CourseTitle = cf.CourseTitle
		}
		if cf.Units[i].Key == "" {
			return nil, fmt.Errorf("unit %d (%q) has no key", i+1, cf.Units[i].Title)
		}
	}
	if len(cf.Units) == 0 {
		return nil, fmt.Errorf("no units found")
	}
	return cf.Units, nil
}

// signalContext is cancelled on interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
