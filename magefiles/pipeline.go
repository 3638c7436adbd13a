//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Research runs the research stage for the units listed in course.yaml.
func Research() error {
	mg.Deps(Build, Init)
	return sh.RunV("bin/course-engine", "research", "course.yaml", "--export", "research/export/dossiers.yaml")
}

// Dossiers lists the dossiers stored by earlier research runs.
func Dossiers() error {
	mg.Deps(Build)
	return sh.RunV("bin/course-engine", "dossiers", "list")
}
