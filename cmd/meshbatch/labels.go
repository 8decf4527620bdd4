package main

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"meshbatch/internal/scene"
)

var titleCaser = cases.Title(language.Und)

// titleLabel turns identifiers such as "partial" or "solver_failed" into
// display labels.
func titleLabel(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

func roleLabel(role scene.Role) string {
	return titleLabel(role.String())
}
