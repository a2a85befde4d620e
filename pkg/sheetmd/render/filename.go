package render

import (
	"regexp"
	"strings"
)

// fallbackName is used when a tab name normalizes to nothing.
const fallbackName = "sheet"

var nonAlnumRuns = regexp.MustCompile(`[^a-z0-9]+`)

// Filename derives the output file name for a tab: lowercase, runs of
// non-alphanumeric characters collapsed to a single dash, leading and
// trailing dashes stripped. The derivation is lossy; distinct tab names can
// collide and the caller is responsible for deduplication.
func Filename(tabName string) string {
	slug := strings.ToLower(tabName)
	slug = nonAlnumRuns.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = fallbackName
	}
	return slug + ".md"
}

// Document assembles the full Markdown file for a tab: a heading, the fixed
// checklist boilerplate, and the rendered table.
func Document(tabName, table string) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(strings.TrimSpace(tabName))
	b.WriteString("\n\n")
	b.WriteString(boilerplate)
	b.WriteString("\n")
	b.WriteString(table)
	b.WriteString("\n")
	return b.String()
}

// boilerplate is the fixed descriptive block written above every checklist
// table. Generated files are overwritten on each export.
const boilerplate = `This checklist is generated from the published metadata
spreadsheet. Each row defines one metadata field recommended for describing
genomic sequencing experiments of this assay family. Do not edit this file by
hand; rerun the exporter to refresh it from the source of truth.
`
