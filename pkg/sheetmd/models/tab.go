// Package models defines data structures shared across the export pipeline.
package models

// Tab identifies a single worksheet within a spreadsheet document.
type Tab struct {
	// Title is the human-readable worksheet name.
	Title string `json:"title"`
	// GID is the stable numeric handle for the worksheet. It survives
	// renames, unlike the title.
	GID string `json:"gid"`
}

// TabMap maps worksheet titles to their stable numeric handles.
type TabMap map[string]string

// Titles returns the mapped worksheet titles in unspecified order.
func (m TabMap) Titles() []string {
	titles := make([]string, 0, len(m))
	for title := range m {
		titles = append(titles, title)
	}
	return titles
}
