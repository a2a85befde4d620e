// Package sheetmd exports worksheet tabs of the published checklist
// spreadsheet as Markdown table files.
package sheetmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/seqmetadata/checklist-md/pkg/sheetmd/models"
	"github.com/seqmetadata/checklist-md/pkg/sheetmd/source"
)

// DefaultDocumentURL is the published checklist spreadsheet.
const DefaultDocumentURL = "https://docs.google.com/spreadsheets/d/1qK8oyZZElrNJhiGUVNPR2eyGMYkXLvqpBEMfW7a9rZk/edit"

// DefaultOutDir is where generated checklist files land relative to the
// repository root.
const DefaultOutDir = "docs/checklists"

// DefaultTabs lists the checklist tabs exported when none are requested.
func DefaultTabs() []string {
	return []string{
		"General",
		"Targeted Sequencing",
		"Chromatin-Related",
		"Single-Cell",
		"Bulk Profiling",
	}
}

// builtinGIDs carries the known handles for the default tabs at the time of
// writing. Handles are stable across renames, so these survive until a tab is
// deleted and recreated; environment and CLI overrides take precedence.
var builtinGIDs = models.TabMap{
	"General":             "0",
	"Targeted Sequencing": "1868107245",
	"Chromatin-Related":   "1632145732",
	"Single-Cell":         "908676423",
	"Bulk Profiling":      "151213807",
}

// BuiltinOverrides returns a copy of the built-in tab handle table.
func BuiltinOverrides() models.TabMap {
	out := make(models.TabMap, len(builtinGIDs))
	for k, v := range builtinGIDs {
		out[k] = v
	}
	return out
}

// Options configures an export run. Zero-valued fields fall back to the
// built-in defaults.
type Options struct {
	// DocumentURL is the spreadsheet URL to export from.
	DocumentURL string
	// WorkbookPath, when set, reads tabs from a local .xlsx file instead of
	// fetching over HTTP.
	WorkbookPath string
	// Tabs are the worksheet names to export, in output order.
	Tabs []string
	// Overrides is the merged tab handle table (CLI > environment >
	// built-in). It is consulted before any network resolution.
	Overrides models.TabMap
	// OutDir is the output directory; one file is written per tab.
	OutDir string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// BaseURL overrides the spreadsheet service root, for tests.
	BaseURL string
	// Logger receives progress and failure logs; nil means no logging.
	Logger *zap.Logger
}

// DefaultOptions returns options targeting the published checklist document
// with the built-in tabs and handle table.
func DefaultOptions() Options {
	return Options{
		DocumentURL: DefaultDocumentURL,
		Tabs:        DefaultTabs(),
		Overrides:   BuiltinOverrides(),
		OutDir:      DefaultOutDir,
	}
}

// EnvConfig carries configuration read from the environment.
type EnvConfig struct {
	// TabGIDs merges additional Name=Handle pairs into the override table,
	// above the built-in defaults and below CLI pairs. Accepts a JSON object
	// or a semicolon-delimited Name=Handle list.
	TabGIDs string `env:"CHECKLIST_TAB_GIDS"`
	// Debug raises log verbosity.
	Debug bool `env:"CHECKLIST_DEBUG"`
}

// LoadEnv parses the process environment.
func LoadEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// ParseOverridePairs parses an override specification: either a JSON object
// mapping tab names to handles, or a semicolon-delimited list of Name=Handle
// pairs. An empty specification yields an empty table.
func ParseOverridePairs(spec string) (models.TabMap, error) {
	spec = strings.TrimSpace(spec)
	tabs := models.TabMap{}
	if spec == "" {
		return tabs, nil
	}

	if strings.HasPrefix(spec, "{") {
		var raw map[string]interface{}
		dec := json.NewDecoder(strings.NewReader(spec))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse override JSON: %w", err)
		}
		for name, v := range raw {
			switch gid := v.(type) {
			case string:
				tabs[name] = strings.TrimSpace(gid)
			case json.Number:
				tabs[name] = gid.String()
			default:
				return nil, fmt.Errorf("invalid handle for tab %q: %v", name, v)
			}
		}
		return tabs, nil
	}

	for _, pair := range strings.Split(spec, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, gid, ok := strings.Cut(pair, "=")
		name, gid = strings.TrimSpace(name), strings.TrimSpace(gid)
		if !ok || name == "" || gid == "" {
			return nil, fmt.Errorf("invalid override pair %q (want Name=Handle)", pair)
		}
		tabs[name] = gid
	}
	return tabs, nil
}

// MergeOverrides merges override tables lowest-precedence first: a later
// table's pairs replace earlier ones.
func MergeOverrides(layers ...models.TabMap) models.TabMap {
	merged := models.TabMap{}
	for _, layer := range layers {
		for name, gid := range layer {
			merged[name] = gid
		}
	}
	return merged
}

// lookupOverride finds a handle for tabName in the override table: exact
// match first, then case-insensitive. A case-insensitive probe matching more
// than one distinct key is reported rather than silently picked.
func lookupOverride(overrides models.TabMap, tabName string) (string, error) {
	if gid, ok := overrides[tabName]; ok {
		return gid, nil
	}

	var matched []string
	for name := range overrides {
		if strings.EqualFold(name, tabName) {
			matched = append(matched, name)
		}
	}
	switch len(matched) {
	case 0:
		return "", nil
	case 1:
		return overrides[matched[0]], nil
	default:
		return "", fmt.Errorf("%w: %q matches %s",
			ErrAmbiguousOverride, tabName, strings.Join(matched, " and "))
	}
}

// clientConfig translates Options into the source client configuration.
func (o Options) clientConfig() source.ClientConfig {
	return source.ClientConfig{
		BaseURL: o.BaseURL,
		Timeout: o.Timeout,
	}
}
