package sheetmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/seqmetadata/checklist-md/pkg/sheetmd/render"
	"github.com/seqmetadata/checklist-md/pkg/sheetmd/source"
)

// Exporter runs the tab-to-Markdown pipeline for a set of worksheet tabs.
type Exporter struct {
	opts     Options
	log      *zap.Logger
	resolver *source.Resolver
	fetcher  *source.Fetcher
	workbook *source.Workbook
}

// NewExporter creates an Exporter for the given options.
func NewExporter(opts Options) *Exporter {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	e := &Exporter{opts: opts, log: log}
	if opts.WorkbookPath != "" {
		e.workbook = source.OpenWorkbook(opts.WorkbookPath)
	} else {
		client := source.NewClient(opts.clientConfig(), log)
		e.resolver = source.NewResolver(client, log)
		e.fetcher = source.NewFetcher(client, e.resolver, log)
	}
	return e
}

// Run exports every requested tab in order and returns the written file
// paths, one per tab, in request order. Tabs are processed sequentially; the
// first per-tab failure aborts the batch, leaving files already written in
// place. Cancellation is checked before each tab starts.
func (e *Exporter) Run(ctx context.Context) ([]string, error) {
	docID := ""
	if e.workbook == nil {
		id, err := source.ParseDocumentID(e.opts.DocumentURL)
		if err != nil {
			return nil, err
		}
		docID = id
	}

	if err := os.MkdirAll(e.opts.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string
	taken := make(map[string]bool)
	for _, tab := range e.opts.Tabs {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		path, err := e.exportTab(ctx, docID, tab, taken)
		if err != nil {
			e.log.Error("tab export failed",
				zap.String("tab", tab),
				zap.Error(err))
			return written, err
		}
		e.log.Debug("tab exported",
			zap.String("tab", tab),
			zap.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

// exportTab runs one tab through resolve, fetch, render, and write.
func (e *Exporter) exportTab(ctx context.Context, docID, tab string, taken map[string]bool) (string, error) {
	var rows [][]string
	if e.workbook != nil {
		wbRows, err := e.workbook.Rows(tab)
		if err != nil {
			return "", NewExportError(tab, "fetch", err)
		}
		rows = wbRows
	} else {
		gid, err := e.resolveHandle(ctx, docID, tab)
		if err != nil {
			return "", NewExportError(tab, "resolve", err)
		}

		text, err := e.fetcher.FetchCSV(ctx, docID, tab, gid)
		if err != nil {
			return "", NewExportError(tab, "fetch", err)
		}

		rows, err = render.ParseCSV(text)
		if err != nil {
			return "", NewExportError(tab, "render", err)
		}
	}

	doc := render.Document(tab, render.Table(rows))
	path := filepath.Join(e.opts.OutDir, uniqueFilename(tab, taken))
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return "", NewExportError(tab, "write", err)
	}
	return path, nil
}

// resolveHandle finds the gid for a tab: override table first, then network
// resolution. A failed or empty network resolution is not fatal here, the
// fetcher still has name-addressed export as a last resort.
func (e *Exporter) resolveHandle(ctx context.Context, docID, tab string) (string, error) {
	gid, err := lookupOverride(e.opts.Overrides, tab)
	if err != nil {
		return "", err
	}
	if gid != "" {
		return gid, nil
	}

	tabs, err := e.resolver.TabMap(ctx, docID)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		e.log.Warn("tab handle resolution failed, will try name-addressed export",
			zap.String("tab", tab),
			zap.Error(err))
		return "", nil
	}

	if gid, ok := tabs[tab]; ok {
		return gid, nil
	}
	for name, gid := range tabs {
		if strings.EqualFold(name, tab) {
			return gid, nil
		}
	}
	e.log.Warn("tab not present in resolved mapping",
		zap.String("tab", tab),
		zap.Strings("known_tabs", tabs.Titles()))
	return "", nil
}

// uniqueFilename derives the output file name for a tab, appending a numeric
// suffix when two distinct tab names normalize to the same name.
func uniqueFilename(tab string, taken map[string]bool) string {
	name := render.Filename(tab)
	base := strings.TrimSuffix(name, ".md")
	for n := 2; taken[name]; n++ {
		name = fmt.Sprintf("%s-%d.md", base, n)
	}
	taken[name] = true
	return name
}
