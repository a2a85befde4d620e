// Package main provides the CLI entry point for checklist-md.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seqmetadata/checklist-md/internal/logging"
	"github.com/seqmetadata/checklist-md/pkg/sheetmd"
	"github.com/seqmetadata/checklist-md/pkg/sheetmd/models"
)

var (
	docURL       string
	tabs         []string
	gidPairs     []string
	outDir       string
	workbookPath string
	timeout      time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "checklistmd",
		Short: "Export checklist spreadsheet tabs as Markdown tables",
		Long: `checklistmd extracts named tabs from the published metadata checklist
spreadsheet and writes each as a Markdown table file.`,
		Args:          cobra.NoArgs,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().StringVar(&docURL, "url", sheetmd.DefaultDocumentURL, "Spreadsheet document URL")
	rootCmd.Flags().StringArrayVar(&tabs, "tab", nil, "Tab name to export (repeatable; default: the built-in checklist tabs)")
	rootCmd.Flags().StringArrayVar(&gidPairs, "gid", nil, "Tab handle override as Name=Handle (repeatable)")
	rootCmd.Flags().StringVarP(&outDir, "outdir", "o", sheetmd.DefaultOutDir, "Output directory")
	rootCmd.Flags().StringVar(&workbookPath, "workbook", "", "Read tabs from a local .xlsx file instead of fetching")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP request timeout")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	envCfg, err := sheetmd.LoadEnv()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{Debug: envCfg.Debug})
	defer func() {
		_ = logger.Sync()
	}()

	envOverrides, err := sheetmd.ParseOverridePairs(envCfg.TabGIDs)
	if err != nil {
		return fmt.Errorf("CHECKLIST_TAB_GIDS: %w", err)
	}
	cliOverrides := models.TabMap{}
	for _, pair := range gidPairs {
		parsed, err := sheetmd.ParseOverridePairs(pair)
		if err != nil {
			return err
		}
		for name, gid := range parsed {
			cliOverrides[name] = gid
		}
	}

	opts := sheetmd.DefaultOptions()
	opts.DocumentURL = docURL
	opts.WorkbookPath = workbookPath
	opts.OutDir = outDir
	opts.Timeout = timeout
	opts.Logger = logger
	opts.Overrides = sheetmd.MergeOverrides(sheetmd.BuiltinOverrides(), envOverrides, cliOverrides)
	if len(tabs) > 0 {
		opts.Tabs = tabs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	written, err := sheetmd.NewExporter(opts).Run(ctx)
	if err != nil {
		logger.Error("export aborted", zap.Error(err))
		return err
	}

	fmt.Println(strings.Join(written, "\n"))
	return nil
}
