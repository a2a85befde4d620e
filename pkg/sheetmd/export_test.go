package sheetmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/seqmetadata/checklist-md/pkg/sheetmd/models"
)

const testDocURL = "https://docs.google.com/spreadsheets/d/doc1/edit"

func testOptions(t *testing.T, srvURL string) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.DocumentURL = testDocURL
	opts.BaseURL = srvURL
	opts.OutDir = t.TempDir()
	return opts
}

func TestExporterRun(t *testing.T) {
	csvByGID := map[string]string{
		"0":  "Field,Description\nsample_id,Unique identifier\n",
		"77": "Field,Description\npanel,Target panel name\n",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/d/doc1/export", r.URL.Path)
		body, ok := csvByGID[r.URL.Query().Get("gid")]
		require.True(t, ok, "unexpected gid %q", r.URL.Query().Get("gid"))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(t, srv.URL)
	opts.Tabs = []string{"General", "Targeted Sequencing"}
	opts.Overrides = models.TabMap{"General": "0", "Targeted Sequencing": "77"}

	written, err := NewExporter(opts).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(opts.OutDir, "general.md"),
		filepath.Join(opts.OutDir, "targeted-sequencing.md"),
	}, written)

	content, err := os.ReadFile(written[1])
	require.NoError(t, err)
	assert.Contains(t, string(content), "# Targeted Sequencing")
	assert.Contains(t, string(content), "| Field | Description |")
	assert.Contains(t, string(content), "| panel | Target panel name |")
}

func TestExporterOverridePrecedenceUsesCLIValue(t *testing.T) {
	var requestedGID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedGID = r.URL.Query().Get("gid")
		w.Write([]byte("a,b\n1,2\n"))
	}))
	t.Cleanup(srv.Close)

	cli := models.TabMap{"General": "999"}
	opts := testOptions(t, srv.URL)
	opts.Tabs = []string{"General"}
	opts.Overrides = MergeOverrides(BuiltinOverrides(), cli)

	_, err := NewExporter(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "999", requestedGID)
}

func TestExporterResolvesHandleOverNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/d/doc1/gviz/tq":
			w.Write([]byte(`google.visualization.Query.setResponse({"sheets":[{"properties":{"sheetId":314,"title":"Novel Tab"}}]});`))
		case "/d/doc1/export":
			require.Equal(t, "314", r.URL.Query().Get("gid"))
			w.Write([]byte("a,b\n1,2\n"))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(t, srv.URL)
	opts.Tabs = []string{"Novel Tab"}
	opts.Overrides = nil

	written, err := NewExporter(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(opts.OutDir, "novel-tab.md")}, written)
}

func TestExporterFilenameCollisionDeduplicated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a,b\n1,2\n"))
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(t, srv.URL)
	opts.Tabs = []string{"A/B", "A B"}
	opts.Overrides = models.TabMap{"A/B": "1", "A B": "2"}

	written, err := NewExporter(opts).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(opts.OutDir, "a-b.md"),
		filepath.Join(opts.OutDir, "a-b-2.md"),
	}, written)
}

func TestExporterAbortsBatchOnTabFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("gid") {
		case "1":
			w.Write([]byte("a,b\n1,2\n"))
		default:
			// HTML page despite HTTP success.
			w.Write([]byte("<html>permission denied</html>"))
		}
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(t, srv.URL)
	opts.Tabs = []string{"First", "Second", "Third"}
	opts.Overrides = models.TabMap{"First": "1", "Second": "2", "Third": "3"}

	written, err := NewExporter(opts).Run(context.Background())
	var exportErr *ExportError
	require.ErrorAs(t, err, &exportErr)
	assert.Equal(t, "Second", exportErr.TabName)

	var formatErr *UnexpectedFormatError
	assert.ErrorAs(t, err, &formatErr)

	// The file written before the failure stays in place.
	assert.Equal(t, []string{filepath.Join(opts.OutDir, "first.md")}, written)
	_, statErr := os.Stat(filepath.Join(opts.OutDir, "first.md"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(opts.OutDir, "second.md"))
	assert.True(t, os.IsNotExist(statErr), "no partial output for the failed tab")
}

func TestExporterMalformedURL(t *testing.T) {
	opts := DefaultOptions()
	opts.DocumentURL = "https://docs.google.com/spreadsheets/nope"
	opts.OutDir = t.TempDir()

	_, err := NewExporter(opts).Run(context.Background())
	require.ErrorIs(t, err, ErrMalformedURL)
}

func TestExporterCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("a,b\n"))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := testOptions(t, srv.URL)
	opts.Tabs = []string{"General"}

	_, err := NewExporter(opts).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExporterEmptySheetSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(""))
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(t, srv.URL)
	opts.Tabs = []string{"General"}
	opts.Overrides = models.TabMap{"General": "0"}

	written, err := NewExporter(opts).Run(context.Background())
	require.NoError(t, err)
	content, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "_No data in this sheet._")
}

func TestExporterFromWorkbook(t *testing.T) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "General")
	f.SetCellValue("General", "A1", "Field")
	f.SetCellValue("General", "B1", "Description")
	f.SetCellValue("General", "A2", "sample_id")
	f.SetCellValue("General", "B2", "Unique identifier")
	path := filepath.Join(t.TempDir(), "checklists.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	opts := DefaultOptions()
	opts.WorkbookPath = path
	opts.Tabs = []string{"General"}
	opts.OutDir = t.TempDir()

	written, err := NewExporter(opts).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, written, 1)

	content, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "| sample_id | Unique identifier |")
}
