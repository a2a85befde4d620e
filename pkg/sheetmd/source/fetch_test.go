package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, handler http.Handler) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(ClientConfig{BaseURL: srv.URL, MaxAttempts: 1}, nil)
	return NewFetcher(client, NewResolver(client, nil), nil)
}

func TestFetchCSVWithHandle(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/d/doc1/export", r.URL.Path)
		require.Equal(t, "csv", r.URL.Query().Get("format"))
		require.Equal(t, "42", r.URL.Query().Get("gid"))
		w.Write([]byte("Field,Description\nname,Sample name\n"))
	}))

	text, err := fetcher.FetchCSV(context.Background(), "doc1", "General", "42")
	require.NoError(t, err)
	assert.Equal(t, "Field,Description\nname,Sample name\n", text)
}

func TestFetchCSVNameAddressed(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/d/doc1/gviz/tq", r.URL.Path)
		require.Equal(t, "out:csv", r.URL.Query().Get("tqx"))
		require.Equal(t, "Targeted Sequencing", r.URL.Query().Get("sheet"))
		w.Write([]byte("a,b\n"))
	}))

	text, err := fetcher.FetchCSV(context.Background(), "doc1", "Targeted Sequencing", "")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", text)
}

func TestFetchCSVRejectsHTML(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/d/doc1/export":
			// The service reports success even for permission-denied pages.
			w.Write([]byte("\n  <!DOCTYPE html><html>Sign in</html>"))
		case "/d/doc1/gviz/tq":
			w.Write([]byte(`{"sheets":[{"title":"General","sheetId":0}]}`))
		}
	}))

	_, err := fetcher.FetchCSV(context.Background(), "doc1", "General", "0")
	var formatErr *UnexpectedFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "General", formatErr.TabName)
	assert.Equal(t, []string{"General"}, formatErr.KnownTabs)
}

func TestFetchCSVHTMLGuardDiagnosticsBestEffort(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/d/doc1/export":
			w.Write([]byte("<html></html>"))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))

	_, err := fetcher.FetchCSV(context.Background(), "doc1", "General", "0")
	var formatErr *UnexpectedFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Empty(t, formatErr.KnownTabs)
}

func TestClientRetriesTransientFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL:          srv.URL,
		MaxAttempts:      3,
		RetryBackoffBase: time.Millisecond,
	}, nil)

	body, err := client.Get(context.Background(), srv.URL+"/thing")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, 3, attempts)
}

func TestClientDoesNotRetryPermanentFailures(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL:          srv.URL,
		MaxAttempts:      3,
		RetryBackoffBase: time.Millisecond,
	}, nil)

	_, err := client.Get(context.Background(), srv.URL+"/thing")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, 1, attempts)
}
