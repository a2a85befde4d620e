package source

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedURL indicates the document URL does not contain a document
// identifier after the /d/ path segment.
var ErrMalformedURL = errors.New("malformed spreadsheet URL")

// ErrNoTabMapping indicates no title-to-gid mapping could be discovered for
// the document by any resolution strategy.
var ErrNoTabMapping = errors.New("no tab mapping discovered")

// ErrSheetNotFound indicates a requested worksheet does not exist in a local
// workbook file.
var ErrSheetNotFound = errors.New("sheet not found in workbook")

// UnexpectedFormatError indicates the export endpoint returned markup instead
// of delimited data. The hosting service reports HTTP success even for
// permission-denied and not-found documents, substituting an HTML page.
type UnexpectedFormatError struct {
	TabName string
	URL     string
	// KnownTabs is a best-effort list of worksheet titles discovered during
	// diagnostic re-resolution. Empty when diagnostics failed.
	KnownTabs []string
}

func (e *UnexpectedFormatError) Error() string {
	msg := fmt.Sprintf("export for tab %q returned HTML instead of CSV (%s)", e.TabName, e.URL)
	if len(e.KnownTabs) > 0 {
		msg += "; known tabs: " + strings.Join(e.KnownTabs, ", ")
	}
	return msg
}

// StatusError indicates a non-2xx HTTP response that is not retryable.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
}
