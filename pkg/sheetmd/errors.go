package sheetmd

import (
	"errors"
	"fmt"

	"github.com/seqmetadata/checklist-md/pkg/sheetmd/source"
)

// ErrMalformedURL is re-exported from the source package and indicates the
// document URL does not contain a document identifier after /d/.
var ErrMalformedURL = source.ErrMalformedURL

// ErrNoTabMapping is re-exported from the source package and indicates no
// title-to-gid mapping could be discovered by any resolution strategy.
var ErrNoTabMapping = source.ErrNoTabMapping

// UnexpectedFormatError is re-exported from the source package and indicates
// the export endpoint returned markup instead of delimited data.
type UnexpectedFormatError = source.UnexpectedFormatError

// ErrAmbiguousOverride indicates a case-insensitive override lookup matched
// more than one configured tab name.
var ErrAmbiguousOverride = errors.New("ambiguous override match")

// ExportError represents a failure while exporting a single tab.
type ExportError struct {
	TabName string
	Stage   string // "resolve", "fetch", "render", "write"
	Err     error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error for tab %q (%s): %v", e.TabName, e.Stage, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError creates a new ExportError.
func NewExportError(tabName, stage string, err error) *ExportError {
	return &ExportError{
		TabName: tabName,
		Stage:   stage,
		Err:     err,
	}
}
