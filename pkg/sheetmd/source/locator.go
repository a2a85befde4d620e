// Package source retrieves worksheet data from a hosted spreadsheet document
// or a local workbook file.
package source

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseDocumentID extracts the document identifier from a spreadsheet URL.
// The identifier is the path segment immediately following the literal "d"
// segment, e.g. ".../spreadsheets/d/<ID>/edit".
func ParseDocumentID(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedURL, rawURL)
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		if seg != "d" {
			continue
		}
		if i+1 < len(segments) && segments[i+1] != "" {
			return segments[i+1], nil
		}
		break
	}
	return "", fmt.Errorf("%w: %s", ErrMalformedURL, rawURL)
}
