package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// Fetcher retrieves raw CSV for a single worksheet via the export endpoints.
type Fetcher struct {
	client   *Client
	resolver *Resolver
	log      *zap.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(client *Client, resolver *Resolver, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{client: client, resolver: resolver, log: log}
}

// FetchCSV fetches the delimited text for one worksheet. When gid is
// non-empty it uses the handle-addressed export endpoint; otherwise it falls
// back to name-addressed export, which silently returns wrong or empty
// content for some name collisions and encodings.
//
// The export endpoints report HTTP success even for permission-denied and
// not-found documents, substituting an HTML page, so any body that starts
// with markup is rejected with an UnexpectedFormatError carrying a
// best-effort list of known tab titles.
func (f *Fetcher) FetchCSV(ctx context.Context, docID, tabName, gid string) (string, error) {
	var exportURL string
	if gid != "" {
		exportURL = fmt.Sprintf("%s/d/%s/export?format=csv&gid=%s", f.client.BaseURL(), docID, url.QueryEscape(gid))
	} else {
		f.log.Debug("no gid resolved, falling back to name-addressed export",
			zap.String("tab", tabName))
		exportURL = fmt.Sprintf("%s/d/%s/gviz/tq?tqx=out:csv&sheet=%s", f.client.BaseURL(), docID, url.QueryEscape(tabName))
	}

	body, err := f.client.Get(ctx, exportURL)
	if err != nil {
		return "", err
	}

	text := string(body)
	if strings.HasPrefix(strings.TrimLeft(text, " \t\r\n"), "<") {
		return "", &UnexpectedFormatError{
			TabName:   tabName,
			URL:       exportURL,
			KnownTabs: f.resolver.KnownTabs(ctx, docID),
		}
	}
	return text, nil
}
