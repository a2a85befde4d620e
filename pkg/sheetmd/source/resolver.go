package source

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/seqmetadata/checklist-md/pkg/sheetmd/models"
)

// Resolver discovers the title-to-gid mapping for a document. Tab titles are
// user-facing and may be renamed; gids are stable, so handle-addressed export
// is preferred. The mapping is rediscovered on every call and never cached.
type Resolver struct {
	client *Client
	log    *zap.Logger
}

// NewResolver creates a Resolver backed by the given client.
func NewResolver(client *Client, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{client: client, log: log}
}

// TabMap resolves the full title-to-gid mapping for a document. Strategies
// are tried in order and the first non-empty mapping wins: the structured
// metadata endpoint, then scraping the document's edit page. When both come
// up empty it fails with ErrNoTabMapping.
func (r *Resolver) TabMap(ctx context.Context, docID string) (models.TabMap, error) {
	strategies := []struct {
		name string
		fn   func(context.Context, string) (models.TabMap, error)
	}{
		{"metadata", r.fromMetadata},
		{"bootstrap", r.fromBootstrapPage},
	}

	for _, s := range strategies {
		tabs, err := s.fn(ctx, docID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Debug("tab resolution strategy failed",
				zap.String("strategy", s.name),
				zap.String("doc_id", docID),
				zap.Error(err))
			continue
		}
		if len(tabs) > 0 {
			r.log.Debug("tab mapping resolved",
				zap.String("strategy", s.name),
				zap.Int("tabs", len(tabs)))
			return tabs, nil
		}
	}
	return nil, fmt.Errorf("%w for document %s", ErrNoTabMapping, docID)
}

// KnownTabs returns the sorted worksheet titles for a document, for use in
// diagnostics. Resolution errors reduce to an empty list and are never
// escalated: this runs while reporting another error.
func (r *Resolver) KnownTabs(ctx context.Context, docID string) []string {
	tabs, err := r.TabMap(ctx, docID)
	if err != nil {
		return nil
	}
	titles := tabs.Titles()
	sort.Strings(titles)
	return titles
}

// fromMetadata queries the document's structured metadata endpoint.
func (r *Resolver) fromMetadata(ctx context.Context, docID string) (models.TabMap, error) {
	url := fmt.Sprintf("%s/d/%s/gviz/tq?tqx=out:json", r.client.BaseURL(), docID)
	body, err := r.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return parseMetadataPayload(body)
}

// fromBootstrapPage fetches the interactive edit page and scrapes the
// embedded sheet metadata out of the markup.
func (r *Resolver) fromBootstrapPage(ctx context.Context, docID string) (models.TabMap, error) {
	url := fmt.Sprintf("%s/d/%s/edit", r.client.BaseURL(), docID)
	body, err := r.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return scrapeBootstrapPage(string(body)), nil
}

// metadataPayload covers both supported payload shapes: a "sheets" collection
// (entries flat or nested under "properties") and the legacy tabular shape
// whose rows carry (gid, title) in their first two cells.
type metadataPayload struct {
	Sheets []struct {
		Title      string           `json:"title"`
		SheetID    *json.Number     `json:"sheetId"`
		GID        *json.Number     `json:"gid"`
		Properties *sheetProperties `json:"properties"`
	} `json:"sheets"`
	Table *struct {
		Rows []struct {
			C []struct {
				V interface{} `json:"v"`
			} `json:"c"`
		} `json:"rows"`
	} `json:"table"`
}

type sheetProperties struct {
	Title   string       `json:"title"`
	SheetID *json.Number `json:"sheetId"`
}

// parseMetadataPayload strips untrusted transport wrapping from a metadata
// response and extracts the title-to-gid mapping.
func parseMetadataPayload(body []byte) (models.TabMap, error) {
	payload := stripWrapping(body)
	if len(payload) == 0 {
		return nil, fmt.Errorf("metadata response contains no JSON object")
	}

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	var meta metadataPayload
	if err := dec.Decode(&meta); err != nil {
		return nil, fmt.Errorf("decode metadata payload: %w", err)
	}

	tabs := models.TabMap{}
	for _, s := range meta.Sheets {
		title, gid := s.Title, s.SheetID
		if gid == nil {
			gid = s.GID
		}
		if s.Properties != nil {
			if title == "" {
				title = s.Properties.Title
			}
			if gid == nil {
				gid = s.Properties.SheetID
			}
		}
		if title != "" && gid != nil {
			tabs[title] = gid.String()
		}
	}
	if len(tabs) > 0 {
		return tabs, nil
	}

	if meta.Table != nil {
		for _, row := range meta.Table.Rows {
			if len(row.C) < 2 {
				continue
			}
			gid := cellString(row.C[0].V)
			title := cellString(row.C[1].V)
			if gid != "" && title != "" {
				tabs[title] = gid
			}
		}
	}
	return tabs, nil
}

// stripWrapping removes a callback-style envelope and/or a leading integrity
// marker line from a metadata response, returning the bare JSON object text.
func stripWrapping(body []byte) string {
	s := strings.TrimSpace(string(body))
	if strings.HasPrefix(s, ")]}'") {
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		} else {
			s = s[len(")]}'"):]
		}
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatInt(int64(val), 10)
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}

var (
	gidThenTitle = regexp.MustCompile(`"sheetId"\s*:\s*(\d+)[^{}\[\]]*?"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	titleThenGID = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"[^{}\[\]]*?"sheetId"\s*:\s*(\d+)`)
)

// scrapeBootstrapPage extracts sheet metadata embedded in the edit page
// markup. It first tries to locate and decode the "sheets" JSON array; when
// that fails it falls back to a looser scan for adjacent gid/title fields.
func scrapeBootstrapPage(html string) models.TabMap {
	if tabs := scrapeSheetsArray(html); len(tabs) > 0 {
		return tabs
	}

	tabs := models.TabMap{}
	for _, m := range gidThenTitle.FindAllStringSubmatch(html, -1) {
		if title := unescapeJSONString(m[2]); title != "" {
			tabs[title] = m[1]
		}
	}
	for _, m := range titleThenGID.FindAllStringSubmatch(html, -1) {
		title := unescapeJSONString(m[1])
		if title == "" {
			continue
		}
		if _, ok := tabs[title]; !ok {
			tabs[title] = m[2]
		}
	}
	return tabs
}

// scrapeSheetsArray locates the embedded "sheets":[...] array by balanced
// bracket scanning and decodes it through the regular payload parser.
func scrapeSheetsArray(html string) models.TabMap {
	key := `"sheets":`
	idx := strings.Index(html, key)
	if idx < 0 {
		return nil
	}
	rest := html[idx+len(key):]
	open := strings.IndexByte(rest, '[')
	if open < 0 {
		return nil
	}

	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(rest); i++ {
		ch := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				doc := `{"sheets":` + rest[open:i+1] + `}`
				tabs, err := parseMetadataPayload([]byte(doc))
				if err != nil {
					return nil
				}
				return tabs
			}
		}
	}
	return nil
}

func unescapeJSONString(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(`"`+raw+`"`), &s); err != nil {
		return raw
	}
	return s
}
