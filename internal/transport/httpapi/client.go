package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/five82/lattice/internal/columns"
	"github.com/five82/lattice/internal/rows"
)

// Ensure Client implements rows.Transport and columns.SchemaSource at compile time.
var (
	_ rows.Transport        = (*Client)(nil)
	_ columns.SchemaSource = (*Client)(nil)
)

// Client talks to a lattice row API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	defaultAPIBind   = "127.0.0.1:7490"
	defaultUserAgent = "lattice/0.1"
	requestTimeout   = 5 * time.Second
)

// NewClient builds a Client using the provided apiBind host:port value.
func NewClient(apiBind string) (*Client, error) {
	base, err := parseBaseURL(apiBind)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// RowCount retrieves the number of rows in a store.
func (c *Client) RowCount(ctx context.Context, storeID string) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: storePath(storeID, "count")}
	var payload CountResponse
	if err := c.doURL(ctx, http.MethodGet, rel, &payload); err != nil {
		return 0, err
	}
	return payload.Count, nil
}

// Rows retrieves the inclusive row range described by q.
func (c *Client) Rows(ctx context.Context, storeID string, q rows.Query) ([]rows.RowRecord, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	values := url.Values{}
	values.Set("first", strconv.Itoa(q.First))
	values.Set("last", strconv.Itoa(q.Last))
	if q.SortDirection != rows.SortNone && q.SortIndex >= 0 {
		values.Set("sort", strconv.Itoa(q.SortIndex))
		values.Set("dir", q.SortDirection.String())
	}
	rel := &url.URL{Path: storePath(storeID, "rows"), RawQuery: values.Encode()}
	var payload RowsResponse
	if err := c.doURL(ctx, http.MethodGet, rel, &payload); err != nil {
		return nil, err
	}
	return payload.Rows, nil
}

// Schema retrieves the column schema of a store.
func (c *Client) Schema(ctx context.Context, storeID string) ([]columns.Info, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	rel := &url.URL{Path: storePath(storeID, "columns")}
	var payload ColumnsResponse
	if err := c.doURL(ctx, http.MethodGet, rel, &payload); err != nil {
		return nil, err
	}
	out := make([]columns.Info, len(payload.Columns))
	for i, col := range payload.Columns {
		out[i] = columns.Info{Name: col.Name, Kind: columns.ParseKind(col.Kind)}
	}
	return out, nil
}

func storePath(storeID, endpoint string) string {
	return "/api/stores/" + url.PathEscape(storeID) + "/" + endpoint
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		serr := &StatusError{Path: rel.Path, Code: resp.StatusCode}
		var body ErrorResponse
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil && json.Unmarshal(data, &body) == nil {
			serr.Message = body.Error
		}
		return serr
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(apiBind string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBind)
	if trimmed == "" {
		trimmed = defaultAPIBind
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", apiBind, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
