// Package strapi implements driven.ContentStore against a Strapi REST API.
//
// Collections are fetched from /api/{endpoint} page by page. Strapi v4
// responses nest fields under "attributes" and relations under
// {"data": ...}; both are flattened so records look the same as the plain
// v5 shape.
package strapi

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

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-indexsync/internal/core/domain"
	"github.com/custodia-labs/sercha-indexsync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-indexsync/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the default number of records per page.
	DefaultPageSize = 100

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 64 << 10
)

// Ensure Client implements the interface.
var _ driven.ContentStore = (*Client)(nil)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Token     string
	RateLimit float64
	PageSize  int
	Timeout   time.Duration

	// Endpoints overrides the path segment used for a collection.
	Endpoints map[string]string

	// HTTPClient replaces the default client; its Timeout is left alone.
	HTTPClient *http.Client
}

// Client queries records from a Strapi content API.
type Client struct {
	base      *url.URL
	token     string
	pageSize  int
	endpoints map[string]string
	http      *http.Client
	limiter   *rate.Limiter
}

// New creates a client. It does not contact the server.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid content base url %q", domain.ErrConfiguration, cfg.BaseURL)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Client{
		base:      base,
		token:     cfg.Token,
		pageSize:  pageSize,
		endpoints: cfg.Endpoints,
		http:      httpClient,
		limiter:   rate.NewLimiter(limit, 1),
	}, nil
}

// listResponse is the collection envelope.
type listResponse struct {
	Data []map[string]any `json:"data"`
	Meta struct {
		Pagination struct {
			Page      int `json:"page"`
			PageSize  int `json:"pageSize"`
			PageCount int `json:"pageCount"`
			Total     int `json:"total"`
		} `json:"pagination"`
	} `json:"meta"`
}

// singleResponse is the single-entry envelope.
type singleResponse struct {
	Data map[string]any `json:"data"`
}

// FindMany returns every record of the collection matching opts, following
// pagination until the last page.
func (c *Client) FindMany(ctx context.Context, collection string, opts domain.QueryOptions) ([]domain.Record, error) {
	params := queryParams(opts)
	params.Set("pagination[pageSize]", strconv.Itoa(c.pageSize))

	var records []domain.Record
	for page := 1; ; page++ {
		params.Set("pagination[page]", strconv.Itoa(page))

		var resp listResponse
		if err := c.get(ctx, c.collectionPath(collection), params, &resp); err != nil {
			return nil, fmt.Errorf("fetching %s page %d: %w", collection, page, err)
		}
		for _, entry := range resp.Data {
			records = append(records, flattenEntry(entry))
		}

		logger.Debug("strapi: %s page %d/%d (%d records)", collection, page, resp.Meta.Pagination.PageCount, len(resp.Data))
		if page >= resp.Meta.Pagination.PageCount || len(resp.Data) == 0 {
			break
		}
	}
	return records, nil
}

// FindOne returns a single record with the given relations populated.
func (c *Client) FindOne(ctx context.Context, collection, id string, populate []string) (domain.Record, error) {
	params := queryParams(domain.QueryOptions{Populate: populate})

	var resp singleResponse
	if err := c.get(ctx, c.collectionPath(collection)+"/"+url.PathEscape(id), params, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s %s: %w", collection, id, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrNotFound, collection, id)
	}
	return flattenEntry(resp.Data), nil
}

func (c *Client) collectionPath(collection string) string {
	if endpoint, ok := c.endpoints[collection]; ok {
		return "/api/" + endpoint
	}
	return "/api/" + url.PathEscape(collection)
}

// get performs a rate-limited GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, URL: u.Path, Message: readErrorMessage(resp.Body)}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %w", domain.ErrNotFound, apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func readErrorMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil {
		return err.Error()
	}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

// queryParams encodes sort, filters and populate in Strapi's bracket syntax.
func queryParams(opts domain.QueryOptions) url.Values {
	params := url.Values{}
	for i, s := range opts.Sort {
		dir := "asc"
		if s.Descending {
			dir = "desc"
		}
		params.Set(fmt.Sprintf("sort[%d]", i), s.Field+":"+dir)
	}
	for _, f := range opts.Filters {
		params.Set(fmt.Sprintf("filters[%s][%s]", f.Field, f.Op), "true")
	}
	for i, p := range opts.Populate {
		params.Set(fmt.Sprintf("populate[%d]", i), p)
	}
	return params
}

// flattenEntry turns an entry into a Record, lifting v4 attributes.
func flattenEntry(entry map[string]any) domain.Record {
	flat, _ := flattenValue(entry).(map[string]any)
	if flat == nil {
		return domain.Record{}
	}
	return domain.Record(flat)
}

func flattenValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if attrs, ok := t["attributes"].(map[string]any); ok {
			out := make(map[string]any, len(attrs)+1)
			if id, ok := t["id"]; ok {
				out["id"] = id
			}
			for k, val := range attrs {
				out[k] = flattenValue(val)
			}
			return out
		}
		if isRelationEnvelope(t) {
			return flattenValue(t["data"])
		}
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = flattenValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = flattenValue(item)
		}
		return out
	default:
		return v
	}
}

// isRelationEnvelope matches {"data": ...} with an optional "meta".
func isRelationEnvelope(m map[string]any) bool {
	if _, ok := m["data"]; !ok {
		return false
	}
	for k := range m {
		if k != "data" && k != "meta" {
			return false
		}
	}
	return true
}
