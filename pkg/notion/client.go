// Package notion is a typed client for the subset of the Notion REST API
// the discovery engine consumes: block children listing, page/database
// retrieval, database queries, and workspace-wide search. All calls take
// an explicit context and use the credentials the client was constructed
// with; nothing is read from process-wide state.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-hclog"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.notion.com"

	// DefaultAPIVersion is the Notion-Version header sent when the config
	// does not pin one.
	DefaultAPIVersion = "2022-06-28"

	// MaxPageSize is the largest page_size the API accepts.
	MaxPageSize = 100
)

// Config holds construction parameters for the client.
type Config struct {
	// BaseURL of the API. Defaults to DefaultBaseURL; override for tests
	// or proxies.
	BaseURL string

	// AuthToken is the integration's bearer token. Required.
	AuthToken string

	// APIVersion is sent as the Notion-Version header on every request.
	// Defaults to DefaultAPIVersion.
	APIVersion string

	// Timeout for each HTTP request. Defaults to 30 seconds.
	Timeout time.Duration

	// Retry enables the backoff wrapping policy for rate-limit and
	// server errors. Nil means every call is attempted exactly once.
	Retry *RetryConfig

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	// Logger is optional; a null logger is used when nil.
	Logger hclog.Logger
}

// Validate checks the config after defaults are applied.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(validHTTPURL)),
		validation.Field(&c.AuthToken, validation.Required),
		validation.Field(&c.APIVersion, validation.Required),
	)
}

func validHTTPURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme, got %q", u.Scheme)
	}
	return nil
}

// PageOptions carries the cursor parameters common to every paginated
// endpoint. The zero value requests the first page at the server default
// size.
type PageOptions struct {
	// StartCursor resumes a listing. Cursors are opaque and only valid
	// for the exact query that produced them.
	StartCursor string

	// PageSize caps the number of results per page, at most MaxPageSize.
	// Zero lets the server choose.
	PageSize int
}

// Validate rejects out-of-range page sizes before they hit the wire.
func (o PageOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.PageSize, validation.Min(0), validation.Max(MaxPageSize)),
	)
}

// SearchFilter narrows search results to one object type.
type SearchFilter struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// SearchSort orders search results. Passed through to the API verbatim.
type SearchSort struct {
	Direction string `json:"direction"`
	Timestamp string `json:"timestamp"`
}

// SearchQuery is the body of a search call, minus the cursor parameters.
// The engine forwards it unmodified; it imposes no query language of its
// own.
type SearchQuery struct {
	Query  string        `json:"query,omitempty"`
	Filter *SearchFilter `json:"filter,omitempty"`
	Sort   *SearchSort   `json:"sort,omitempty"`
}

// Client is the resource façade: one method per consumed endpoint, no
// pagination or traversal logic. The traverse package drives it.
type Client struct {
	baseURL    string
	token      string
	apiVersion string
	httpClient *http.Client
	retry      *RetryConfig
	logger     hclog.Logger
}

// NewClient applies defaults, validates the config, and returns a ready
// client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.AuthToken,
		apiVersion: cfg.APIVersion,
		httpClient: httpClient,
		retry:      cfg.Retry,
		logger:     cfg.Logger.Named("notion-client"),
	}, nil
}

// ListBlockChildren returns one page of the direct children of a block
// or page.
func (c *Client) ListBlockChildren(ctx context.Context, blockID string, opts PageOptions) (*List[Block], error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid page options: %w", err)
	}

	var out List[Block]
	path := fmt.Sprintf("/v1/blocks/%s/children", id)
	if err := c.do(ctx, http.MethodGet, path, opts.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrieveBlock fetches a single block by ID.
func (c *Client) RetrieveBlock(ctx context.Context, blockID string) (*Block, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, err
	}
	var out Block
	if err := c.do(ctx, http.MethodGet, "/v1/blocks/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrievePage fetches page metadata by ID.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Entity, error) {
	id, err := NormalizeID(pageID)
	if err != nil {
		return nil, err
	}
	var out Entity
	if err := c.do(ctx, http.MethodGet, "/v1/pages/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RetrieveDatabase fetches database metadata by ID.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Entity, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return nil, err
	}
	var out Entity
	if err := c.do(ctx, http.MethodGet, "/v1/databases/"+id, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryDatabase returns one page of a database's entries. The filter and
// sorts are raw API objects passed through verbatim.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, filter, sorts json.RawMessage, opts PageOptions) (*List[Entity], error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid page options: %w", err)
	}

	body := map[string]any{}
	if len(filter) > 0 {
		body["filter"] = filter
	}
	if len(sorts) > 0 {
		body["sorts"] = sorts
	}
	if opts.StartCursor != "" {
		body["start_cursor"] = opts.StartCursor
	}
	if opts.PageSize > 0 {
		body["page_size"] = opts.PageSize
	}

	var out List[Entity]
	if err := c.do(ctx, http.MethodPost, "/v1/databases/"+id+"/query", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search returns one page of the flat, permission-filtered listing of
// every page and database shared with the integration.
func (c *Client) Search(ctx context.Context, q SearchQuery, opts PageOptions) (*List[Entity], error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid page options: %w", err)
	}

	body := map[string]any{}
	if q.Query != "" {
		body["query"] = q.Query
	}
	if q.Filter != nil {
		body["filter"] = q.Filter
	}
	if q.Sort != nil {
		body["sort"] = q.Sort
	}
	if opts.StartCursor != "" {
		body["start_cursor"] = opts.StartCursor
	}
	if opts.PageSize > 0 {
		body["page_size"] = opts.PageSize
	}

	var out List[Entity]
	if err := c.do(ctx, http.MethodPost, "/v1/search", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (o PageOptions) values() url.Values {
	v := url.Values{}
	if o.StartCursor != "" {
		v.Set("start_cursor", o.StartCursor)
	}
	if o.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(o.PageSize))
	}
	return v
}

// do executes one API call, optionally under the retry policy. The body
// is marshalled per attempt so retries never reuse a drained reader.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, result any) error {
	if c.retry == nil {
		return c.execute(ctx, method, path, query, body, result)
	}
	return c.retry.run(ctx, c.logger, func() error {
		return c.execute(ctx, method, path, query, body, result)
	})
}

// execute performs exactly one attempt and maps any failure into the
// typed error taxonomy.
func (c *Client) execute(ctx context.Context, method, path string, query url.Values, body, result any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.apiVersion)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("api request", "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// newStatusError maps a non-2xx response into the taxonomy, pulling the
// machine-readable code and message from the error body when present.
func newStatusError(resp *http.Response, body []byte) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var parsed struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Code = parsed.Code
		apiErr.Message = parsed.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = string(body)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		apiErr.Kind = KindValidation
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		apiErr.Kind = KindAuth
	case resp.StatusCode == http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		apiErr.Kind = KindRateLimit
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
				apiErr.RetryAfter = time.Duration(secs * float64(time.Second))
			}
		}
	default:
		apiErr.Kind = KindUnknown
	}
	return apiErr
}
