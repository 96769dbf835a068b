package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

var (
	ErrExaNotConfigured = errors.New("Exa API key is not configured")
	ErrSearchCanceled   = errors.New("search was canceled")
	ErrSearchTimeout    = errors.New("search timed out")
)

// ExaAPIError is a non-2xx answer from Exa.
type ExaAPIError struct {
	Status  int
	Message string
}

func (e *ExaAPIError) Error() string {
	return fmt.Sprintf("exa: status %d: %s", e.Status, e.Message)
}

// Doer sends one HTTP request. *fasthttp.Client implements it.
type Doer interface {
	DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error
}

// ExaAPI is the websets API used by controllers and workers.
type ExaAPI interface {
	CreateWebset(ctx context.Context, input CreateWebsetInput) (ExaWebset, error)
	ListWebsets(ctx context.Context, cursor string, limit int) (Page[ExaWebset], error)
	GetWebset(ctx context.Context, websetID string, expand []string) (ExaWebset, error)
	CreateSearch(ctx context.Context, websetID string, input CreateSearchInput) (ExaSearch, error)
	GetSearch(ctx context.Context, websetID, searchID string) (ExaSearch, error)
	ListItems(ctx context.Context, websetID, cursor string, limit int) (Page[ExaItem], error)
	CreateEnrichment(ctx context.Context, websetID string, input CreateEnrichmentInput) (json.RawMessage, error)
	RunSearchAndPoll(ctx context.Context, websetID string, input CreateSearchInput, progress func(SearchProgress)) ([]ExaItem, error)
}

const (
	DefaultExaBaseURL      = "https://api.exa.ai/websets/v0"
	defaultWebsetPageSize  = 50
	defaultItemPageSize    = 100
	defaultPollInterval    = 2 * time.Second
	defaultMaxPollAttempts = 30
	defaultRequestTimeout  = 30 * time.Second
)

type ExaOptions struct {
	APIKey          string
	BaseURL         string
	PollInterval    time.Duration
	MaxPollAttempts int
	RequestTimeout  time.Duration
	Client          Doer
	Logger          *logrus.Entry
}

// ExaClient talks to the Exa websets API over fasthttp.
type ExaClient struct {
	apiKey          string
	baseURL         string
	pollInterval    time.Duration
	maxPollAttempts int
	timeout         time.Duration
	client          Doer
	logger          *logrus.Entry
}

// NewExaClient builds a client. A missing API key is logged once here and
// every call then fails with ErrExaNotConfigured.
func NewExaClient(opts ExaOptions) *ExaClient {
	c := &ExaClient{
		apiKey:          opts.APIKey,
		baseURL:         opts.BaseURL,
		pollInterval:    opts.PollInterval,
		maxPollAttempts: opts.MaxPollAttempts,
		timeout:         opts.RequestTimeout,
		client:          opts.Client,
		logger:          opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultExaBaseURL
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.maxPollAttempts <= 0 {
		c.maxPollAttempts = defaultMaxPollAttempts
	}
	if c.timeout <= 0 {
		c.timeout = defaultRequestTimeout
	}
	if c.client == nil {
		c.client = &fasthttp.Client{Name: "prospectflow"}
	}
	if c.logger == nil {
		c.logger = ComponentLogger("exa")
	}
	if c.apiKey == "" {
		c.logger.Warn("EXA_API_KEY not configured - Exa integration will not work")
	}
	return c
}

// Configured reports whether an API key is set.
func (c *ExaClient) Configured() bool { return c.apiKey != "" }

func (c *ExaClient) CreateWebset(ctx context.Context, input CreateWebsetInput) (ExaWebset, error) {
	c.logger.WithField("title", input.Title).Info("Creating webset")
	var out ExaWebset
	err := c.do(ctx, fasthttp.MethodPost, "websets", nil, CreateWebsetInput{Title: input.Title}, &out)
	return out, err
}

func (c *ExaClient) ListWebsets(ctx context.Context, cursor string, limit int) (Page[ExaWebset], error) {
	if limit <= 0 {
		limit = defaultWebsetPageSize
	}
	raw, err := c.raw(ctx, fasthttp.MethodGet, "websets", pageArgs(cursor, limit), nil)
	if err != nil {
		return Page[ExaWebset]{}, err
	}
	return decodePage[ExaWebset](raw)
}

func (c *ExaClient) GetWebset(ctx context.Context, websetID string, expand []string) (ExaWebset, error) {
	args := &fasthttp.Args{}
	for _, e := range expand {
		args.Add("expand", e)
	}
	var out ExaWebset
	err := c.do(ctx, fasthttp.MethodGet, "websets/"+url.PathEscape(websetID), args, nil, &out)
	return out, err
}

func (c *ExaClient) CreateSearch(ctx context.Context, websetID string, input CreateSearchInput) (ExaSearch, error) {
	c.logger.WithField("webset_id", websetID).Info("Creating search")
	var out ExaSearch
	err := c.do(ctx, fasthttp.MethodPost, "websets/"+url.PathEscape(websetID)+"/searches", nil, input, &out)
	return out, err
}

func (c *ExaClient) GetSearch(ctx context.Context, websetID, searchID string) (ExaSearch, error) {
	var out ExaSearch
	err := c.do(ctx, fasthttp.MethodGet,
		"websets/"+url.PathEscape(websetID)+"/searches/"+url.PathEscape(searchID), nil, nil, &out)
	return out, err
}

func (c *ExaClient) ListItems(ctx context.Context, websetID, cursor string, limit int) (Page[ExaItem], error) {
	if limit <= 0 {
		limit = defaultItemPageSize
	}
	raw, err := c.raw(ctx, fasthttp.MethodGet, "websets/"+url.PathEscape(websetID)+"/items", pageArgs(cursor, limit), nil)
	if err != nil {
		return Page[ExaItem]{}, err
	}
	return decodePage[ExaItem](raw)
}

func (c *ExaClient) CreateEnrichment(ctx context.Context, websetID string, input CreateEnrichmentInput) (json.RawMessage, error) {
	c.logger.WithField("webset_id", websetID).Info("Creating enrichment")
	raw, err := c.raw(ctx, fasthttp.MethodPost, "websets/"+url.PathEscape(websetID)+"/enrichments", nil, input)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	return json.RawMessage(raw), nil
}

// RunSearchAndPoll creates a search, polls it until it leaves the
// created/running states and then returns every item of the webset.
// progress, when set, receives each progress report seen while polling.
func (c *ExaClient) RunSearchAndPoll(ctx context.Context, websetID string, input CreateSearchInput, progress func(SearchProgress)) ([]ExaItem, error) {
	search, err := c.CreateSearch(ctx, websetID, input)
	if err != nil {
		return nil, err
	}

	for attempts := 0; search.Pending() && attempts < c.maxPollAttempts; attempts++ {
		if err := sleepContext(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		search, err = c.GetSearch(ctx, websetID, search.ID)
		if err != nil {
			return nil, err
		}
		if search.Progress != nil && progress != nil {
			progress(*search.Progress)
		}
	}

	if search.Status == SearchCanceled {
		return nil, ErrSearchCanceled
	}
	if search.Pending() {
		return nil, fmt.Errorf("%w after %d attempts", ErrSearchTimeout, c.maxPollAttempts)
	}

	var items []ExaItem
	cursor := ""
	for {
		page, err := c.ListItems(ctx, websetID, cursor, defaultItemPageSize)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Data...)
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return items, nil
}

func (c *ExaClient) do(ctx context.Context, method, endpoint string, args *fasthttp.Args, body, out any) error {
	raw, err := c.raw(ctx, method, endpoint, args, body)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("exa: decode %s: %w", endpoint, err)
	}
	return nil
}

// raw sends the request and returns the response body. A 204 answer
// yields an empty body.
func (c *ExaClient) raw(ctx context.Context, method, endpoint string, args *fasthttp.Args, body any) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrExaNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := c.baseURL + "/" + endpoint
	if args != nil && args.Len() > 0 {
		uri += "?" + args.String()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("exa: encode %s: %w", endpoint, err)
		}
		req.SetBodyRaw(payload)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("exa: %s %s: %w", method, endpoint, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return nil, &ExaAPIError{Status: status, Message: errorMessage(status, resp.Body())}
	}
	if status == fasthttp.StatusNoContent {
		return nil, nil
	}
	return append([]byte(nil), resp.Body()...), nil
}

// errorMessage picks message, detail or error from a JSON error body, or
// falls back to the whole body.
func errorMessage(status int, body []byte) string {
	var parsed map[string]any
	if err := json.Unmarshal(body, &parsed); err != nil || parsed == nil {
		return fmt.Sprintf("Request failed with status %d: %s", status, fasthttp.StatusMessage(status))
	}
	for _, key := range []string{"message", "detail", "error"} {
		if v, ok := parsed[key]; ok && v != nil && v != "" {
			if s, ok := v.(string); ok {
				return s
			}
			encoded, _ := json.Marshal(v)
			return string(encoded)
		}
	}
	return string(body)
}

func pageArgs(cursor string, limit int) *fasthttp.Args {
	args := &fasthttp.Args{}
	if cursor != "" {
		args.Add("cursor", cursor)
	}
	args.Add("limit", strconv.Itoa(limit))
	return args
}

// decodePage accepts a bare array or a {data, hasMore, nextCursor} object.
// Anything else decodes to an empty page.
func decodePage[T any](raw []byte) (Page[T], error) {
	page := Page[T]{Data: []T{}}
	if len(raw) == 0 {
		return page, nil
	}

	var list []T
	if err := json.Unmarshal(raw, &list); err == nil {
		if list != nil {
			page.Data = list
		}
		return page, nil
	}

	var obj struct {
		Data       json.RawMessage `json:"data"`
		HasMore    bool            `json:"hasMore"`
		NextCursor string          `json:"nextCursor"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return page, fmt.Errorf("exa: decode page: %w", err)
	}
	if err := json.Unmarshal(obj.Data, &list); err != nil || list == nil {
		return page, nil
	}
	page.Data = list
	page.HasMore = obj.HasMore || obj.NextCursor != ""
	page.NextCursor = obj.NextCursor
	return page, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
