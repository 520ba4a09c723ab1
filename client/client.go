// Package client speaks to the backend's metadata, CRUD and search
// endpoints. It owns the session-long metadata cache, treats a 404 on record
// fetch as "no record yet", and surfaces server-side validation as the same
// field-keyed error shape the local validator produces.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	metaform "github.com/eventara/metaform"
	"github.com/eventara/metaform/meta"
	"github.com/eventara/metaform/table"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Client is a thin JSON HTTP client. No explicit request timeout is enforced
// here; that is left to the injected http.Client.
type Client struct {
	base  string
	http  *http.Client
	token string
	log   zerolog.Logger

	metaMu    sync.Mutex
	metaCache map[string]meta.EntityMetadata
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token attached to every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger installs a structured logger; default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New builds a client rooted at the backend base URL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:      strings.TrimRight(baseURL, "/"),
		http:      http.DefaultClient,
		log:       zerolog.Nop(),
		metaCache: map[string]meta.EntityMetadata{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ServerError is a non-2xx response. Fields carries any per-field validation
// messages the server returned, in the same shape as local validation.
type ServerError struct {
	Status  int
	Message string
	Fields  metaform.FieldErrors
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d", e.Status)
}

// parseServerError extracts the best available message and any field-keyed
// error object from a failure body.
func parseServerError(status int, body string) *ServerError {
	se := &ServerError{Status: status, Fields: metaform.FieldErrors{}}
	parsed := gjson.Parse(body)
	for _, key := range []string{"message", "error", "detail"} {
		if msg := parsed.Get(key); msg.Type == gjson.String && msg.String() != "" {
			se.Message = msg.String()
			break
		}
	}
	for _, key := range []string{"errors", "fieldErrors"} {
		parsed.Get(key).ForEach(func(field, msg gjson.Result) bool {
			se.Fields.Add(field.String(), msg.String())
			return true
		})
	}
	return se
}

// do executes one JSON request and returns the status and body. Transport
// failures are returned as-is; HTTP failures are the caller's to interpret.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (int, string, error) {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var body io.Reader
	if payload != nil {
		bts, err := json.Marshal(payload)
		if err != nil {
			return 0, "", fmt.Errorf("encode payload: %w", err)
		}
		body = bytes.NewReader(bts)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.log.Debug().Str("method", method).Str("url", target).Msg("request")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	bts, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(bts), nil
}

// Metadata fetches (and caches for the session) one entity's metadata.
func (c *Client) Metadata(ctx context.Context, entity string) (meta.EntityMetadata, error) {
	c.metaMu.Lock()
	cached, ok := c.metaCache[entity]
	c.metaMu.Unlock()
	if ok {
		return cached, nil
	}
	status, body, err := c.do(ctx, http.MethodGet, "/metadata/"+url.PathEscape(entity), nil, nil)
	if err != nil {
		return meta.EntityMetadata{}, err
	}
	if status != http.StatusOK {
		return meta.EntityMetadata{}, parseServerError(status, body)
	}
	em, err := meta.Parse(body)
	if err != nil {
		return meta.EntityMetadata{}, err
	}
	c.metaMu.Lock()
	c.metaCache[entity] = em
	c.metaMu.Unlock()
	return em, nil
}

// Fetch loads one record. A 404 is not an error: it reports found=false so
// the form silently falls back to create mode.
func (c *Client) Fetch(ctx context.Context, endpoint string, id any) (metaform.Record, bool, error) {
	status, body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/%v", endpoint, id), nil, nil)
	if err != nil {
		return nil, false, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, false, nil
	case status != http.StatusOK:
		return nil, false, parseServerError(status, body)
	default:
		return metaform.FromJSON(body), true, nil
	}
}

// List fetches one page of an entity listing.
func (c *Client) List(ctx context.Context, endpoint string, pr table.PageRequest, filters table.FilterState) (table.Page, error) {
	status, body, err := c.do(ctx, http.MethodGet, endpoint, table.BuildQuery(pr, filters), nil)
	if err != nil {
		return table.Page{}, err
	}
	if status != http.StatusOK {
		return table.Page{}, parseServerError(status, body)
	}
	return table.ParseList(body), nil
}

// Create posts a shaped payload and returns the server's authoritative copy.
func (c *Client) Create(ctx context.Context, endpoint string, payload metaform.Record) (metaform.Record, error) {
	status, body, err := c.do(ctx, http.MethodPost, endpoint, nil, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, parseServerError(status, body)
	}
	return metaform.FromJSON(body), nil
}

// Update puts a shaped payload over an existing record.
func (c *Client) Update(ctx context.Context, endpoint string, id any, payload metaform.Record) (metaform.Record, error) {
	status, body, err := c.do(ctx, http.MethodPut, fmt.Sprintf("%s/%v", endpoint, id), nil, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseServerError(status, body)
	}
	return metaform.FromJSON(body), nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, endpoint string, id any) error {
	status, body, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("%s/%v", endpoint, id), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent {
		return parseServerError(status, body)
	}
	return nil
}

// Search runs the typeahead query of a relationship endpoint.
func (c *Client) Search(ctx context.Context, endpoint, term string) ([]metaform.Record, error) {
	q := url.Values{}
	q.Set("search", term)
	q.Set("page", "0")
	q.Set("size", "20")
	status, body, err := c.do(ctx, http.MethodGet, endpoint, q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseServerError(status, body)
	}
	return table.ParseList(body).Items, nil
}

// City is one city-lookup result: name and state are displayed as a pair.
type City struct {
	ID    any
	Name  string
	State string
}

// SearchCities queries the city lookup service.
func (c *Client) SearchCities(ctx context.Context, term string) ([]City, error) {
	q := url.Values{}
	q.Set("q", term)
	status, body, err := c.do(ctx, http.MethodGet, "/cities/search", q, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, parseServerError(status, body)
	}
	var cities []City
	gjson.Parse(body).ForEach(func(_, item gjson.Result) bool {
		cities = append(cities, City{
			ID:    item.Get("id").Value(),
			Name:  item.Get("name").String(),
			State: item.Get("state").String(),
		})
		return true
	})
	return cities, nil
}

// Searcher adapts a relationship endpoint into a table.SearchFunc for the
// typeahead engine.
func (c *Client) Searcher(endpoint string) table.SearchFunc {
	return func(ctx context.Context, term string) ([]metaform.Record, error) {
		return c.Search(ctx, endpoint, term)
	}
}
