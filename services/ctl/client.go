// Package ctl is the HTTP client library behind the sbomdctl command.
package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sbomd/pkg/paging"
	"sbomd/services/generations"
)

// Client talks to the REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the given API base URL.
func NewClient(baseURL string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// apiError is the error body returned by the service.
type apiError struct {
	Message string `json:"error"`
	ErrorID string `json:"errorId"`
}

func (e *apiError) Error() string {
	if e.ErrorID != "" {
		return fmt.Sprintf("%s (error id %s)", e.Message, e.ErrorID)
	}
	return e.Message
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, dest any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
			return &apiErr
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if dest == nil {
		return nil
	}
	if raw, ok := dest.(*[]byte); ok {
		*raw = data
		return nil
	}
	return json.Unmarshal(data, dest)
}

// Generate submits a generation request of the given kind. The config may be
// nil for kinds identified by the path alone.
func (c *Client) Generate(ctx context.Context, kind, identifier string, config []byte) (generations.GenerationRequest, error) {
	var path string
	switch kind {
	case "build":
		path = "/api/v1alpha3/sboms/generate/build/" + url.PathEscape(identifier)
	case "operation":
		path = "/api/v1alpha3/sboms/generate/operation/" + url.PathEscape(identifier)
	case "analysis":
		path = "/api/v1alpha3/sboms/generate/analysis"
	case "image":
		path = "/api/v1alpha3/sboms/generate/image"
	case "rpm":
		path = "/api/v1alpha3/sboms/generate/rpm/" + url.PathEscape(identifier)
	default:
		return generations.GenerationRequest{}, fmt.Errorf("unknown generation kind %q", kind)
	}

	var req generations.GenerationRequest
	err := c.do(ctx, http.MethodPost, path, config, &req)
	return req, err
}

// ListOptions narrow and page list calls.
type ListOptions struct {
	Query     string
	Sort      string
	PageIndex int
	PageSize  int
}

func (o ListOptions) values() url.Values {
	v := url.Values{}
	if o.Query != "" {
		v.Set("query", o.Query)
	}
	if o.Sort != "" {
		v.Set("sort", o.Sort)
	}
	if o.PageIndex > 0 {
		v.Set("pageIndex", strconv.Itoa(o.PageIndex))
	}
	if o.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(o.PageSize))
	}
	return v
}

// ListRequests pages through generation requests.
func (c *Client) ListRequests(ctx context.Context, opts ListOptions) (paging.Page[generations.GenerationRequest], error) {
	var page paging.Page[generations.GenerationRequest]
	path := "/api/v1alpha3/sboms/requests"
	if query := opts.values().Encode(); query != "" {
		path += "?" + query
	}
	err := c.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

// GetRequest fetches one generation request.
func (c *Client) GetRequest(ctx context.Context, id string) (generations.GenerationRequest, error) {
	var req generations.GenerationRequest
	err := c.do(ctx, http.MethodGet, "/api/v1alpha3/sboms/requests/"+url.PathEscape(id), nil, &req)
	return req, err
}

// ListSboms pages through stored manifests.
func (c *Client) ListSboms(ctx context.Context, opts ListOptions) (paging.Page[generations.Sbom], error) {
	var page paging.Page[generations.Sbom]
	path := "/api/v1alpha3/sboms"
	if query := opts.values().Encode(); query != "" {
		path += "?" + query
	}
	err := c.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

// GetSbom fetches one manifest record.
func (c *Client) GetSbom(ctx context.Context, id string) (generations.Sbom, error) {
	var sbom generations.Sbom
	err := c.do(ctx, http.MethodGet, "/api/v1alpha3/sboms/"+url.PathEscape(id), nil, &sbom)
	return sbom, err
}

// GetBom fetches the raw CycloneDX document of a manifest.
func (c *Client) GetBom(ctx context.Context, id string) ([]byte, error) {
	var raw []byte
	err := c.do(ctx, http.MethodGet, "/api/v1alpha3/sboms/"+url.PathEscape(id)+"/bom", nil, &raw)
	return raw, err
}
