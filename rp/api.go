package rp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Status classifies a Result.
type Status string

const (
	StatusSuccess      Status = "success"
	StatusSuccessEmpty Status = "success_empty"
	StatusError        Status = "error"
)

// Result is the outcome of an API call. Non-2xx responses are results with
// StatusError, not Go errors, so callers render every outcome the same way.
type Result struct {
	Status      Status
	HTTPStatus  int
	Code        string
	Description string
	Body        json.RawMessage
}

// Decode unmarshals a successful body into v.
func (r Result) Decode(v any) error {
	if r.Status != StatusSuccess {
		return errors.Errorf("[Result.Decode] no body to decode, status %s", r.Status)
	}
	return json.Unmarshal(r.Body, v)
}

// Do sends req with the stored access token. On a 401 it waits for a single
// shared refresh and retries once. When the server rejects the refresh token
// the stored tokens are cleared and ErrLoginRequired is returned.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	bundle, err := c.Token()
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, req, bundle.AccessToken)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	bundle, err = c.refreshShared(ctx, bundle.AccessToken)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, req, bundle.AccessToken)
}

func (c *Client) send(ctx context.Context, req *http.Request, accessToken string) (*http.Response, error) {
	out := req.Clone(ctx)
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, errors.Wrap(err, "[Client.send] rewinding body")
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+accessToken)
	return c.httpClient.Do(out)
}

// Get calls path on the API and classifies the response.
func (c *Client) Get(ctx context.Context, path string) (Result, error) {
	return c.call(ctx, http.MethodGet, path, nil)
}

// Post sends payload as JSON to path on the API and classifies the response.
func (c *Client) Post(ctx context.Context, path string, payload any) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Client.Post] encoding payload")
	}
	return c.call(ctx, http.MethodPost, path, body)
}

func (c *Client) call(ctx context.Context, method, path string, body []byte) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), bytes.NewReader(body))
	if err != nil {
		return Result{}, errors.Wrap(err, "[Client.call] building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, errors.Wrap(err, "[Client.call] reading body")
	}
	return classify(resp.StatusCode, data), nil
}

func classify(status int, body []byte) Result {
	r := Result{HTTPStatus: status}
	switch {
	case status >= 200 && status < 300 && len(bytes.TrimSpace(body)) == 0:
		r.Status = StatusSuccessEmpty
	case status >= 200 && status < 300:
		r.Status = StatusSuccess
		r.Body = body
	default:
		r.Status = StatusError
		r.Code, r.Description = errorBody(status, body)
	}
	return r
}

func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.apiBase + "/" + strings.TrimPrefix(path, "/")
}
