// Package backend is the HTTP client of the payment-options and reporting backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
	"github.com/trezcool/masomo-admin/core/report"
)

const maxErrorBody = 4 << 10

// APIError is a non-2xx answer of the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("backend: %d %s", err.StatusCode, err.Message)
}

// IsAPIError unwraps `err` into an *APIError if possible.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  core.Logger
}

var (
	_ paymentplan.Repository = (*Client)(nil)
	_ report.Source          = (*Client)(nil)
)

func NewClient(conf *core.Config, logger core.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.Backend.BaseURL, "/"),
		token:   conf.Backend.Token,
		http:    &http.Client{Timeout: conf.Backend.Timeout},
		logger:  logger,
	}
}

type tokenKey struct{}

// ContextWithToken makes the requests sent with `ctx` authenticate as the bearer of `token`
// instead of the configured service token.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func (c *Client) tokenFor(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey{}).(string); ok && token != "" {
		return token
	}
	return c.token
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func instituteURL(instituteID string, parts ...string) string {
	segs := append([]string{"institutes", url.PathEscape(instituteID)}, parts...)
	return "/" + strings.Join(segs, "/")
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, payload interface{}) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "encoding payload")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return nil, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokenFor(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends the request and returns the raw body of a successful answer.
func (c *Client) do(req *http.Request) ([]byte, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return nil, errors.Wrapf(newAPIError(res), "%s %s", req.Method, req.URL.Path)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}
	c.logger.Debug(fmt.Sprintf("backend: %s %s %d", req.Method, req.URL.Path, res.StatusCode))
	return body, nil
}

func newAPIError(res *http.Response) *APIError {
	apiErr := &APIError{StatusCode: res.StatusCode, Message: http.StatusText(res.StatusCode)}
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))

	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, m := range []string{body.Error, body.Message, body.Detail} {
			if m != "" {
				apiErr.Message = m
				break
			}
		}
	} else if s := strings.TrimSpace(string(raw)); s != "" {
		apiErr.Message = s
	}
	return apiErr
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	return errors.Wrap(json.Unmarshal(body, dest), "decoding response")
}

// notFound maps a backend 404 to `target`.
func notFound(err, target error) error {
	if apiErr, ok := IsAPIError(err); ok && apiErr.StatusCode == http.StatusNotFound {
		return target
	}
	return err
}
