package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// Client talks to the service of record over REST. Bearer credentials come
// from an oauth2.TokenSource owned by the host's auth collaborator.
type Client struct {
	http   *resty.Client
	tokens oauth2.TokenSource
}

// ClientOpts holds construction parameters for a Client.
type ClientOpts struct {
	BaseURL string
	Tokens  oauth2.TokenSource
	Timeout time.Duration // per-request; defaults to 30s
}

// NewClient builds a remote API client.
func NewClient(opts ClientOpts) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("remote: base URL is required")
	}
	if opts.Tokens == nil {
		return nil, fmt.Errorf("remote: token source is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	hc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{http: hc, tokens: opts.Tokens}, nil
}

// Create pushes a new entity. The remote assigns and returns the remote
// identifier and version timestamp.
func (c *Client) Create(ctx context.Context, entityType string, payload any) (*PushResult, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var result PushResult
	resp, err := req.SetBody(payload).SetResult(&result).
		Post("/entities/" + entityType)
	if err != nil {
		return nil, fmt.Errorf("remote: create %s: %w", entityType, err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update pushes changed fields for an existing entity. baseVersion is the
// version timestamp of the last synced snapshot; if the remote has moved
// past it, Update returns a ConflictError carrying the current remote record.
func (c *Client) Update(ctx context.Context, entityType, remoteID string, payload any, baseVersion time.Time) (*PushResult, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var result PushResult
	resp, err := req.SetBody(payload).SetResult(&result).
		SetQueryParam("baseVersion", baseVersion.UTC().Format(time.RFC3339Nano)).
		Put("/entities/" + entityType + "/" + remoteID)
	if err != nil {
		return nil, fmt.Errorf("remote: update %s/%s: %w", entityType, remoteID, err)
	}
	if resp.StatusCode() == http.StatusConflict {
		var rec Record
		if uerr := unmarshalBody(resp, &rec); uerr != nil {
			return nil, fmt.Errorf("remote: update %s/%s: parse conflict body: %w", entityType, remoteID, uerr)
		}
		return nil, &ConflictError{Remote: rec}
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes an entity from the remote. A 404 is treated as success:
// the record is already gone, which is the state we wanted.
func (c *Client) Delete(ctx context.Context, entityType, remoteID string) error {
	req, err := c.request(ctx)
	if err != nil {
		return err
	}
	resp, err := req.Delete("/entities/" + entityType + "/" + remoteID)
	if err != nil {
		return fmt.Errorf("remote: delete %s/%s: %w", entityType, remoteID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil
	}
	return classify(resp)
}

// Pull fetches remote records of one type changed since the given cursor.
func (c *Client) Pull(ctx context.Context, entityType string, since time.Time) ([]Record, error) {
	req, err := c.request(ctx)
	if err != nil {
		return nil, err
	}
	var records []Record
	resp, err := req.SetResult(&records).
		SetQueryParam("since", since.UTC().Format(time.RFC3339Nano)).
		Get("/entities/" + entityType)
	if err != nil {
		return nil, fmt.Errorf("remote: pull %s: %w", entityType, err)
	}
	if err := classify(resp); err != nil {
		return nil, err
	}
	return records, nil
}

// request builds a resty request with a fresh bearer token.
func (c *Client) request(ctx context.Context) (*resty.Request, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("remote: fetch bearer token: %w", err)
	}
	return c.http.R().SetContext(ctx).SetAuthToken(tok.AccessToken), nil
}

// classify turns a non-2xx response into the error taxonomy: 4xx is a
// non-retryable RejectedError, everything else a plain (retryable) error.
func classify(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= 200 && code < 300 {
		return nil
	}

	var body apiError
	_ = unmarshalBody(resp, &body) // error body is best-effort
	if body.Err == "" {
		body.Err = http.StatusText(code)
	}

	if code >= 400 && code < 500 {
		return &RejectedError{
			Status:    code,
			Message:   body.Err,
			Details:   body.Details,
			RequestID: body.RequestID,
		}
	}
	return fmt.Errorf("remote: server error (%d): %s (request %s)", code, body.Err, body.RequestID)
}

// unmarshalBody decodes a raw response body.
func unmarshalBody(resp *resty.Response, v any) error {
	return json.Unmarshal(resp.Body(), v)
}

// IsRetryable reports whether a sync attempt that failed with err should be
// retried. Validation rejections and conflicts have their own handling;
// everything else (network failures, 5xx) is transient.
func IsRetryable(err error) bool {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return false
	}
	var conflict *ConflictError
	return !errors.As(err, &conflict)
}
