// Package guardian is a GraphQL client for an external guardian service that
// implements the magic-link mutations.
package guardian

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-admin-auth/internal/application/magiclink"
	"github.com/go-admin-auth/internal/domain"
	"github.com/go-admin-auth/internal/pkg/id"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	requestLoginLinkMutation = `mutation RequestLoginLink($input: RequestLoginLinkInput!) {
  requestLoginLink(input: $input) { magicCodeSent userId method magicAuthFormat }
}`
	verifyMagicCodeMutation = `mutation VerifyMagicCode($input: VerifyMagicCodeInput!) {
  verifyMagicCode(input: $input) { token sessionToken userId expiresAt }
}`
)

// NetworkError means the guardian could not be reached or answered with a
// non-2xx status. Its message is meant to be shown to the user as is.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "network error: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err came from the transport rather than from
// the guardian rejecting the request.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

type Client struct {
	endpoint string
	http     *http.Client
}

var _ magiclink.Guardian = (*Client)(nil)

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

func (c *Client) RequestLoginLink(ctx context.Context, req magiclink.LinkRequest) (*magiclink.LinkResult, error) {
	var out struct {
		RequestLoginLink *magiclink.LinkResult `json:"requestLoginLink"`
	}
	if err := c.do(ctx, requestLoginLinkMutation, req, &out); err != nil {
		return nil, err
	}
	if out.RequestLoginLink == nil {
		return nil, fmt.Errorf("guardian returned no result: %w", domain.ErrUnauthorized)
	}
	return out.RequestLoginLink, nil
}

func (c *Client) SubmitMagicCode(ctx context.Context, sub magiclink.CodeSubmission) (*magiclink.LoginResult, error) {
	var out struct {
		VerifyMagicCode *magiclink.LoginResult `json:"verifyMagicCode"`
	}
	if err := c.do(ctx, verifyMagicCodeMutation, sub, &out); err != nil {
		return nil, err
	}
	if out.VerifyMagicCode == nil || out.VerifyMagicCode.Token == "" {
		return nil, fmt.Errorf("guardian returned no token: %w", domain.ErrUnauthorized)
	}
	return out.VerifyMagicCode, nil
}

// do posts a mutation with input as $input. GraphQL errors are reported as
// domain.ErrUnauthorized, transport failures as *NetworkError.
func (c *Client) do(ctx context.Context, query string, input any, dst any) error {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: map[string]any{"input": input}})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", id.New())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &NetworkError{Err: fmt.Errorf("guardian responded %s", resp.Status)}
	}

	var gr gqlResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return &NetworkError{Err: fmt.Errorf("decode guardian response: %w", err)}
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, len(gr.Errors))
		for i, e := range gr.Errors {
			msgs[i] = e.Message
		}
		return fmt.Errorf("guardian: %s: %w", strings.Join(msgs, "; "), domain.ErrUnauthorized)
	}
	if len(gr.Data) == 0 {
		return fmt.Errorf("guardian returned no data: %w", domain.ErrUnauthorized)
	}
	return json.Unmarshal(gr.Data, dst)
}
