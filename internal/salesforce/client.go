// Package salesforce is a minimal bearer-token REST client for the remote
// line-item store: client-credentials token exchange, SOQL queries, and the
// composite sObject collection endpoints for non-transactional batched
// create and update.
package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// AuthError reports a failed or denied client-credentials token exchange.
type AuthError struct {
	Status int
	Reason string
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("salesforce auth: %s (status %d)", e.Reason, e.Status)
	}
	return "salesforce auth: " + e.Reason
}

// Config holds connection settings and the remote field names this system
// writes. Field names default in internal/config; the client treats them as
// opaque.
type Config struct {
	InstanceURL  string
	ClientID     string
	ClientSecret string
	APIVersion   string

	// ObjectType is the sObject type line items are created as.
	ObjectType string

	// ParentField, ActiveField and RevisionField are the remote names of the
	// parent-id, active-flag and revision-number fields on ObjectType.
	ParentField   string
	ActiveField   string
	RevisionField string

	// DiscountField, when non-empty, names the field rescaled from fraction
	// to percentage immediately before transmission.
	DiscountField string

	// HTTPClient overrides http.DefaultClient, mainly for tests.
	HTTPClient *http.Client
}

// Client issues authenticated requests against one Salesforce instance.
// It is not safe for concurrent use; a synchronization run is single
// threaded by design.
type Client struct {
	cfg   Config
	http  *http.Client
	token string
}

// NewClient creates a Client. No network traffic happens until the first
// request; the token is fetched lazily and held for the client's lifetime.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, http: httpClient}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Err         string `json:"error"`
	ErrDesc     string `json:"error_description"`
}

// Authenticate performs the client-credentials exchange. A response without
// an access token fails with *AuthError.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.InstanceURL+"/services/oauth2/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read token response: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return &AuthError{Status: resp.StatusCode, Reason: "malformed token response"}
	}
	if tok.AccessToken == "" {
		reason := tok.ErrDesc
		if reason == "" {
			reason = tok.Err
		}
		if reason == "" {
			reason = "response contained no access token"
		}
		return &AuthError{Status: resp.StatusCode, Reason: reason}
	}

	c.token = tok.AccessToken
	return nil
}

func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" {
		return nil
	}
	return c.Authenticate(ctx)
}

func (c *Client) dataURL(path string) string {
	return fmt.Sprintf("%s/services/data/v%s%s", c.cfg.InstanceURL, c.cfg.APIVersion, path)
}

// do sends an authenticated JSON request and decodes the response into out.
// Transport-level and non-2xx failures abort the run; there is no retry.
func (c *Client) do(ctx context.Context, method, rawURL string, body, out any) error {
	if err := c.ensureToken(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{Status: resp.StatusCode, Reason: "request denied"}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s %s: status %d: %s", method, rawURL, resp.StatusCode, truncate(payload, 512))
	}

	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// QueryResult is the standard SOQL query envelope.
type QueryResult struct {
	TotalSize int              `json:"totalSize"`
	Done      bool             `json:"done"`
	Records   []map[string]any `json:"records"`
}

// Query runs a SOQL statement.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	u := c.dataURL("/query") + "?q=" + url.QueryEscape(soql)
	var result QueryResult
	if err := c.do(ctx, http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SaveResult is the per-record status of a composite create or update.
type SaveResult struct {
	ID      string      `json:"id"`
	Success bool        `json:"success"`
	Errors  []SaveError `json:"errors"`
}

// SaveError is one rejection reason on a failed record.
type SaveError struct {
	StatusCode string   `json:"statusCode"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields"`
}

// RecordFailure identifies a rejected record within a batch.
type RecordFailure struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// BatchResult summarizes one composite call. Individual failures never
// abort a run; callers surface them in the run summary.
type BatchResult struct {
	Attempted int             `json:"attempted"`
	Succeeded int             `json:"succeeded"`
	Failures  []RecordFailure `json:"failures,omitempty"`
}

func batchResult(results []SaveResult) BatchResult {
	out := BatchResult{Attempted: len(results)}
	for i, r := range results {
		if r.Success {
			out.Succeeded++
			continue
		}
		failure := RecordFailure{Index: i, ID: r.ID}
		if len(r.Errors) > 0 {
			failure.Code = r.Errors[0].StatusCode
			failure.Message = r.Errors[0].Message
		}
		out.Failures = append(out.Failures, failure)
	}
	return out
}

type compositeRequest struct {
	AllOrNone bool             `json:"allOrNone"`
	Records   []map[string]any `json:"records"`
}

// CreateRecords creates records of objectType via the composite sObject
// collection endpoint with allOrNone=false: the store applies each record
// independently and reports per-record status.
func (c *Client) CreateRecords(ctx context.Context, objectType string, records []map[string]any) (BatchResult, error) {
	if len(records) == 0 {
		return BatchResult{}, nil
	}

	tagged := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		body := make(map[string]any, len(rec)+1)
		for k, v := range rec {
			body[k] = v
		}
		body["attributes"] = map[string]any{"type": objectType}
		tagged = append(tagged, body)
	}

	var results []SaveResult
	err := c.do(ctx, http.MethodPost, c.dataURL("/composite/sobjects"),
		compositeRequest{Records: tagged}, &results)
	if err != nil {
		return BatchResult{}, err
	}
	return batchResult(results), nil
}

// UpdateRecords applies partial updates; each record must carry Id.
// Non-transactional, same per-record semantics as CreateRecords.
func (c *Client) UpdateRecords(ctx context.Context, objectType string, records []map[string]any) (BatchResult, error) {
	if len(records) == 0 {
		return BatchResult{}, nil
	}

	tagged := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		body := make(map[string]any, len(rec)+1)
		for k, v := range rec {
			body[k] = v
		}
		body["attributes"] = map[string]any{"type": objectType}
		tagged = append(tagged, body)
	}

	var results []SaveResult
	err := c.do(ctx, http.MethodPatch, c.dataURL("/composite/sobjects"),
		compositeRequest{Records: tagged}, &results)
	if err != nil {
		return BatchResult{}, err
	}
	return batchResult(results), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
