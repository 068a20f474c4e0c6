package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
	"github.com/nbd-wtf/go-nostr"
)

const maxErrorBody = 64 << 10

// Client talks to the admin backend over HTTP
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a backend client rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type authRequest struct {
	Event nostr.Event `json:"event"`
}

type sessionResponse struct {
	Admin core.Admin `json:"admin"`
}

// VerifyAuth submits a signed challenge to POST /admin/auth
func (c *Client) VerifyAuth(ctx context.Context, signed nostr.Event) (*core.AuthResult, error) {
	var result core.AuthResult
	if err := c.do(ctx, http.MethodPost, "/admin/auth", "", authRequest{Event: signed}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateSession checks token against GET /admin/session
func (c *Client) ValidateSession(ctx context.Context, token string) (*core.Admin, error) {
	var resp sessionResponse
	if err := c.do(ctx, http.MethodGet, "/admin/session", token, nil, &resp); err != nil {
		return nil, unauthenticated(err)
	}
	return &resp.Admin, nil
}

// InstanceStatus queries GET /instance/status
func (c *Client) InstanceStatus(ctx context.Context) (*core.InstanceStatus, error) {
	var status core.InstanceStatus
	if err := c.do(ctx, http.MethodGet, "/instance/status", "", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// FetchRows loads one page of an admin table
func (c *Client) FetchRows(ctx context.Context, token, table string, page, pageSize int) (*core.RowPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))
	path := "/admin/tables/" + url.PathEscape(table) + "?" + q.Encode()

	var rows core.RowPage
	if err := c.do(ctx, http.MethodGet, path, token, nil, &rows); err != nil {
		return nil, unauthenticated(err)
	}
	return &rows, nil
}

// InsertRow stores a row, encrypting the protected fields server-side
func (c *Client) InsertRow(ctx context.Context, token, table string, values map[string]string, protected []string) error {
	body := map[string]any{"values": values, "protected": protected}
	if err := c.do(ctx, http.MethodPost, "/admin/tables/"+url.PathEscape(table)+"/rows", token, body, nil); err != nil {
		return unauthenticated(err)
	}
	return nil
}

// Logout revokes token on the backend
func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodPost, "/admin/logout", token, nil, nil); err != nil {
		return unauthenticated(err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("failed to reach backend: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readAPIError extracts {"detail": ...} from an error response. A detail
// that is not a string is kept as raw JSON.
func readAPIError(resp *http.Response) *core.APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &core.APIError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Detail) == 0 {
		apiErr.Detail = strings.TrimSpace(string(raw))
		return apiErr
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = detail
	} else {
		apiErr.Detail = string(payload.Detail)
	}
	return apiErr
}

// unauthenticated marks 401/403 responses as definitive session rejections
func unauthenticated(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: %w", core.ErrSessionUnauthenticated, apiErr)
	}
	return err
}

var (
	_ ports.AuthBackend    = (*Client)(nil)
	_ ports.SessionBackend = (*Client)(nil)
	_ ports.StatusBackend  = (*Client)(nil)
	_ ports.RowsBackend    = (*Client)(nil)
)
