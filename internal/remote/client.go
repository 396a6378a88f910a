package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// Table is the per-user row table shared with the web app.
const Table = "trading_pal_data"

// Client implements Backend against a Supabase-compatible project.
//
// The client itself never touches disk; session persistence is the
// caller's concern (Token and RestoreSession exist for it).
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *log.Logger

	mu          sync.Mutex
	accessToken string
	userID      string
}

// NewClient creates a backend client for the project at baseURL using the
// public anon key. If logger is nil, a default logger writing to stderr is
// used.
func NewClient(baseURL, anonKey string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL: missing http(s) scheme")
	}
	if anonKey == "" {
		return nil, fmt.Errorf("missing API key")
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{},
		logger:  logger,
	}, nil
}

// authResponse is the shape of /auth/v1 token and signup responses.
type authResponse struct {
	AccessToken string `json:"access_token"`
	User        *struct {
		ID string `json:"id"`
	} `json:"user"`
	// Error fields vary by endpoint version; collect the common ones.
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (r *authResponse) errMessage() string {
	for _, m := range []string{r.ErrorDescription, r.Msg, r.Message, r.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

// SignIn implements Backend.SignIn.
func (c *Client) SignIn(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.postJSON(ctx, "/auth/v1/token?grant_type=password", body, &resp); err != nil {
		return "", fmt.Errorf("sign-in failed: %w", err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		if m := resp.errMessage(); m != "" {
			return "", fmt.Errorf("sign-in failed: %s", m)
		}
		return "", fmt.Errorf("sign-in failed: no session in response")
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.userID = resp.User.ID
	c.mu.Unlock()

	c.logger.Printf("Signed in as %s", resp.User.ID)
	return resp.User.ID, nil
}

// SignUp implements Backend.SignUp.
func (c *Client) SignUp(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := c.postJSON(ctx, "/auth/v1/signup", body, &resp); err != nil {
		return "", fmt.Errorf("sign-up failed: %w", err)
	}

	// Projects requiring email confirmation return the user without a
	// session token.
	if resp.AccessToken == "" {
		if resp.User != nil {
			return "", ErrConfirmationRequired
		}
		if m := resp.errMessage(); m != "" {
			return "", fmt.Errorf("sign-up failed: %s", m)
		}
		return "", fmt.Errorf("sign-up failed: empty response")
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.userID = resp.User.ID
	c.mu.Unlock()

	c.logger.Printf("Signed up as %s", resp.User.ID)
	return resp.User.ID, nil
}

// SignOut implements Backend.SignOut.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	token := c.accessToken
	c.accessToken = ""
	c.userID = ""
	c.mu.Unlock()

	if token == "" {
		return nil
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sign-out failed: %w", err)
	}
	defer resp.Body.Close()
	// The local session is gone either way; a non-2xx here is not fatal.
	if resp.StatusCode >= 300 {
		c.logger.Printf("Sign-out returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Session implements Backend.Session.
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Token returns the current access token, or "" when signed out. Used to
// persist the session across CLI invocations, the way the web app's auth
// client persists it across page loads.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// RestoreSession installs a previously issued session. An expired token
// surfaces as an auth error on the next backend call; the caller then
// signs in again.
func (c *Client) RestoreSession(userID, accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.accessToken = accessToken
}

// row is the PostgREST row shape for Table.
type row struct {
	UserID    string          `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

// UpsertRecord implements Backend.UpsertRecord.
func (c *Client) UpsertRecord(ctx context.Context, userID string, env *Envelope) error {
	if c.Session() == "" {
		return ErrNotSignedIn
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	payload := []row{{
		UserID:    userID,
		Data:      data,
		UpdatedAt: env.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode upsert: %w", err)
	}

	path := "/rest/v1/" + Table + "?on_conflict=user_id"
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates,return=minimal")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push failed: %s", httpError(resp))
	}
	return nil
}

// SelectRecord implements Backend.SelectRecord.
func (c *Client) SelectRecord(ctx context.Context, userID string) (*Envelope, error) {
	if c.Session() == "" {
		return nil, ErrNotSignedIn
	}

	path := "/rest/v1/" + Table + "?select=data,updated_at&user_id=eq." + url.QueryEscape(userID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pull failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pull failed: %s", httpError(resp))
	}

	var rows []row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("pull failed: %w", err)
	}
	if len(rows) == 0 || len(rows[0].Data) == 0 {
		return nil, ErrNoRecord
	}
	return DecodeEnvelope(rows[0].Data)
}

// newRequest builds a request with the project API key attached.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	return req, nil
}

// authorize attaches the session bearer token when present.
func (c *Client) authorize(req *http.Request) {
	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// postJSON posts a JSON body and decodes the JSON response. HTTP error
// statuses are reported with the server's message when one is present.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var ar authResponse
		if json.Unmarshal(raw, &ar) == nil {
			if m := ar.errMessage(); m != "" {
				return fmt.Errorf("%s", m)
			}
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// httpError summarizes an error response body for status reporting.
func httpError(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var ar authResponse
	if json.Unmarshal(raw, &ar) == nil {
		if m := ar.errMessage(); m != "" {
			return m
		}
	}
	return fmt.Sprintf("HTTP %d", resp.StatusCode)
}
