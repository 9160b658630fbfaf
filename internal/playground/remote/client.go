// Package remote is the HTTP client for the BuggFix backend. It speaks
// the backend's JSON envelope ({"success": ..., "data": ...}) and carries
// the bearer token for authenticated calls.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"buggfix/internal/domain"
)

// ErrUnauthorized is returned when the backend rejects the token, or when
// an authenticated call is made without one.
var ErrUnauthorized = errors.New("not authenticated")

// TokenSource supplies the current access token. An empty string means
// no session.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource for a fixed token.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 90 * time.Second},
		tokens:  tokens,
	}
}

// envelope mirrors the backend's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
}

// Register creates an account and returns the fresh session.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.LoginResponse, error) {
	var login domain.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &login, false); err != nil {
		return nil, err
	}
	return &login, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	var login domain.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &login, false); err != nil {
		return nil, err
	}
	return &login, nil
}

// Profile fetches the authenticated user.
func (c *Client) Profile(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/users/profile", nil, &user, true); err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchWorkspaces lists the user's workspaces.
func (c *Client) FetchWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	var workspaces []domain.Workspace
	if err := c.do(ctx, http.MethodGet, "/api/workspaces", nil, &workspaces, true); err != nil {
		return nil, err
	}
	return workspaces, nil
}

// PushWorkspaces uploads the full folder tree, replacing the remote copy.
func (c *Client) PushWorkspaces(ctx context.Context, folders []domain.Folder) error {
	req := domain.SaveWorkspaceRequest{Folders: folders}
	return c.do(ctx, http.MethodPost, "/api/workspaces", req, nil, true)
}

// DeleteWorkspaces removes the user's remote data.
func (c *Client) DeleteWorkspaces(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/workspaces", nil, nil, true)
}

// FixCode asks the backend's AI proxy for a suggestion on code. The raw
// model response is returned for the caller to parse.
func (c *Client) FixCode(ctx context.Context, code string, language domain.Language) (string, error) {
	req := domain.FixCodeRequest{Code: code, Language: language}
	var resp domain.FixCodeResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/fix-code", req, &resp, true); err != nil {
		return "", err
	}
	return resp.Suggestions, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if authed {
		token := c.tokens.Token()
		if token == "" {
			return ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", ErrUnauthorized, env.Error)
	}
	if resp.StatusCode >= 400 || !env.Success {
		if env.Details != "" {
			return fmt.Errorf("%s: %s (%s)", path, env.Error, env.Details)
		}
		return fmt.Errorf("%s: %s", path, env.Error)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("invalid payload from %s: %w", path, err)
		}
	}
	return nil
}
