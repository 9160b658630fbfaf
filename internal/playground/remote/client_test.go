package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buggfix/internal/domain"
	"buggfix/pkg/response"
)

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/auth/login", r.URL.Path)

		var req domain.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "kai@example.com", req.Email)

		response.Success(w, domain.LoginResponse{
			User:        &domain.User{ID: "u1", Email: req.Email, DisplayName: "Kai"},
			AccessToken: "tok-123",
			ExpiresIn:   900,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, StaticToken(""))
	login, err := client.Login(context.Background(), domain.LoginRequest{
		Email:    "kai@example.com",
		Password: "password123",
	})

	require.NoError(t, err)
	assert.Equal(t, "tok-123", login.AccessToken)
	assert.Equal(t, "Kai", login.User.DisplayName)
}

func TestLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Unauthorized(w, "invalid email or password")
	}))
	defer server.Close()

	client := NewClient(server.URL, StaticToken(""))
	_, err := client.Login(context.Background(), domain.LoginRequest{Email: "a@b.c", Password: "nope1234"})

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestFetchWorkspaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		response.Success(w, []domain.Workspace{
			{ID: "w1", Folders: []domain.Folder{{ID: "f1", Title: "Algorithms"}}},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, StaticToken("tok-123"))
	workspaces, err := client.FetchWorkspaces(context.Background())

	require.NoError(t, err)
	require.Len(t, workspaces, 1)
	assert.Equal(t, "Algorithms", workspaces[0].Folders[0].Title)
}

func TestFetchWorkspacesWithoutToken(t *testing.T) {
	client := NewClient("http://localhost:1", StaticToken(""))

	_, err := client.FetchWorkspaces(context.Background())

	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPushWorkspaces(t *testing.T) {
	var got domain.SaveWorkspaceRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/workspaces", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		response.JSON(w, http.StatusCreated, domain.Workspace{ID: "w1", Folders: got.Folders})
	}))
	defer server.Close()

	client := NewClient(server.URL, StaticToken("tok-123"))
	err := client.PushWorkspaces(context.Background(), []domain.Folder{{ID: "f1", Title: "Scratch"}})

	require.NoError(t, err)
	require.Len(t, got.Folders, 1)
	assert.Equal(t, "Scratch", got.Folders[0].Title)
}

func TestFixCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req domain.FixCodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, domain.LanguagePython, req.Language)
		response.Success(w, domain.FixCodeResponse{Suggestions: "<AI_CODE>fixed()</AI_CODE>"})
	}))
	defer server.Close()

	client := NewClient(server.URL, StaticToken("tok-123"))
	suggestions, err := client.FixCode(context.Background(), "broken()", domain.LanguagePython)

	require.NoError(t, err)
	assert.Equal(t, "<AI_CODE>fixed()</AI_CODE>", suggestions)
}

func TestFixCodeUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.ErrorWithDetails(w, http.StatusBadGateway,
			"AI completion request failed", "connection refused")
	}))
	defer server.Close()

	client := NewClient(server.URL, StaticToken("tok-123"))
	_, err := client.FixCode(context.Background(), "broken()", domain.LanguagePython)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI completion request failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestDeleteWorkspaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		response.Success(w, map[string]string{"message": "workspace removed"})
	}))
	defer server.Close()

	client := NewClient(server.URL, StaticToken("tok-123"))

	assert.NoError(t, client.DeleteWorkspaces(context.Background()))
}
