package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"fovtutor/internal/config"
	"fovtutor/internal/fov/fovapi"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"token_type":   "bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/topics/t1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fovapi.TopicMetadata{
			Title:      "Fractions",
			Outline:    "intro to fractions",
			Objectives: []string{"add fractions"},
		})
	})
	mux.HandleFunc("/outline", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"outline": "unit 1\nunit 2"})
	})
	return httptest.NewServer(mux)
}

func TestAdapter_TopicMetadata_AuthenticatesAndDecodes(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	a := New(config.HTTPCurriculumConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
	})

	meta, err := a.TopicMetadata(context.Background(), fovapi.TopicRef{ID: "t1"})
	require.NoError(t, err)
	require.Equal(t, "Fractions", meta.Title)
	require.Equal(t, []string{"add fractions"}, meta.Objectives)
}

func TestAdapter_Outline(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	a := New(config.HTTPCurriculumConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
	})

	outline, err := a.Outline(context.Background())
	require.NoError(t, err)
	require.Equal(t, "unit 1\nunit 2", outline)
}

func TestAdapter_UnknownTopic_ReturnsError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()

	a := New(config.HTTPCurriculumConfig{
		BaseURL:      srv.URL,
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
	})

	_, err := a.TopicMetadata(context.Background(), fovapi.TopicRef{ID: "missing"})
	require.Error(t, err)
}
