package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiershare/hiershare/internal/models"
)

func demoKey() models.ResourceKey {
	return models.ResourceKey{Service: "payments", Type: "database", Org: "acme", Name: "ledger"}
}

func TestBackendClientHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(models.HealthResponse{Status: models.HealthStatusHealthy})
	}))
	defer server.Close()

	c := NewBackendClient(server.URL)
	health, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.HealthStatusHealthy, health.Status)
}

func TestBackendClientResourcePathAndHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/resource/payments/database/acme/ledger", r.URL.Path)
		assert.Equal(t, "alice", r.Header.Get(UserHeader))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"Resource created successfully"}`))
	}))
	defer server.Close()

	c := NewBackendClient(server.URL)
	resp, err := c.CreateResource(context.Background(), "alice", demoKey(), map[string]any{"tier": "gold"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode())
}

func TestBackendClientOmitsEmptyUserHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header[http.CanonicalHeaderKey(UserHeader)]
		assert.False(t, present)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewBackendClient(server.URL)
	resp, err := c.GetResource(context.Background(), "", demoKey())
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode())
}

func TestBackendClientListResources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/resources", r.URL.Path)
		assert.Equal(t, "editor", r.URL.Query().Get("relation"))
		assert.Equal(t, "service", r.URL.Query().Get("object_type"))
		json.NewEncoder(w).Encode(models.ListResponse{
			Objects:    []string{"service:payments"},
			TotalCount: 1,
			ObjectType: "service",
			Relation:   "editor",
		})
	}))
	defer server.Close()

	c := NewBackendClient(server.URL)
	list, err := c.ListResources(context.Background(), "alice", "editor", "service")
	require.NoError(t, err)
	assert.Equal(t, 1, list.TotalCount)
	assert.Equal(t, []string{"service:payments"}, list.Objects)
}

func TestBackendClientShare(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/share", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var grant models.Grant
		require.NoError(t, json.NewDecoder(r.Body).Decode(&grant))
		assert.Equal(t, "user:bob", grant.Subject)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"granted"}`))
	}))
	defer server.Close()

	c := NewBackendClient(server.URL)
	resp, err := c.Share(context.Background(), "alice", models.Grant{
		Subject:  "user:bob",
		Relation: "viewer",
		Object:   "resource:payments/database/acme/ledger",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}
