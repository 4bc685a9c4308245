package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiershare/hiershare/internal/config"
	"github.com/hiershare/hiershare/internal/models"
	"github.com/hiershare/hiershare/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubAuthorizer is an in-memory Authorizer for handler tests. Permissions
// are keyed "user relation object"; anything not listed is denied.
type stubAuthorizer struct {
	allowed map[string]bool
	objects map[string][]string // keyed "user relation objectType"
	err     error

	granted []models.Grant
	revoked []models.Grant
	removed []models.ObjectRef
}

func newStubAuthorizer() *stubAuthorizer {
	return &stubAuthorizer{
		allowed: make(map[string]bool),
		objects: make(map[string][]string),
	}
}

func (a *stubAuthorizer) permit(userID, relation string, object models.ObjectRef) {
	a.allowed[fmt.Sprintf("%s %s %s", userID, relation, object)] = true
}

func (a *stubAuthorizer) CheckPermission(_ context.Context, userID, relation string, object models.ObjectRef) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	return a.allowed[fmt.Sprintf("%s %s %s", userID, relation, object)], nil
}

func (a *stubAuthorizer) ListObjectsForUser(_ context.Context, userID, relation, objectType string) ([]string, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.objects[fmt.Sprintf("%s %s %s", userID, relation, objectType)], nil
}

func (a *stubAuthorizer) Grant(_ context.Context, grants ...models.Grant) error {
	if a.err != nil {
		return a.err
	}
	a.granted = append(a.granted, grants...)
	return nil
}

func (a *stubAuthorizer) Revoke(_ context.Context, grants ...models.Grant) error {
	if a.err != nil {
		return a.err
	}
	a.revoked = append(a.revoked, grants...)
	return nil
}

func (a *stubAuthorizer) RemoveObjectTuples(_ context.Context, object models.ObjectRef) error {
	if a.err != nil {
		return a.err
	}
	a.removed = append(a.removed, object)
	return nil
}

type stubProbe struct{ err error }

func (p stubProbe) Healthz(context.Context) error { return p.err }

func newTestServer(t *testing.T, authz Authorizer) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	return NewServer(cfg, authz, store.NewMemoryStore(), nil)
}

func doRequest(s *Server, method, path, userID string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set(UserHeader, userID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRootEndpoint(t *testing.T) {
	s := newTestServer(t, newStubAuthorizer())

	rec := doRequest(s, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hiershare-gateway")
}

func TestHealthEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		probeErr   error
		wantStatus models.HealthState
	}{
		{"openfga reachable", nil, models.HealthStatusHealthy},
		{"openfga down", errors.New("connection refused"), models.HealthStatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			s := NewServer(cfg, newStubAuthorizer(), store.NewMemoryStore(), stubProbe{err: tt.probeErr})

			rec := doRequest(s, http.MethodGet, "/health", "", nil)

			require.Equal(t, http.StatusOK, rec.Code)

			var health models.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Equal(t, "dev", health.Profile)
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	s := newTestServer(t, newStubAuthorizer())

	rec := doRequest(s, http.MethodGet, "/ready", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "true")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, newStubAuthorizer())

	rec := doRequest(s, http.MethodGet, "/metrics", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var metrics models.MetricsInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.NotEmpty(t, metrics.Uptime)
}

func TestServerStopWithoutStart(t *testing.T) {
	s := newTestServer(t, newStubAuthorizer())

	// Stop releases the rate limiter's background goroutine and is safe to
	// call repeatedly, even when the listener never started.
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, s.Stop(context.Background()))
}

func TestCreateResourceRequiresOrgAdmin(t *testing.T) {
	authz := newStubAuthorizer()
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	authz.permit("alice", models.RelationAdmin, models.OrganisationRef("acme"))

	rec = doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Creation attaches the resource to its service type and grants the
	// creator owner.
	require.Len(t, authz.granted, 2)
	assert.Equal(t, "service_type:payments/database", authz.granted[0].Subject)
	assert.Equal(t, models.RelationParent, authz.granted[0].Relation)
	assert.Equal(t, "resource:payments/database/acme/ledger", authz.granted[0].Object)
	assert.Equal(t, "user:alice", authz.granted[1].Subject)
	assert.Equal(t, models.RelationOwner, authz.granted[1].Relation)
	assert.Equal(t, "resource:payments/database/acme/ledger", authz.granted[1].Object)
}

func TestRecreateAfterDeleteReattachesParent(t *testing.T) {
	authz := newStubAuthorizer()
	authz.permit("alice", models.RelationAdmin, models.OrganisationRef("acme"))
	key := models.ResourceKey{Service: "payments", Type: "database", Org: "acme", Name: "ledger"}
	authz.permit("alice", models.RelationOwner, models.ResourceRef(key))
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Delete wipes every tuple on the resource, the parent link included.
	rec = doRequest(s, http.MethodDelete, "/api/resource/payments/database/acme/ledger", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, authz.removed, 1)

	// Recreating must restore the hierarchy link, not just the owner grant.
	rec = doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	parents := 0
	for _, grant := range authz.granted {
		if grant.Relation == models.RelationParent && grant.Object == key.String() {
			parents++
			assert.Equal(t, "service_type:payments/database", grant.Subject)
		}
	}
	assert.Equal(t, 2, parents, "each create should write the parent tuple")
}

func TestCreateResourceConflict(t *testing.T) {
	authz := newStubAuthorizer()
	authz.permit("alice", models.RelationAdmin, models.OrganisationRef("acme"))
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetResource(t *testing.T) {
	authz := newStubAuthorizer()
	authz.permit("alice", models.RelationAdmin, models.OrganisationRef("acme"))
	key := models.ResourceKey{Service: "payments", Type: "database", Org: "acme", Name: "ledger"}
	authz.permit("bob", models.RelationViewer, models.ResourceRef(key))
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/resource/payments/database/acme/ledger", "bob", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resource models.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resource))
	assert.Equal(t, key, resource.ResourceKey)
	assert.Equal(t, "alice", resource.CreatedBy)

	// mallory holds no viewer relation
	rec = doRequest(s, http.MethodGet, "/api/resource/payments/database/acme/ledger", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetResourceNotFound(t *testing.T) {
	authz := newStubAuthorizer()
	key := models.ResourceKey{Service: "payments", Type: "database", Org: "acme", Name: "ghost"}
	authz.permit("bob", models.RelationViewer, models.ResourceRef(key))
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodGet, "/api/resource/payments/database/acme/ghost", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateResourceRequiresEditor(t *testing.T) {
	authz := newStubAuthorizer()
	authz.permit("alice", models.RelationAdmin, models.OrganisationRef("acme"))
	key := models.ResourceKey{Service: "payments", Type: "database", Org: "acme", Name: "ledger"}
	authz.permit("carol", models.RelationEditor, models.ResourceRef(key))
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := map[string]any{"properties": map[string]any{"tier": "gold"}}

	rec = doRequest(s, http.MethodPut, "/api/resource/payments/database/acme/ledger", "carol", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodPut, "/api/resource/payments/database/acme/ledger", "mallory", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteResourceRequiresOwner(t *testing.T) {
	authz := newStubAuthorizer()
	authz.permit("alice", models.RelationAdmin, models.OrganisationRef("acme"))
	key := models.ResourceKey{Service: "payments", Type: "database", Org: "acme", Name: "ledger"}
	authz.permit("alice", models.RelationOwner, models.ResourceRef(key))
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodPost, "/api/resource/payments/database/acme/ledger", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/resource/payments/database/acme/ledger", "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/api/resource/payments/database/acme/ledger", "alice", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Tuples on the deleted resource are cleaned up.
	require.Len(t, authz.removed, 1)
	assert.Equal(t, "resource:payments/database/acme/ledger", authz.removed[0].String())

	rec = doRequest(s, http.MethodDelete, "/api/resource/payments/database/acme/ledger", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResourcePathValidation(t *testing.T) {
	s := newTestServer(t, newStubAuthorizer())

	rec := doRequest(s, http.MethodGet, "/api/resource/payments/data%20base/acme/ledger", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPermissionCheckError(t *testing.T) {
	authz := newStubAuthorizer()
	authz.err = errors.New("openfga unavailable")
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodGet, "/api/resource/payments/database/acme/ledger", "alice", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to check permission")
}

func TestDecisionCacheShortCircuitsChecks(t *testing.T) {
	authz := newStubAuthorizer()
	key := models.ResourceKey{Service: "payments", Type: "database", Org: "acme", Name: "ghost"}
	authz.permit("bob", models.RelationViewer, models.ResourceRef(key))
	s := newTestServer(t, authz)

	rec := doRequest(s, http.MethodGet, "/api/resource/payments/database/acme/ghost", "bob", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Once cached, the decision survives the backend flipping to deny.
	authz.allowed = map[string]bool{}

	rec = doRequest(s, http.MethodGet, "/api/resource/payments/database/acme/ghost", "bob", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
