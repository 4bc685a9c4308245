package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hiershare/hiershare/internal/models"
)

// UserHeader carries the caller identity to the gateway.
const UserHeader = "X-User-Id"

// BackendClient talks to a running gateway instance. It is what the api
// smoke tests and the demo walkthrough use in place of hand-written curl.
type BackendClient struct {
	client *resty.Client
}

func NewBackendClient(endpoint string) *BackendClient {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	return &BackendClient{client: client}
}

// Health fetches the gateway health document.
func (b *BackendClient) Health(ctx context.Context) (models.HealthResponse, error) {
	var result models.HealthResponse

	resp, err := b.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/health")
	if err != nil {
		return models.HealthResponse{}, fmt.Errorf("gateway health check failed: %w", err)
	}
	if resp.IsError() {
		return models.HealthResponse{}, fmt.Errorf("gateway health check returned %s", resp.Status())
	}
	return result, nil
}

// Root fetches the public landing document.
func (b *BackendClient) Root(ctx context.Context) (*resty.Response, error) {
	return b.client.R().SetContext(ctx).Get("/")
}

func (b *BackendClient) resourceRequest(ctx context.Context, userID string, key models.ResourceKey) *resty.Request {
	req := b.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"service": key.Service,
			"type":    key.Type,
			"org":     key.Org,
			"name":    key.Name,
		})
	if len(userID) > 0 {
		req.SetHeader(UserHeader, userID)
	}
	return req
}

const resourcePath = "/api/resource/{service}/{type}/{org}/{name}"

// CreateResource issues the create call as the given user. The raw response
// is returned so callers can assert on status buckets.
func (b *BackendClient) CreateResource(ctx context.Context, userID string, key models.ResourceKey, properties map[string]any) (*resty.Response, error) {
	body := map[string]any{}
	if properties != nil {
		body["properties"] = properties
	}
	return b.resourceRequest(ctx, userID, key).SetBody(body).Post(resourcePath)
}

func (b *BackendClient) GetResource(ctx context.Context, userID string, key models.ResourceKey) (*resty.Response, error) {
	return b.resourceRequest(ctx, userID, key).Get(resourcePath)
}

func (b *BackendClient) UpdateResource(ctx context.Context, userID string, key models.ResourceKey, properties map[string]any) (*resty.Response, error) {
	body := map[string]any{}
	if properties != nil {
		body["properties"] = properties
	}
	return b.resourceRequest(ctx, userID, key).SetBody(body).Put(resourcePath)
}

func (b *BackendClient) DeleteResource(ctx context.Context, userID string, key models.ResourceKey) (*resty.Response, error) {
	return b.resourceRequest(ctx, userID, key).Delete(resourcePath)
}

// ListResources lists the objects the user can reach via the relation.
func (b *BackendClient) ListResources(ctx context.Context, userID, relation, objectType string) (models.ListResponse, error) {
	var result models.ListResponse

	req := b.client.R().
		SetContext(ctx).
		SetHeader(UserHeader, userID).
		SetResult(&result)
	if len(relation) > 0 {
		req.SetQueryParam("relation", relation)
	}
	if len(objectType) > 0 {
		req.SetQueryParam("object_type", objectType)
	}

	resp, err := req.Get("/api/resources")
	if err != nil {
		return models.ListResponse{}, fmt.Errorf("listing resources: %w", err)
	}
	if resp.IsError() {
		return models.ListResponse{}, fmt.Errorf("listing resources returned %s: %s", resp.Status(), resp.String())
	}
	return result, nil
}

// SharedResources fetches the aggregated shared view for the user.
func (b *BackendClient) SharedResources(ctx context.Context, userID string) (models.SharedResourcesResponse, error) {
	var result models.SharedResourcesResponse

	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader(UserHeader, userID).
		SetResult(&result).
		Get("/api/shared")
	if err != nil {
		return models.SharedResourcesResponse{}, fmt.Errorf("fetching shared resources: %w", err)
	}
	if resp.IsError() {
		return models.SharedResourcesResponse{}, fmt.Errorf("fetching shared resources returned %s: %s", resp.Status(), resp.String())
	}
	return result, nil
}

// Share grants a relation as the given user.
func (b *BackendClient) Share(ctx context.Context, userID string, grant models.Grant) (*resty.Response, error) {
	return b.client.R().
		SetContext(ctx).
		SetHeader(UserHeader, userID).
		SetBody(grant).
		Post("/api/share")
}

// Unshare revokes a relation as the given user.
func (b *BackendClient) Unshare(ctx context.Context, userID string, grant models.Grant) (*resty.Response, error) {
	return b.client.R().
		SetContext(ctx).
		SetHeader(UserHeader, userID).
		SetBody(grant).
		Delete("/api/share")
}
