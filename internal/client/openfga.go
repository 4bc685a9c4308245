// Package client holds the HTTP clients the CLI uses to drive the OpenFGA
// server and the gateway, covering the same surface the original curl-based
// tooling exercised.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hiershare/hiershare/internal/models"
)

// Store is a store entry as returned by the OpenFGA stores API.
type Store struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// TupleKey mirrors the OpenFGA wire representation of a relationship tuple.
type TupleKey struct {
	User     string `json:"user"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

func tupleKeyFromGrant(g models.Grant) TupleKey {
	return TupleKey{User: g.Subject, Relation: g.Relation, Object: g.Object}
}

// OpenFGAClient talks to the OpenFGA server's HTTP API. It covers the
// administrative surface the gateway's runtime client does not need: health
// probing, store management and model uploads, plus raw check/list/write
// used by the demo walkthrough.
type OpenFGAClient struct {
	client *resty.Client
}

func NewOpenFGAClient(baseURL, token string) *OpenFGAClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Content-Type", "application/json")

	if len(token) > 0 {
		client.SetAuthToken(token)
	}

	return &OpenFGAClient{client: client}
}

// Healthz probes the server's health endpoint.
func (c *OpenFGAClient) Healthz(ctx context.Context) error {
	var result struct {
		Status string `json:"status"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/healthz")
	if err != nil {
		return fmt.Errorf("openfga health check failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("openfga health check returned %s", resp.Status())
	}
	if result.Status != "SERVING" {
		return fmt.Errorf("openfga reported status %q", result.Status)
	}
	return nil
}

// ListStores returns all stores on the server.
func (c *OpenFGAClient) ListStores(ctx context.Context) ([]Store, error) {
	var result struct {
		Stores []Store `json:"stores"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/stores")
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing stores returned %s: %s", resp.Status(), resp.String())
	}
	return result.Stores, nil
}

// GetStore fetches a single store by ID.
func (c *OpenFGAClient) GetStore(ctx context.Context, storeID string) (Store, error) {
	var result Store

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("store_id", storeID).
		SetResult(&result).
		Get("/stores/{store_id}")
	if err != nil {
		return Store{}, fmt.Errorf("fetching store %s: %w", storeID, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return Store{}, fmt.Errorf("store %s not found", storeID)
	}
	if resp.IsError() {
		return Store{}, fmt.Errorf("fetching store %s returned %s", storeID, resp.Status())
	}
	return result, nil
}

// CreateStore creates a new store and returns it.
func (c *OpenFGAClient) CreateStore(ctx context.Context, name string) (Store, error) {
	var result Store

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"name": name}).
		SetResult(&result).
		Post("/stores")
	if err != nil {
		return Store{}, fmt.Errorf("creating store: %w", err)
	}
	if resp.IsError() {
		return Store{}, fmt.Errorf("creating store returned %s: %s", resp.Status(), resp.String())
	}
	return result, nil
}

// WriteAuthorizationModel uploads a model document and returns its ID.
func (c *OpenFGAClient) WriteAuthorizationModel(ctx context.Context, storeID string, model []byte) (string, error) {
	var result struct {
		AuthorizationModelID string `json:"authorization_model_id"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("store_id", storeID).
		SetBody(model).
		SetResult(&result).
		Post("/stores/{store_id}/authorization-models")
	if err != nil {
		return "", fmt.Errorf("writing authorization model: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("writing authorization model returned %s: %s", resp.Status(), resp.String())
	}
	return result.AuthorizationModelID, nil
}

// ListAuthorizationModels returns the IDs of the models in a store, newest
// first.
func (c *OpenFGAClient) ListAuthorizationModels(ctx context.Context, storeID string) ([]string, error) {
	var result struct {
		AuthorizationModels []struct {
			ID string `json:"id"`
		} `json:"authorization_models"`
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("store_id", storeID).
		SetResult(&result).
		Get("/stores/{store_id}/authorization-models")
	if err != nil {
		return nil, fmt.Errorf("listing authorization models: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("listing authorization models returned %s", resp.Status())
	}

	ids := make([]string, len(result.AuthorizationModels))
	for i, model := range result.AuthorizationModels {
		ids[i] = model.ID
	}
	return ids, nil
}

// Check asks whether the tuple's subject holds the relation on the object.
func (c *OpenFGAClient) Check(ctx context.Context, storeID, modelID string, grant models.Grant) (bool, error) {
	var result struct {
		Allowed bool `json:"allowed"`
	}

	body := map[string]any{
		"tuple_key": tupleKeyFromGrant(grant),
	}
	if len(modelID) > 0 {
		body["authorization_model_id"] = modelID
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("store_id", storeID).
		SetBody(body).
		SetResult(&result).
		Post("/stores/{store_id}/check")
	if err != nil {
		return false, fmt.Errorf("check failed: %w", err)
	}
	if resp.IsError() {
		return false, fmt.Errorf("check returned %s: %s", resp.Status(), resp.String())
	}
	return result.Allowed, nil
}

// ListObjects returns the object IDs of objType the user holds relation to.
func (c *OpenFGAClient) ListObjects(ctx context.Context, storeID, modelID, user, relation, objType string) ([]string, error) {
	var result struct {
		Objects []string `json:"objects"`
	}

	body := map[string]any{
		"type":     objType,
		"relation": relation,
		"user":     user,
	}
	if len(modelID) > 0 {
		body["authorization_model_id"] = modelID
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("store_id", storeID).
		SetBody(body).
		SetResult(&result).
		Post("/stores/{store_id}/list-objects")
	if err != nil {
		return nil, fmt.Errorf("list-objects failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list-objects returned %s: %s", resp.Status(), resp.String())
	}
	return result.Objects, nil
}

// Write applies tuple writes and deletes in a single request.
func (c *OpenFGAClient) Write(ctx context.Context, storeID, modelID string, writes, deletes []models.Grant) error {
	body := map[string]any{}
	if len(modelID) > 0 {
		body["authorization_model_id"] = modelID
	}
	if len(writes) > 0 {
		keys := make([]TupleKey, len(writes))
		for i, grant := range writes {
			keys[i] = tupleKeyFromGrant(grant)
		}
		body["writes"] = map[string]any{"tuple_keys": keys}
	}
	if len(deletes) > 0 {
		keys := make([]TupleKey, len(deletes))
		for i, grant := range deletes {
			keys[i] = tupleKeyFromGrant(grant)
		}
		body["deletes"] = map[string]any{"tuple_keys": keys}
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("store_id", storeID).
		SetBody(body).
		Post("/stores/{store_id}/write")
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("write returned %s: %s", resp.Status(), resp.String())
	}
	return nil
}
