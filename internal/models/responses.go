package models

// HealthState describes the health of a single dependency.
type HealthState string

const (
	HealthStatusHealthy   HealthState = "healthy"
	HealthStatusDegraded  HealthState = "degraded"
	HealthStatusUnhealthy HealthState = "unhealthy"
)

// HealthResponse is returned from the /health endpoint.
type HealthResponse struct {
	Status    HealthState            `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Profile   string                 `json:"profile,omitempty"`
	Services  map[string]HealthState `json:"services,omitempty"`
}

// MetricsInfo is returned from the /metrics endpoint.
type MetricsInfo struct {
	Uptime          string `json:"uptime"`
	TotalRequests   int64  `json:"total_requests"`
	CheckRequests   int64  `json:"check_requests"`
	DeniedRequests  int64  `json:"denied_requests"`
	TrackedClients  int    `json:"tracked_clients"`
	CachedDecisions int    `json:"cached_decisions"`
}

// Resource is the stored representation of a resource.
type Resource struct {
	ResourceKey
	Properties map[string]any `json:"properties,omitempty"`
	CreatedBy  string         `json:"created_by,omitempty"`
}

// ListResponse is returned from the list-objects endpoint.
type ListResponse struct {
	Objects    []string `json:"objects"`
	TotalCount int      `json:"total_count"`
	ObjectType string   `json:"object_type"`
	Relation   string   `json:"relation"`
}

// SharedService is a service visible to a user through inherited access.
type SharedService struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	SharedVia   string   `json:"shared_via"`
	Permissions []string `json:"permissions"`
}

// SharedServiceType is a service type visible through inherited access.
type SharedServiceType struct {
	ID          string   `json:"id"`
	Service     string   `json:"service_name"`
	ServiceType string   `json:"service_type"`
	SharedVia   string   `json:"shared_via"`
	Permissions []string `json:"permissions"`
}

// SharedResource is a resource visible through inherited access.
type SharedResource struct {
	ID          string   `json:"id"`
	Service     string   `json:"service_name"`
	ServiceType string   `json:"service_type"`
	Org         string   `json:"org_id"`
	Name        string   `json:"resource_name"`
	SharedVia   string   `json:"shared_via"`
	Permissions []string `json:"permissions"`
}

// SharedResourcesResponse aggregates everything a user can see across the
// hierarchy, deduplicated with merged permissions.
type SharedResourcesResponse struct {
	Services     []SharedService     `json:"services"`
	ServiceTypes []SharedServiceType `json:"service_types"`
	Resources    []SharedResource    `json:"resources"`
}
