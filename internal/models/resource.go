package models

import (
	"fmt"
	"strings"
)

// Relation names understood by the authorization model. The model itself
// lives in internal/fga/authorisation_model.json; these constants only name
// the relations the gateway reads and writes.
const (
	RelationViewer = "viewer"
	RelationEditor = "editor"
	RelationOwner  = "owner"
	RelationAdmin  = "admin"
	RelationMember = "member"
	RelationParent = "parent"
)

// Object kinds in the sharing hierarchy, ordered parent to child:
// organisation -> service -> service_type -> resource.
const (
	KindUser         = "user"
	KindGroup        = "group"
	KindOrganisation = "organisation"
	KindService      = "service"
	KindServiceType  = "service_type"
	KindResource     = "resource"
)

// ResourceKey identifies a single resource within the hierarchy. It maps
// directly onto the /api/resource/:service/:type/:org/:name path.
type ResourceKey struct {
	Service string `json:"service_name"`
	Type    string `json:"service_type"`
	Org     string `json:"org_id"`
	Name    string `json:"name"`
}

// Validate checks that no path segment is empty or contains a separator that
// would corrupt the derived object ID.
func (k ResourceKey) Validate() error {
	segments := map[string]string{
		"service": k.Service,
		"type":    k.Type,
		"org":     k.Org,
		"name":    k.Name,
	}
	for label, segment := range segments {
		if len(strings.TrimSpace(segment)) == 0 {
			return fmt.Errorf("resource %s cannot be empty", label)
		}
		if strings.ContainsAny(segment, "/:# ") {
			return fmt.Errorf("resource %s contains invalid characters: %q", label, segment)
		}
	}
	return nil
}

// ID returns the object identifier portion of the resource, without the kind
// prefix: "{service}/{type}/{org}/{name}".
func (k ResourceKey) ID() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Service, k.Type, k.Org, k.Name)
}

func (k ResourceKey) String() string {
	return KindResource + ":" + k.ID()
}

// ParseResourceID parses a "{service}/{type}/{org}/{name}" identifier back
// into a ResourceKey. The kind prefix, if present, must already be stripped.
func ParseResourceID(id string) (ResourceKey, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 4 {
		return ResourceKey{}, fmt.Errorf("invalid resource id %q: expected 4 segments, got %d", id, len(parts))
	}
	key := ResourceKey{
		Service: parts[0],
		Type:    parts[1],
		Org:     parts[2],
		Name:    parts[3],
	}
	if err := key.Validate(); err != nil {
		return ResourceKey{}, err
	}
	return key, nil
}

// ObjectRef is a typed reference to an object in the authorization store,
// rendered as "kind:id" on the wire.
type ObjectRef struct {
	Kind string
	ID   string
}

func (o ObjectRef) String() string {
	return o.Kind + ":" + o.ID
}

func UserRef(id string) ObjectRef {
	return ObjectRef{Kind: KindUser, ID: id}
}

func GroupRef(id string) ObjectRef {
	return ObjectRef{Kind: KindGroup, ID: id}
}

func OrganisationRef(org string) ObjectRef {
	return ObjectRef{Kind: KindOrganisation, ID: org}
}

func ServiceRef(service string) ObjectRef {
	return ObjectRef{Kind: KindService, ID: service}
}

func ServiceTypeRef(service, serviceType string) ObjectRef {
	return ObjectRef{Kind: KindServiceType, ID: service + "/" + serviceType}
}

func ResourceRef(key ResourceKey) ObjectRef {
	return ObjectRef{Kind: KindResource, ID: key.ID()}
}

// ParseObjectRef splits a "kind:id" identifier. The id itself may contain
// further colons, so only the first separator is significant.
func ParseObjectRef(s string) (ObjectRef, error) {
	kind, id, found := strings.Cut(s, ":")
	if !found || len(kind) == 0 || len(id) == 0 {
		return ObjectRef{}, fmt.Errorf("invalid object reference %q: expected kind:id", s)
	}
	return ObjectRef{Kind: kind, ID: id}, nil
}

// Grant describes a single relationship tuple to be written or deleted:
// subject has relation on object. Subject is usually "user:{id}" but may be
// a group userset such as "group:engineering#member".
type Grant struct {
	Subject  string `json:"user" binding:"required"`
	Relation string `json:"relation" binding:"required"`
	Object   string `json:"object" binding:"required"`
}

func (g Grant) Validate() error {
	if _, err := ParseObjectRef(g.Subject); err != nil {
		return fmt.Errorf("invalid grant subject: %w", err)
	}
	if len(strings.TrimSpace(g.Relation)) == 0 {
		return fmt.Errorf("grant relation cannot be empty")
	}
	if _, err := ParseObjectRef(g.Object); err != nil {
		return fmt.Errorf("invalid grant object: %w", err)
	}
	return nil
}

// OrgOf returns the organisation that governs the grant's target object.
// Writes to the store are gated on admin access to this organisation.
func (g Grant) OrgOf() (string, error) {
	ref, err := ParseObjectRef(g.Object)
	if err != nil {
		return "", err
	}
	switch ref.Kind {
	case KindOrganisation:
		return ref.ID, nil
	case KindResource:
		key, err := ParseResourceID(ref.ID)
		if err != nil {
			return "", err
		}
		return key.Org, nil
	default:
		return "", fmt.Errorf("cannot derive organisation for object kind %q", ref.Kind)
	}
}
