package daemon

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hiershare/hiershare/internal/models"
)

// shareableRelations are the relations a grant may carry. Parent tuples are
// managed by the bootstrap flow, not through the share API.
var shareableRelations = map[string]bool{
	models.RelationViewer: true,
	models.RelationEditor: true,
	models.RelationOwner:  true,
	models.RelationAdmin:  true,
	models.RelationMember: true,
}

// sharedRelations are the relations the aggregation endpoint inspects.
var sharedRelations = []string{
	models.RelationViewer,
	models.RelationEditor,
	models.RelationAdmin,
}

// listResources handles GET /api/resources. Query parameters `relation`
// (default viewer) and `object_type` (default resource) select what to list.
func (s *Server) listResources(c *gin.Context) {
	relation := c.DefaultQuery("relation", models.RelationViewer)
	objectType := c.DefaultQuery("object_type", models.KindResource)

	switch objectType {
	case models.KindOrganisation, models.KindService, models.KindServiceType, models.KindResource:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Unknown object type: " + objectType,
		})
		return
	}

	userID := GetUserID(c)

	objects, err := s.authorizer.ListObjectsForUser(c.Request.Context(), userID, relation, objectType)
	if err != nil {
		LogWithCorrelation(c).WithError(err).Error("Failed to list objects")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to list objects",
		})
		return
	}

	sort.Strings(objects)

	c.JSON(http.StatusOK, models.ListResponse{
		Objects:    objects,
		TotalCount: len(objects),
		ObjectType: objectType,
		Relation:   relation,
	})
}

// sharedEntry accumulates the relations a user holds on one object while
// the aggregation walks relation by relation.
type sharedEntry struct {
	id          string
	permissions []string
}

func (e *sharedEntry) add(relation string) {
	for _, p := range e.permissions {
		if p == relation {
			return
		}
	}
	e.permissions = append(e.permissions, relation)
}

// sharedResources handles GET /api/shared. It aggregates every service,
// service type, and resource the caller can reach, across all relations,
// deduplicated with merged permission lists.
func (s *Server) sharedResources(c *gin.Context) {
	userID := GetUserID(c)
	ctx := c.Request.Context()

	collect := func(objectType string) (map[string]*sharedEntry, []string, error) {
		entries := make(map[string]*sharedEntry)
		var order []string
		for _, relation := range sharedRelations {
			objects, err := s.authorizer.ListObjectsForUser(ctx, userID, relation, objectType)
			if err != nil {
				return nil, nil, err
			}
			for _, obj := range objects {
				id := strings.TrimPrefix(obj, objectType+":")
				entry, ok := entries[id]
				if !ok {
					entry = &sharedEntry{id: id}
					entries[id] = entry
					order = append(order, id)
				}
				entry.add(relation)
			}
		}
		sort.Strings(order)
		for _, entry := range entries {
			sort.Strings(entry.permissions)
		}
		return entries, order, nil
	}

	fail := func(err error) {
		LogWithCorrelation(c).WithError(err).Error("Failed to aggregate shared resources")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to aggregate shared resources",
		})
	}

	response := models.SharedResourcesResponse{
		Services:     []models.SharedService{},
		ServiceTypes: []models.SharedServiceType{},
		Resources:    []models.SharedResource{},
	}

	services, order, err := collect(models.KindService)
	if err != nil {
		fail(err)
		return
	}
	for _, id := range order {
		entry := services[id]
		response.Services = append(response.Services, models.SharedService{
			ID:          id,
			Name:        id,
			SharedVia:   "parent_organization",
			Permissions: entry.permissions,
		})
	}

	serviceTypes, order, err := collect(models.KindServiceType)
	if err != nil {
		fail(err)
		return
	}
	for _, id := range order {
		entry := serviceTypes[id]
		service, serviceType, _ := strings.Cut(id, "/")
		response.ServiceTypes = append(response.ServiceTypes, models.SharedServiceType{
			ID:          id,
			Service:     service,
			ServiceType: serviceType,
			SharedVia:   "parent_organization",
			Permissions: entry.permissions,
		})
	}

	resources, order, err := collect(models.KindResource)
	if err != nil {
		fail(err)
		return
	}
	for _, id := range order {
		entry := resources[id]
		shared := models.SharedResource{
			ID:          id,
			SharedVia:   "direct",
			Permissions: entry.permissions,
		}
		if key, err := models.ParseResourceID(id); err == nil {
			shared.Service = key.Service
			shared.ServiceType = key.Type
			shared.Org = key.Org
			shared.Name = key.Name
		}
		response.Resources = append(response.Resources, shared)
	}

	c.JSON(http.StatusOK, response)
}

// bindGrant parses and validates the grant body shared by the share
// endpoints, and checks the caller administers the governing organisation.
func (s *Server) bindGrant(c *gin.Context) (models.Grant, bool) {
	var grant models.Grant
	if err := c.ShouldBindJSON(&grant); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid grant: " + err.Error(),
		})
		return models.Grant{}, false
	}
	if err := grant.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return models.Grant{}, false
	}
	if !shareableRelations[grant.Relation] {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Relation cannot be shared: " + grant.Relation,
		})
		return models.Grant{}, false
	}

	org, err := grant.OrgOf()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return models.Grant{}, false
	}

	if !s.authorize(c, models.RelationAdmin, models.OrganisationRef(org)) {
		return models.Grant{}, false
	}
	return grant, true
}

// createShare handles POST /api/share, granting a relation on an object to
// a user or group userset. The caller must administer the organisation the
// object belongs to.
func (s *Server) createShare(c *gin.Context) {
	grant, ok := s.bindGrant(c)
	if !ok {
		return
	}

	if err := s.authorizer.Grant(c.Request.Context(), grant); err != nil {
		LogWithCorrelation(c).WithError(err).Error("Failed to write grant")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to share",
		})
		return
	}

	LogWithCorrelation(c).WithFields(map[string]any{
		"subject":  grant.Subject,
		"relation": grant.Relation,
		"object":   grant.Object,
	}).Info("Grant written")

	c.JSON(http.StatusOK, gin.H{
		"message": "Shared",
		"grant":   grant,
	})
}

// deleteShare handles DELETE /api/share, revoking a previously written
// grant. Cached decisions for the object are invalidated immediately.
func (s *Server) deleteShare(c *gin.Context) {
	grant, ok := s.bindGrant(c)
	if !ok {
		return
	}

	if err := s.authorizer.Revoke(c.Request.Context(), grant); err != nil {
		LogWithCorrelation(c).WithError(err).Error("Failed to revoke grant")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to unshare",
		})
		return
	}
	s.decisions.Invalidate(grant.Object)

	c.JSON(http.StatusOK, gin.H{
		"message": "Unshared",
		"grant":   grant,
	})
}
