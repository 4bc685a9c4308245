package daemon

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hiershare/hiershare/internal/models"
	"github.com/hiershare/hiershare/internal/store"
)

// resourceKeyFromPath builds the resource key from the route parameters,
// rejecting malformed segments before they reach the authorization server.
func resourceKeyFromPath(c *gin.Context) (models.ResourceKey, bool) {
	key := models.ResourceKey{
		Service: c.Param("service"),
		Type:    c.Param("type"),
		Org:     c.Param("org"),
		Name:    c.Param("name"),
	}
	if err := key.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return models.ResourceKey{}, false
	}
	return key, true
}

// authorize runs a cached permission check and writes the error response on
// denial or failure. It returns true only when the caller may proceed.
func (s *Server) authorize(c *gin.Context, relation string, object models.ObjectRef) bool {
	userID := GetUserID(c)

	allowed, err := s.checkPermission(c.Request.Context(), userID, relation, object)
	if err != nil {
		LogWithCorrelation(c).WithError(err).WithFields(map[string]any{
			"user":     userID,
			"relation": relation,
			"object":   object.String(),
		}).Error("Permission check failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to check permission",
		})
		return false
	}

	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{
			"error":    "Forbidden",
			"message":  "Access denied",
			"relation": relation,
			"object":   object.String(),
		})
		return false
	}
	return true
}

// createResource handles POST /api/resource/:service/:type/:org/:name.
// Creation requires admin on the owning organisation. The creator is
// recorded and granted owner on the new resource.
func (s *Server) createResource(c *gin.Context) {
	key, ok := resourceKeyFromPath(c)
	if !ok {
		return
	}

	if !s.authorize(c, models.RelationAdmin, models.OrganisationRef(key.Org)) {
		return
	}

	userID := GetUserID(c)

	resource := models.Resource{
		ResourceKey: key,
		CreatedBy:   userID,
	}
	// A body is optional; when present it carries free-form properties.
	if c.Request.ContentLength > 0 {
		var body struct {
			Properties map[string]any `json:"properties"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": "Invalid request body: " + err.Error(),
			})
			return
		}
		resource.Properties = body.Properties
	}

	if err := s.resources.Create(c.Request.Context(), resource); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Conflict",
				"message": "Resource already exists",
			})
			return
		}
		LogWithCorrelation(c).WithError(err).Error("Failed to store resource")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to create resource",
		})
		return
	}

	// The parent tuple attaches the resource to the hierarchy so shares on
	// the organisation, service, or service type flow down to it. Without
	// it the creator's owner grant would be the only access. Written one at
	// a time: a pre-existing parent tuple must not reject the owner grant
	// with it.
	grants := []models.Grant{
		{
			Subject:  models.ServiceTypeRef(key.Service, key.Type).String(),
			Relation: models.RelationParent,
			Object:   key.String(),
		},
		{
			Subject:  models.UserRef(userID).String(),
			Relation: models.RelationOwner,
			Object:   key.String(),
		},
	}
	for _, grant := range grants {
		if err := s.authorizer.Grant(c.Request.Context(), grant); err != nil {
			// Roll back the stored row so a retry can succeed cleanly.
			_ = s.resources.Delete(c.Request.Context(), key)
			LogWithCorrelation(c).WithError(err).Error("Failed to write grants for new resource")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to create resource",
			})
			return
		}
	}

	LogWithCorrelation(c).WithFields(map[string]any{
		"user":     userID,
		"resource": key.ID(),
	}).Info("Resource created")

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Resource created",
		"resource_id":  key.ID(),
		"organisation": key.Org,
		"created_by":   userID,
	})
}

// getResource handles GET. Reading requires viewer on the resource, which
// the model also satisfies through editor, owner, admin, or any relation
// inherited from the parent hierarchy.
func (s *Server) getResource(c *gin.Context) {
	key, ok := resourceKeyFromPath(c)
	if !ok {
		return
	}

	if !s.authorize(c, models.RelationViewer, models.ResourceRef(key)) {
		return
	}

	resource, err := s.resources.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Resource not found",
			})
			return
		}
		LogWithCorrelation(c).WithError(err).Error("Failed to load resource")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to load resource",
		})
		return
	}

	c.JSON(http.StatusOK, resource)
}

// updateResource handles PUT. Updating requires editor on the resource.
func (s *Server) updateResource(c *gin.Context) {
	key, ok := resourceKeyFromPath(c)
	if !ok {
		return
	}

	if !s.authorize(c, models.RelationEditor, models.ResourceRef(key)) {
		return
	}

	var body struct {
		Properties map[string]any `json:"properties"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	existing, err := s.resources.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Resource not found",
			})
			return
		}
		LogWithCorrelation(c).WithError(err).Error("Failed to load resource")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to update resource",
		})
		return
	}

	existing.Properties = body.Properties
	if err := s.resources.Update(c.Request.Context(), existing); err != nil {
		LogWithCorrelation(c).WithError(err).Error("Failed to update resource")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to update resource",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Resource updated",
		"resource_id": key.ID(),
	})
}

// deleteResource handles DELETE. Deleting requires owner on the resource.
// Tuples referring to the resource are removed so a later resource under
// the same name starts with a clean slate.
func (s *Server) deleteResource(c *gin.Context) {
	key, ok := resourceKeyFromPath(c)
	if !ok {
		return
	}

	if !s.authorize(c, models.RelationOwner, models.ResourceRef(key)) {
		return
	}

	if err := s.resources.Delete(c.Request.Context(), key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Resource not found",
			})
			return
		}
		LogWithCorrelation(c).WithError(err).Error("Failed to delete resource")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Failed to delete resource",
		})
		return
	}

	object := models.ResourceRef(key)
	if err := s.authorizer.RemoveObjectTuples(c.Request.Context(), object); err != nil {
		LogWithCorrelation(c).WithError(err).Error("Failed to remove resource tuples")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "Resource deleted but permission cleanup failed",
		})
		return
	}
	s.decisions.Invalidate(object.String())

	c.JSON(http.StatusOK, gin.H{
		"message":     "Resource deleted",
		"resource_id": key.ID(),
	})
}
