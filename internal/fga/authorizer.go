package fga

import (
	"context"
	"fmt"
	"strings"

	cofga "github.com/canonical/ofga"
	"github.com/sirupsen/logrus"

	"github.com/hiershare/hiershare/internal/config"
	"github.com/hiershare/hiershare/internal/models"
)

// Tuple represents a relation between a subject and a target object.
type Tuple = cofga.Tuple

// Authorizer contains convenient utility methods for interacting with
// OpenFGA for this gateway's use case. It wraps the core OpenFGA client.
//
// Any time the term 'subject' is used it COULD represent another object,
// not just a user. A group can relate to a user as a 'member', and if that
// group is an editor of a service, membership makes the user an editor too:
//
//	user:alice -> member -> group:payments -> editor -> service:billing
//
// That expansion happens inside the OpenFGA server, never here.
type Authorizer struct {
	client *cofga.Client
}

// NewAuthorizer connects to the configured OpenFGA server. The store and
// authorization model must already exist (see the bootstrap command).
func NewAuthorizer(ctx context.Context, cfg config.OpenFGAConfig) (*Authorizer, error) {
	if len(cfg.StoreID) == 0 {
		return nil, fmt.Errorf("openfga store ID not configured")
	}
	if len(cfg.AuthModelID) == 0 {
		return nil, fmt.Errorf("openfga authorization model ID not configured")
	}

	client, err := cofga.NewClient(ctx, cofga.OpenFGAParams{
		Scheme:      cfg.Scheme,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Token:       cfg.Token,
		StoreID:     cfg.StoreID,
		AuthModelID: cfg.AuthModelID,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to openfga at %s: %w", cfg.URL(), err)
	}

	logrus.WithFields(logrus.Fields{
		"endpoint":   cfg.URL(),
		"store_id":   cfg.StoreID,
		"auth_model": cfg.AuthModelID,
	}).Info("OpenFGA client initialized")

	return &Authorizer{client: client}, nil
}

// CheckPermission verifies that a user is allowed to access the target
// object via the specified relation.
func (a *Authorizer) CheckPermission(ctx context.Context, userID, relation string, object models.ObjectRef) (bool, error) {
	allowed, err := a.client.CheckRelation(ctx, Tuple{
		Object:   &cofga.Entity{Kind: models.KindUser, ID: userID},
		Relation: cofga.Relation(relation),
		Target:   &cofga.Entity{Kind: cofga.Kind(object.Kind), ID: object.ID},
	})
	if err != nil {
		return false, fmt.Errorf("openfga permission check failed: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user":     userID,
		"relation": relation,
		"object":   object.String(),
		"allowed":  allowed,
	}).Debug("Permission check")

	return allowed, nil
}

// ListObjectsForUser returns all object IDs of objType the user holds the
// given relation to, directly or through inheritance. The result values are
// full "kind:id" references.
func (a *Authorizer) ListObjectsForUser(ctx context.Context, userID, relation, objType string) ([]string, error) {
	entities, err := a.client.FindAccessibleObjectsByRelation(ctx, Tuple{
		Object:   &cofga.Entity{Kind: models.KindUser, ID: userID},
		Relation: cofga.Relation(relation),
		Target:   &cofga.Entity{Kind: cofga.Kind(objType)},
	})
	if err != nil {
		return nil, fmt.Errorf("openfga list objects failed: %w", err)
	}

	result := make([]string, len(entities))
	for i, entity := range entities {
		result[i] = entity.String()
	}
	return result, nil
}

// Grant writes relationship tuples. Writing a tuple that already exists is
// not an error.
func (a *Authorizer) Grant(ctx context.Context, grants ...models.Grant) error {
	tuples, err := tuplesFromGrants(grants)
	if err != nil {
		return err
	}
	if err := a.client.AddRelation(ctx, tuples...); err != nil {
		if strings.Contains(err.Error(), "cannot write a tuple which already exists") {
			return nil
		}
		return fmt.Errorf("openfga write failed: %w", err)
	}
	return nil
}

// Revoke deletes relationship tuples.
func (a *Authorizer) Revoke(ctx context.Context, grants ...models.Grant) error {
	tuples, err := tuplesFromGrants(grants)
	if err != nil {
		return err
	}
	if err := a.client.RemoveRelation(ctx, tuples...); err != nil {
		return fmt.Errorf("openfga delete failed: %w", err)
	}
	return nil
}

// RemoveObjectTuples iteratively reads all tuples targeting the object and
// deletes them. Called when a resource is deleted so stale shares do not
// resurrect access if the same key is recreated later.
func (a *Authorizer) RemoveObjectTuples(ctx context.Context, object models.ObjectRef) error {
	const pageSize = 50
	for {
		// Since we're deleting the returned tuples, pagination tokens would
		// go stale; query fresh each round instead.
		timestamped, ct, err := a.client.FindMatchingTuples(ctx, Tuple{
			Target: &cofga.Entity{Kind: cofga.Kind(object.Kind), ID: object.ID},
		}, pageSize, "")
		if err != nil {
			return fmt.Errorf("openfga read failed: %w", err)
		}
		if len(timestamped) == 0 {
			return nil
		}
		tuples := make([]Tuple, len(timestamped))
		for i, tt := range timestamped {
			tuples[i] = tt.Tuple
		}
		if err := a.client.RemoveRelation(ctx, tuples...); err != nil {
			return fmt.Errorf("openfga delete failed: %w", err)
		}
		if ct == "" {
			return nil
		}
	}
}

func tuplesFromGrants(grants []models.Grant) ([]Tuple, error) {
	tuples := make([]Tuple, 0, len(grants))
	for _, grant := range grants {
		if err := grant.Validate(); err != nil {
			return nil, err
		}
		tuple, err := tupleFromGrant(grant)
		if err != nil {
			return nil, err
		}
		tuples = append(tuples, tuple)
	}
	return tuples, nil
}

// tupleFromGrant converts a grant into a tuple. Subjects may carry a userset
// suffix, e.g. "group:engineering#member".
func tupleFromGrant(grant models.Grant) (Tuple, error) {
	subject, err := cofga.ParseEntity(grant.Subject)
	if err != nil {
		return Tuple{}, fmt.Errorf("invalid grant subject %q: %w", grant.Subject, err)
	}
	target, err := cofga.ParseEntity(grant.Object)
	if err != nil {
		return Tuple{}, fmt.Errorf("invalid grant object %q: %w", grant.Object, err)
	}
	return Tuple{
		Object:   &subject,
		Relation: cofga.Relation(grant.Relation),
		Target:   &target,
	}, nil
}
