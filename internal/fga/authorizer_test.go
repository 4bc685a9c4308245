package fga

import (
	"context"
	"encoding/json"
	"testing"

	cofga "github.com/canonical/ofga"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiershare/hiershare/internal/config"
	"github.com/hiershare/hiershare/internal/models"
)

func TestNewAuthorizerRequiresStoreAndModel(t *testing.T) {
	ctx := context.Background()

	_, err := NewAuthorizer(ctx, config.OpenFGAConfig{
		Scheme: "http",
		Host:   "localhost",
		Port:   "8080",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store ID")

	_, err = NewAuthorizer(ctx, config.OpenFGAConfig{
		Scheme:  "http",
		Host:    "localhost",
		Port:    "8080",
		StoreID: "01HSTOREXXXXXXXXXXXXXXXXXX",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorization model ID")
}

func TestTupleFromGrant(t *testing.T) {
	tuple, err := tupleFromGrant(models.Grant{
		Subject:  "user:alice",
		Relation: "viewer",
		Object:   "resource:payments/database/acme/ledger",
	})
	require.NoError(t, err)

	assert.Equal(t, "user:alice", tuple.Object.String())
	assert.Equal(t, cofga.Relation("viewer"), tuple.Relation)
	assert.Equal(t, "resource:payments/database/acme/ledger", tuple.Target.String())
}

func TestTupleFromGrantUsersetSubject(t *testing.T) {
	tuple, err := tupleFromGrant(models.Grant{
		Subject:  "group:engineering#member",
		Relation: "editor",
		Object:   "service:payments",
	})
	require.NoError(t, err)

	assert.Equal(t, cofga.Kind("group"), tuple.Object.Kind)
	assert.Equal(t, "engineering", tuple.Object.ID)
	assert.Equal(t, cofga.Relation("member"), tuple.Object.Relation)
}

func TestTuplesFromGrantsRejectsInvalid(t *testing.T) {
	_, err := tuplesFromGrants([]models.Grant{
		{Subject: "user:alice", Relation: "viewer", Object: "resource:a/b/c/d"},
		{Subject: "not-a-ref", Relation: "viewer", Object: "resource:a/b/c/d"},
	})
	assert.Error(t, err)
}

func TestAuthModelFile(t *testing.T) {
	var model struct {
		SchemaVersion   string `json:"schema_version"`
		TypeDefinitions []struct {
			Type      string                     `json:"type"`
			Relations map[string]json.RawMessage `json:"relations"`
		} `json:"type_definitions"`
	}
	require.NoError(t, json.Unmarshal(AuthModelFile, &model))
	assert.Equal(t, "1.1", model.SchemaVersion)

	types := make(map[string]map[string]json.RawMessage)
	for _, td := range model.TypeDefinitions {
		types[td.Type] = td.Relations
	}

	for _, kind := range []string{
		models.KindUser,
		models.KindGroup,
		models.KindOrganisation,
		models.KindService,
		models.KindServiceType,
		models.KindResource,
	} {
		assert.Contains(t, types, kind)
	}

	// the hierarchy is wired through parent relations
	for _, kind := range []string{models.KindService, models.KindServiceType, models.KindResource} {
		assert.Contains(t, types[kind], models.RelationParent)
		assert.Contains(t, types[kind], models.RelationViewer)
	}
	assert.Contains(t, types[models.KindResource], models.RelationOwner)
	assert.Contains(t, types[models.KindGroup], models.RelationMember)
}
