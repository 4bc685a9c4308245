// Package fga wraps the OpenFGA client with the operations the gateway
// needs. The relationship graph itself is evaluated entirely by the external
// OpenFGA server; nothing here resolves inheritance or group membership.
package fga

import (
	_ "embed"
)

// AuthModelFile holds the authorization model describing the sharing
// hierarchy: organisation -> service -> service_type -> resource, with
// group membership expansion and parent inheritance of admin, editor and
// viewer. It is written to the server by the bootstrap command.
//
//go:embed authorisation_model.json
var AuthModelFile []byte
