package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
}

func TestGetModuleBuildInfo(t *testing.T) {
	version, gitCommit, ok := GetModuleBuildInfo()
	if !ok {
		t.Skip("no build info available")
	}
	assert.NotEmpty(t, version)
	assert.NotEmpty(t, gitCommit)
}
