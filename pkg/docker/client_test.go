package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsScopesToInspectAndUpdate(t *testing.T) {
	c, err := New(Config{})
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.hasScope(ScopeInspect))
	assert.True(t, c.hasScope(ScopeUpdate))
}

func TestNewRestrictsToExplicitScopes(t *testing.T) {
	c, err := New(Config{Scopes: []Scope{ScopeInspect}})
	require.NoError(t, err)
	defer c.Close()

	assert.True(t, c.hasScope(ScopeInspect))
	assert.False(t, c.hasScope(ScopeUpdate))
}

func TestContainsSubstring(t *testing.T) {
	assert.True(t, containsSubstring("/web-1", "web"))
	assert.True(t, containsSubstring("web", "web"))
	assert.False(t, containsSubstring("worker", "web"))
}
