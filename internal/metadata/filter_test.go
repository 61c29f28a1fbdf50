package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatchEmpty(t *testing.T) {
	filter := Filter{}

	assert.True(t, filter.Match("public"))
	assert.True(t, filter.Match("sales"))
	assert.True(t, filter.IsEmpty())
}

func TestFilterMatchInclude(t *testing.T) {
	filter := Filter{IncludeSchemas: []string{"sales", "hr"}}

	assert.True(t, filter.Match("sales"))
	assert.True(t, filter.Match("HR"))
	assert.False(t, filter.Match("public"))
}

func TestFilterMatchExclude(t *testing.T) {
	filter := Filter{ExcludeSchemas: []string{"audit"}}

	assert.True(t, filter.Match("public"))
	assert.False(t, filter.Match("audit"))
	assert.False(t, filter.Match("AUDIT"))
}

func TestFilterIncludeWinsOverExclude(t *testing.T) {
	filter := Filter{
		IncludeSchemas: []string{"sales"},
		ExcludeSchemas: []string{"sales"},
	}

	assert.True(t, filter.Match("sales"))
	assert.False(t, filter.Match("public"))
}

func TestFilterTrimsWhitespace(t *testing.T) {
	filter := Filter{IncludeSchemas: []string{" sales "}}

	assert.True(t, filter.Match("sales"))
}
