package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seastack/discover/internal/testutil"
)

func TestHistory(t *testing.T) {
	h := NewHistory(testutil.NewTestLogger(t))

	assert.Empty(t, h.Current())

	h.Push("/acme/discover/")
	h.Push("/acme/discover/abc")

	assert.Equal(t, "/acme/discover/abc", h.Current())
	assert.Equal(t, []string{"/acme/discover/", "/acme/discover/abc"}, h.Entries())
}

func TestParseQueryPath(t *testing.T) {
	org, token, err := ParseQueryPath("/acme/discover/eyJmIjoxfQ")
	require.NoError(t, err)
	assert.Equal(t, "acme", org)
	assert.Equal(t, "eyJmIjoxfQ", token)

	org, token, err = ParseQueryPath("/acme/discover/")
	require.NoError(t, err)
	assert.Equal(t, "acme", org)
	assert.Empty(t, token)

	_, _, err = ParseQueryPath("/acme/settings/x")
	assert.Error(t, err)

	_, _, err = ParseQueryPath("")
	assert.Error(t, err)
}
