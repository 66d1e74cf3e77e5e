package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsString(t *testing.T) {
	assert.True(t, ContainsString([]string{"a", "b"}, "b"))
	assert.False(t, ContainsString([]string{"a", "b"}, "c"))
	assert.False(t, ContainsString(nil, "a"))
}

func TestRandomAlphabetString(t *testing.T) {
	s := RandomAlphabetString(12)
	assert.Len(t, s, 12)
	for _, r := range s {
		assert.True(t, r >= 'a' && r <= 'z')
	}
}

func TestParseTimestamp(t *testing.T) {
	parsed, err := ParseTimestamp("2024-05-01T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 2024, parsed.Year())

	_, err = ParseTimestamp("just now")
	assert.Error(t, err)
}

func TestRelativeTime(t *testing.T) {
	now := time.Now().UTC()

	assert.Equal(t, "now", RelativeTime(now.Add(-30*time.Second).Format(time.RFC3339)))
	assert.Equal(t, "5m", RelativeTime(now.Add(-5*time.Minute).Format(time.RFC3339)))
	assert.Equal(t, "2h", RelativeTime(now.Add(-2*time.Hour).Format(time.RFC3339)))
	assert.Equal(t, "3d", RelativeTime(now.Add(-72*time.Hour-time.Minute).Format(time.RFC3339)))

	// Display-text timestamps pass through untouched.
	assert.Equal(t, "just now", RelativeTime("just now"))
}
