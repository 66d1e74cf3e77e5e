package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsefeed/pulsefeed-go/utils"
)

// NewTestStore opens a throwaway cache database under t.TempDir. A random
// file name keeps parallel tests in the same package from colliding. The
// file and the connection are cleaned up with the test.
func NewTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), utils.RandomAlphabetString(8)+".db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
	})
	return s
}
