package mm2

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// refFile creates an empty file standing in for a reference; the fake
// engine never reads it.
func refFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ref.fa")
	require.NoError(t, os.WriteFile(path, []byte(">chr1\nACGT\n"), 0644))
	return path
}
