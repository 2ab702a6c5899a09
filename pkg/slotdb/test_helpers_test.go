package slotdb_test

import (
	"iter"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

// newDBPath creates an initialized, empty database file and returns its path.
func newDBPath(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")

	conn, err := slotdb.Open(slotdb.Options{Path: path, Mode: slotdb.ModeCreate})
	require.NoError(t, err, "Open(create) should succeed")
	require.NoError(t, conn.Create(), "Create should succeed")
	require.NoError(t, conn.Write(), "Write should succeed")
	require.NoError(t, conn.Close(), "Close should succeed")

	return path
}

// openDB opens path in modify mode and closes it at test cleanup.
func openDB(t *testing.T, path string) *slotdb.Conn {
	t.Helper()

	conn, err := slotdb.Open(slotdb.Options{Path: path})
	require.NoError(t, err, "Open(modify) should succeed")
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// listEntries collects conn.List into a slice.
func listEntries(t *testing.T, conn *slotdb.Conn) []slotdb.Entry {
	t.Helper()

	seq, err := conn.List()
	require.NoError(t, err, "List should succeed")

	return slices.Collect(iter.Seq[slotdb.Entry](seq))
}

// snapshot returns the encoded in-memory table.
func snapshot(t *testing.T, conn *slotdb.Conn) []byte {
	t.Helper()

	image, err := conn.Snapshot()
	require.NoError(t, err, "Snapshot should succeed")

	return image
}
