package slotdb_test

import (
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slotfs "github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

func Test_Open_Returns_ErrOpen_When_File_Does_Not_Exist(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.db")

	conn, err := slotdb.Open(slotdb.Options{Path: path})
	require.ErrorIs(t, err, slotdb.ErrOpen)
	require.ErrorIs(t, err, fs.ErrNotExist, "underlying OS error must be preserved")
	assert.Nil(t, conn)
	assert.Equal(t, slotdb.KindIO, slotdb.KindOf(err))
}

func Test_Open_Returns_ErrOpen_When_Path_Is_Empty(t *testing.T) {
	t.Parallel()

	_, err := slotdb.Open(slotdb.Options{})
	require.ErrorIs(t, err, slotdb.ErrOpen)
}

func Test_Open_Returns_ErrLoad_When_File_Has_Wrong_Size(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		size int
	}{
		{"Empty", 0},
		{"OneRecord", slotdb.RecordSize},
		{"OneByteShort", slotdb.ImageSize - 1},
		{"OneByteLong", slotdb.ImageSize + 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "test.db")
			require.NoError(t, os.WriteFile(path, make([]byte, tc.size), 0o644))

			conn, err := slotdb.Open(slotdb.Options{Path: path})
			require.ErrorIs(t, err, slotdb.ErrLoad)
			assert.Nil(t, conn)
			assert.True(t, slotdb.IsFatal(err))
		})
	}
}

func Test_Open_Returns_ErrLoad_Wrapping_ErrCorrupt_When_Ids_Are_Wrong(t *testing.T) {
	t.Parallel()

	// A zeroed image has id 0 in every slot, so slot 1 is wrong.
	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(path, make([]byte, slotdb.ImageSize), 0o644))

	_, err := slotdb.Open(slotdb.Options{Path: path})
	require.ErrorIs(t, err, slotdb.ErrLoad)
	require.ErrorIs(t, err, slotdb.ErrCorrupt)
}

func Test_Create_Write_Produces_File_Of_ImageSize_When_Created(t *testing.T) {
	t.Parallel()

	path := newDBPath(t)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(slotdb.ImageSize), info.Size())
}

func Test_Create_Truncates_Existing_File_When_Mode_Is_Create(t *testing.T) {
	t.Parallel()

	path := newDBPath(t)

	conn := openDB(t, path)
	require.NoError(t, conn.Set(1, "a", "b"))
	require.NoError(t, conn.Write())
	require.NoError(t, conn.Close())

	created, err := slotdb.Open(slotdb.Options{Path: path, Mode: slotdb.ModeCreate})
	require.NoError(t, err)
	require.NoError(t, created.Create())
	require.NoError(t, created.Write())
	require.NoError(t, created.Close())

	reopened := openDB(t, path)
	assert.Empty(t, listEntries(t, reopened))
}

func Test_Load_Yields_Empty_Slots_With_Matching_Ids_When_Fresh_Connection_Reads_Created_File(t *testing.T) {
	t.Parallel()

	path := newDBPath(t)
	conn := openDB(t, path)

	n, err := conn.Len()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for id := range slotdb.MaxRows {
		_, err := conn.Get(id)
		require.ErrorIs(t, err, slotdb.ErrNotSet, "slot %d", id)
	}

	// Every record on disk must carry its own position as id.
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	for id := range slotdb.MaxRows {
		rec := data[id*slotdb.RecordSize:]
		assert.Equal(t, uint32(id), binary.NativeEndian.Uint32(rec), "stored id of slot %d", id)
	}
}

func Test_Write_Returns_ErrNoTable_When_Create_Was_Not_Called(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")

	conn, err := slotdb.Open(slotdb.Options{Path: path, Mode: slotdb.ModeCreate})
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Write()
	require.ErrorIs(t, err, slotdb.ErrNoTable)
	assert.Equal(t, slotdb.KindResource, slotdb.KindOf(err))
}

func Test_Close_Is_Idempotent_And_Operations_Return_ErrClosed_When_Closed(t *testing.T) {
	t.Parallel()

	conn, err := slotdb.Open(slotdb.Options{Path: newDBPath(t)})
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "second Close should be a no-op")

	require.ErrorIs(t, conn.Create(), slotdb.ErrClosed)
	require.ErrorIs(t, conn.Load(), slotdb.ErrClosed)
	require.ErrorIs(t, conn.Write(), slotdb.ErrClosed)
	require.ErrorIs(t, conn.Set(1, "a", "b"), slotdb.ErrClosed)
	require.ErrorIs(t, conn.Delete(1), slotdb.ErrClosed)

	_, err = conn.Get(1)
	require.ErrorIs(t, err, slotdb.ErrClosed)

	_, err = conn.List()
	require.ErrorIs(t, err, slotdb.ErrClosed)

	_, err = conn.Snapshot()
	require.ErrorIs(t, err, slotdb.ErrClosed)
}

func Test_Open_Returns_ErrOpen_When_Filesystem_Fails_Open(t *testing.T) {
	t.Parallel()

	faulty := slotfs.NewFaulty(slotfs.NewReal())
	faulty.Fail(slotfs.OpOpen, syscall.EACCES)

	_, err := slotdb.Open(slotdb.Options{Path: newDBPath(t), FS: faulty})
	require.ErrorIs(t, err, slotdb.ErrOpen)
	require.ErrorIs(t, err, syscall.EACCES)
	assert.True(t, slotfs.IsInjected(err))
}

func Test_Open_Returns_ErrLoad_When_Read_Fails(t *testing.T) {
	t.Parallel()

	faulty := slotfs.NewFaulty(slotfs.NewReal())
	faulty.Fail(slotfs.OpRead, syscall.EIO)

	_, err := slotdb.Open(slotdb.Options{Path: newDBPath(t), FS: faulty})
	require.ErrorIs(t, err, slotdb.ErrLoad)
	require.ErrorIs(t, err, syscall.EIO)
}

func Test_Open_Loads_Table_When_Reads_Are_Short(t *testing.T) {
	t.Parallel()

	path := newDBPath(t)

	conn := openDB(t, path)
	require.NoError(t, conn.Set(50, "Carol", "c@x.com"))
	require.NoError(t, conn.Write())
	require.NoError(t, conn.Close())

	faulty := slotfs.NewFaulty(slotfs.NewReal())
	faulty.Short(slotfs.OpRead)

	reopened, err := slotdb.Open(slotdb.Options{Path: path, FS: faulty})
	require.NoError(t, err)
	defer reopened.Close()

	entry, err := reopened.Get(50)
	require.NoError(t, err)
	assert.Equal(t, slotdb.Entry{ID: 50, Name: "Carol", Email: "c@x.com"}, entry)
	assert.Positive(t, faulty.Count(slotfs.OpRead))
}

func Test_Write_Returns_ErrWrite_When_Write_Is_Short(t *testing.T) {
	t.Parallel()

	faulty := slotfs.NewFaulty(slotfs.NewReal())

	conn, err := slotdb.Open(slotdb.Options{Path: newDBPath(t), FS: faulty})
	require.NoError(t, err)
	defer conn.Close()

	faulty.Short(slotfs.OpWrite)

	err = conn.Write()
	require.ErrorIs(t, err, slotdb.ErrWrite)
	assert.Contains(t, err.Error(), "wrote 51600 of 103200 bytes")
	assert.True(t, slotdb.IsFatal(err))
}

func Test_Write_Returns_ErrWrite_When_Write_Fails(t *testing.T) {
	t.Parallel()

	faulty := slotfs.NewFaulty(slotfs.NewReal())

	conn, err := slotdb.Open(slotdb.Options{Path: newDBPath(t), FS: faulty})
	require.NoError(t, err)
	defer conn.Close()

	faulty.Fail(slotfs.OpWrite, syscall.ENOSPC)

	err = conn.Write()
	require.ErrorIs(t, err, slotdb.ErrWrite)
	require.ErrorIs(t, err, syscall.ENOSPC)
}

func Test_Write_Returns_ErrFlush_When_Sync_Fails(t *testing.T) {
	t.Parallel()

	faulty := slotfs.NewFaulty(slotfs.NewReal())

	conn, err := slotdb.Open(slotdb.Options{Path: newDBPath(t), FS: faulty})
	require.NoError(t, err)
	defer conn.Close()

	faulty.Fail(slotfs.OpSync, syscall.EIO)

	err = conn.Write()
	require.ErrorIs(t, err, slotdb.ErrFlush)
	require.NotErrorIs(t, err, slotdb.ErrWrite)
	assert.Equal(t, slotdb.KindIO, slotdb.KindOf(err))
}

func Test_Open_Returns_ErrBusy_When_Another_Connection_Holds_The_Lock(t *testing.T) {
	t.Parallel()

	path := newDBPath(t)
	opts := slotdb.Options{Path: path, Lock: true, LockTimeout: 50 * time.Millisecond}

	first, err := slotdb.Open(opts)
	require.NoError(t, err)

	_, err = slotdb.Open(opts)
	require.ErrorIs(t, err, slotdb.ErrBusy)
	require.ErrorIs(t, err, slotfs.ErrWouldBlock)

	require.NoError(t, first.Close())

	second, err := slotdb.Open(opts)
	require.NoError(t, err, "lock should be free after Close")
	require.NoError(t, second.Close())
}

func Test_Open_Releases_Lock_When_Load_Fails(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := slotdb.Open(slotdb.Options{Path: path, Lock: true})
	require.ErrorIs(t, err, slotdb.ErrLoad)

	lock, err := slotfs.NewLocker(slotfs.NewReal()).TryLock(path + ".lock")
	require.NoError(t, err, "failed Open must not leak the lock")
	require.NoError(t, lock.Close())
}

func Test_Open_Releases_Lock_When_File_Cannot_Be_Opened(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := slotdb.Open(slotdb.Options{Path: path, Lock: true})
	require.ErrorIs(t, err, slotdb.ErrOpen)

	lock, err := slotfs.NewLocker(slotfs.NewReal()).TryLock(path + ".lock")
	require.NoError(t, err, "failed Open must not leak the lock")
	require.NoError(t, lock.Close())
}

func Test_Load_Leaves_Conn_Without_Table_When_File_Was_Truncated_Underneath(t *testing.T) {
	t.Parallel()

	path := newDBPath(t)
	conn := openDB(t, path)

	require.NoError(t, os.Truncate(path, 10))

	err := conn.Load()
	require.ErrorIs(t, err, slotdb.ErrLoad)

	_, err = conn.Get(0)
	require.ErrorIs(t, err, slotdb.ErrNoTable)
	assert.True(t, errors.Is(conn.Write(), slotdb.ErrNoTable))
}

func Test_Load_Returns_ErrLoad_When_Seek_Fails(t *testing.T) {
	t.Parallel()

	faulty := slotfs.NewFaulty(slotfs.NewReal())
	faulty.Fail(slotfs.OpSeek, syscall.EIO)

	conn, err := slotdb.Open(slotdb.Options{Path: newDBPath(t), FS: faulty})
	require.ErrorIs(t, err, slotdb.ErrLoad)
	require.ErrorIs(t, err, syscall.EIO)
	assert.Contains(t, err.Error(), "seek")
	assert.Nil(t, conn)
}

func Test_Write_Returns_ErrWrite_When_Seek_Fails(t *testing.T) {
	t.Parallel()

	faulty := slotfs.NewFaulty(slotfs.NewReal())

	conn, err := slotdb.Open(slotdb.Options{Path: newDBPath(t), FS: faulty})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Set(1, "a", "b"))

	faulty.Fail(slotfs.OpSeek, syscall.EIO)

	err = conn.Write()
	require.ErrorIs(t, err, slotdb.ErrWrite)
	require.ErrorIs(t, err, syscall.EIO)
	assert.True(t, slotdb.IsFatal(err))
	assert.Equal(t, 1, faulty.Count(slotfs.OpSeek))
}
