// Package slotdb is a fixed-slot record store persisted as one flat file.
//
// A database file holds exactly [MaxRows] records of [RecordSize] bytes each,
// addressed by position. The whole table is loaded into memory on open and
// written back as a complete image; there is no header, no index and no
// partial update.
//
// # Basic Usage
//
//	conn, err := slotdb.Open(slotdb.Options{Path: "addresses.db"})
//	if err != nil {
//	    return err // ErrOpen, ErrLoad or ErrBusy
//	}
//	defer conn.Close()
//
//	if err := conn.Set(3, "Alice", "a@x.com"); err != nil {
//	    return err // ErrRange or ErrAlreadySet, table unchanged
//	}
//	if err := conn.Write(); err != nil {
//	    return err // ErrWrite or ErrFlush, treat the file as corrupt
//	}
//
// A new file is initialized with [ModeCreate] followed by [Conn.Create] and
// [Conn.Write].
//
// # File Format
//
// Each record is, in order: id (int32), occupied flag (int32, 0 or 1), name
// ([MaxData] bytes, NUL-terminated) and email ([MaxData] bytes,
// NUL-terminated). Integers use the host's native byte order, so files are
// only portable between hosts of the same endianness.
//
// # Concurrency
//
// A [Conn] is not safe for concurrent use. Cross-process exclusion is
// available through [Options.Lock], an advisory flock(2) on a sidecar
// "<path>.lock" file; without it two processes writing the same file will
// corrupt it.
//
// # Error Handling
//
// Errors fall into three kinds, see [KindOf]:
//
// Fatal I/O errors ([ErrOpen], [ErrLoad], [ErrCorrupt], [ErrWrite],
// [ErrFlush], [ErrBusy]): abort the invocation and close the connection.
//
// Resource errors ([ErrClosed], [ErrNoTable]): the connection has no usable
// table. Also fatal.
//
// Validation errors ([ErrRange], [ErrInvalidID], [ErrAlreadySet],
// [ErrNotSet]): the table is unchanged and the caller may continue.
package slotdb
