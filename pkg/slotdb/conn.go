package slotdb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/calvinalkan/slotdb/pkg/fs"
)

// Mode selects how [Open] treats the database file.
type Mode uint8

const (
	// ModeModify opens an existing file for reading and updating and loads
	// its table eagerly. It is the zero value.
	ModeModify Mode = iota

	// ModeCreate creates or truncates the file. The table stays uninitialized
	// until [Conn.Create].
	ModeCreate
)

func (m Mode) String() string {
	if m == ModeCreate {
		return "create"
	}

	return "modify"
}

const filePerm = 0o644

// Options configure [Open].
type Options struct {
	// Path is the database file.
	Path string

	// Mode is [ModeModify] (default) or [ModeCreate].
	Mode Mode

	// FS is the filesystem to use. Defaults to [fs.NewReal].
	FS fs.FS

	// Lock takes an exclusive advisory lock on Path+".lock" for the lifetime
	// of the connection.
	Lock bool

	// LockTimeout bounds how long Open waits for the lock. Zero blocks until
	// the lock is free.
	LockTimeout time.Duration
}

// Conn binds one open database file to its in-memory table.
//
// The file handle, the table and the optional lock are owned by the Conn and
// released together by [Conn.Close]. A Conn is not safe for concurrent use.
type Conn struct {
	path  string
	mode  Mode
	file  fs.File
	lock  *fs.Lock
	table *table

	closed bool
}

// Open opens the database file at opts.Path.
//
// With [ModeModify] the table is loaded before Open returns. If any step
// fails, everything acquired so far is released and no Conn is returned.
func Open(opts Options) (*Conn, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrOpen)
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = fs.NewReal()
	}

	var lock *fs.Lock

	if opts.Lock {
		var err error

		lock, err = acquireLock(fsys, opts.Path, opts.LockTimeout)
		if err != nil {
			return nil, err
		}
	}

	flag := os.O_RDWR
	if opts.Mode == ModeCreate {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	file, err := fsys.OpenFile(opts.Path, flag, filePerm)
	if err != nil {
		openErr := fmt.Errorf("%w %s (%s): %w", ErrOpen, opts.Path, opts.Mode, err)
		if lock != nil {
			return nil, errors.Join(openErr, lock.Close())
		}

		return nil, openErr
	}

	conn := &Conn{
		path: opts.Path,
		mode: opts.Mode,
		file: file,
		lock: lock,
	}

	if opts.Mode == ModeCreate {
		return conn, nil
	}

	if err := conn.Load(); err != nil {
		return nil, errors.Join(err, conn.Close())
	}

	return conn, nil
}

func acquireLock(fsys fs.FS, path string, timeout time.Duration) (*fs.Lock, error) {
	locker := fs.NewLocker(fsys)
	lockPath := path + ".lock"

	var (
		lock *fs.Lock
		err  error
	)

	if timeout > 0 {
		lock, err = locker.LockWithTimeout(lockPath, timeout)
	} else {
		lock, err = locker.Lock(lockPath)
	}

	if errors.Is(err, fs.ErrWouldBlock) {
		return nil, fmt.Errorf("%w: %s is locked by another process: %w", ErrBusy, path, err)
	}

	if err != nil {
		return nil, fmt.Errorf("%w %s: lock: %w", ErrOpen, path, err)
	}

	return lock, nil
}

// Path returns the database file path.
func (c *Conn) Path() string {
	return c.path
}

// Mode returns the mode the file was opened with.
func (c *Conn) Mode() Mode {
	return c.mode
}

// Load reads the complete table image from the start of the file, replacing
// the in-memory table.
//
// The file must be exactly [ImageSize] bytes. On failure the Conn has no
// table until the next successful Load or [Conn.Create].
func (c *Conn) Load() error {
	if c.closed {
		return ErrClosed
	}

	c.table = nil

	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w %s: seek: %w", ErrLoad, c.path, err)
	}

	buf := make([]byte, ImageSize)

	n, err := io.ReadFull(c.file, buf)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w %s: short read: got %d of %d bytes", ErrLoad, c.path, n, ImageSize)
	}

	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrLoad, c.path, err)
	}

	var extra [1]byte

	n, err = c.file.Read(extra[:])
	if n > 0 {
		return fmt.Errorf("%w %s: file is larger than %d bytes", ErrLoad, c.path, ImageSize)
	}

	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w %s: %w", ErrLoad, c.path, err)
	}

	t, err := decodeTable(buf)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrLoad, c.path, err)
	}

	c.table = t

	return nil
}

// Write replaces the file contents with the in-memory table and syncs it to
// stable storage.
//
// If Write fails the on-disk file is undefined and must be treated as
// corrupt.
func (c *Conn) Write() error {
	if err := c.usable(); err != nil {
		return err
	}

	buf := encodeTable(c.table)

	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w %s: seek: %w", ErrWrite, c.path, err)
	}

	n, err := c.file.Write(buf)
	if n != ImageSize {
		if err == nil {
			err = io.ErrShortWrite
		}

		return fmt.Errorf("%w %s: wrote %d of %d bytes: %w", ErrWrite, c.path, n, ImageSize, err)
	}

	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrWrite, c.path, err)
	}

	if err := c.file.Sync(); err != nil {
		return fmt.Errorf("%w %s: %w", ErrFlush, c.path, err)
	}

	return nil
}

// Snapshot returns the encoded image of the in-memory table, exactly as
// [Conn.Write] would store it.
func (c *Conn) Snapshot() ([]byte, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}

	return encodeTable(c.table), nil
}

// Close releases the file handle, the table and the lock.
//
// Close is idempotent: subsequent calls return nil.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}

	c.closed = true
	c.table = nil

	var closeErr, unlockErr error

	if err := c.file.Close(); err != nil {
		closeErr = fmt.Errorf("closing %s: %w", c.path, err)
	}

	if c.lock != nil {
		if err := c.lock.Close(); err != nil {
			unlockErr = fmt.Errorf("releasing lock on %s: %w", c.path, err)
		}
	}

	return errors.Join(closeErr, unlockErr)
}

func (c *Conn) usable() error {
	if c.closed {
		return ErrClosed
	}

	if c.table == nil {
		return fmt.Errorf("%w: %s", ErrNoTable, c.path)
	}

	return nil
}
