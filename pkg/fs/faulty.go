package fs

import (
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"sync"
	"syscall"
)

// Op identifies an operation that [Faulty] can fail.
type Op string

// Operations recognised by [Faulty.Fail] and [Faulty.Short].
const (
	OpOpen        Op = "open"
	OpStat        Op = "stat" // Stat and Exists
	OpRead        Op = "file.read"
	OpWrite       Op = "file.write"
	OpSync        Op = "file.sync"
	OpSeek        Op = "file.seek"
	OpAtomicWrite Op = "writefileatomic"
)

// InjectedError marks an error as intentionally injected by [Faulty].
//
// It wraps the underlying error so errors.Is/As continue to work, including
// errors.Is(err, syscall.EIO) for errno faults.
type InjectedError struct {
	Err error
}

func (e *InjectedError) Error() string {
	return e.Err.Error()
}

func (e *InjectedError) Unwrap() error {
	return e.Err
}

// IsInjected reports whether err (or any wrapped error) was injected by [Faulty].
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

type fault struct {
	errno syscall.Errno
	short bool
	skip  int
}

// Faulty wraps an [FS] and fails chosen operations deterministically.
//
// Unlike a random fault injector, every fault is armed explicitly, which
// keeps error-path tests exact:
//
//	faulty := fs.NewFaulty(fs.NewReal())
//	faulty.Fail(fs.OpSync, syscall.EIO)
//	// the next File.Sync returns an EIO *fs.PathError
//
// Faults stay armed until [Faulty.Clear]. Faulty is safe for concurrent use.
type Faulty struct {
	fs FS

	mu     sync.Mutex
	faults map[Op]fault
	counts map[Op]int
}

// NewFaulty creates a [Faulty] wrapping underlying. Panics if underlying is nil.
func NewFaulty(underlying FS) *Faulty {
	if underlying == nil {
		panic("underlying fs is nil")
	}

	return &Faulty{
		fs:     underlying,
		faults: make(map[Op]fault),
		counts: make(map[Op]int),
	}
}

// Fail arms op to fail with errno.
func (f *Faulty) Fail(op Op, errno syscall.Errno) {
	f.FailAfter(op, errno, 0)
}

// FailAfter arms op to fail with errno once skip calls have succeeded.
func (f *Faulty) FailAfter(op Op, errno syscall.Errno, skip int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.faults[op] = fault{errno: errno, skip: skip}
}

// Short arms op to transfer only half of the requested bytes.
//
// A short File.Write returns [io.ErrShortWrite]; a short File.Read returns the
// partial count with a nil error, which is legal [io.Reader] behavior.
func (f *Faulty) Short(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.faults[op] = fault{short: true}
}

// Clear disarms op.
func (f *Faulty) Clear(op Op) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.faults, op)
}

// Count returns how many faults were injected for op.
func (f *Faulty) Count(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.counts[op]
}

// take reports the armed fault for op, if it should fire now.
func (f *Faulty) take(op Op) (fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	flt, ok := f.faults[op]
	if !ok {
		return fault{}, false
	}

	if flt.skip > 0 {
		flt.skip--
		f.faults[op] = flt

		return fault{}, false
	}

	f.counts[op]++

	return flt, true
}

func injectedPathError(op, path string, errno syscall.Errno) error {
	return &InjectedError{Err: &iofs.PathError{Op: op, Path: path, Err: errno}}
}

func (f *Faulty) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if flt, ok := f.take(OpOpen); ok && !flt.short {
		return nil, injectedPathError("open", path, flt.errno)
	}

	file, err := f.fs.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &faultyFile{File: file, parent: f, path: path}, nil
}

func (f *Faulty) Stat(path string) (os.FileInfo, error) {
	if flt, ok := f.take(OpStat); ok && !flt.short {
		return nil, injectedPathError("stat", path, flt.errno)
	}

	return f.fs.Stat(path)
}

func (f *Faulty) Exists(path string) (bool, error) {
	if flt, ok := f.take(OpStat); ok && !flt.short {
		return false, injectedPathError("stat", path, flt.errno)
	}

	return f.fs.Exists(path)
}

func (f *Faulty) MkdirAll(path string, perm os.FileMode) error {
	return f.fs.MkdirAll(path, perm)
}

func (f *Faulty) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if flt, ok := f.take(OpAtomicWrite); ok && !flt.short {
		return injectedPathError("rename", path, flt.errno)
	}

	return f.fs.WriteFileAtomic(path, data, perm)
}

// faultyFile consults its parent [Faulty] before each I/O call.
type faultyFile struct {
	File

	parent *Faulty
	path   string
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	flt, ok := ff.parent.take(OpRead)
	if !ok {
		return ff.File.Read(p)
	}

	if flt.short {
		if len(p) > 1 {
			p = p[:len(p)/2]
		}

		return ff.File.Read(p)
	}

	return 0, injectedPathError("read", ff.path, flt.errno)
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	flt, ok := ff.parent.take(OpWrite)
	if !ok {
		return ff.File.Write(p)
	}

	if flt.short {
		n, err := ff.File.Write(p[:len(p)/2])
		if err != nil {
			return n, err
		}

		return n, &InjectedError{Err: io.ErrShortWrite}
	}

	return 0, injectedPathError("write", ff.path, flt.errno)
}

func (ff *faultyFile) Seek(offset int64, whence int) (int64, error) {
	if flt, ok := ff.parent.take(OpSeek); ok && !flt.short {
		return 0, injectedPathError("seek", ff.path, flt.errno)
	}

	return ff.File.Seek(offset, whence)
}

func (ff *faultyFile) Sync() error {
	if flt, ok := ff.parent.take(OpSync); ok && !flt.short {
		return injectedPathError("sync", ff.path, flt.errno)
	}

	return ff.File.Sync()
}

// Compile-time interface checks.
var (
	_ FS   = (*Faulty)(nil)
	_ File = (*faultyFile)(nil)
)
