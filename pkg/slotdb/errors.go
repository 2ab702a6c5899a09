package slotdb

import "errors"

// Sentinel errors returned by slotdb operations.
//
// Callers should use [errors.Is] to check error types. Fatal errors wrap the
// underlying OS error, so errors.Is(err, fs.ErrNotExist) also works:
//
//	if errors.Is(err, slotdb.ErrNotSet) {
//	    // report and continue
//	}
var (
	// ErrOpen indicates the database file could not be opened in the
	// requested mode.
	ErrOpen = errors.New("slotdb: failed to open file")

	// ErrLoad indicates the file could not be read as a complete table image,
	// for example because it is empty, truncated or too long.
	ErrLoad = errors.New("slotdb: failed to load database")

	// ErrCorrupt indicates the file has the right size but its records break
	// the format invariants. It is always wrapped by [ErrLoad].
	ErrCorrupt = errors.New("slotdb: corrupt")

	// ErrWrite indicates the table image was not written completely.
	//
	// The on-disk file is undefined afterwards and must be treated as corrupt.
	ErrWrite = errors.New("slotdb: failed to write database")

	// ErrFlush indicates the written image could not be synced to stable
	// storage.
	//
	// The on-disk file is undefined afterwards and must be treated as corrupt.
	ErrFlush = errors.New("slotdb: cannot flush database")

	// ErrBusy indicates another process holds the database lock.
	//
	// Recovery: retry after a short delay.
	ErrBusy = errors.New("slotdb: busy")

	// ErrClosed indicates the [Conn] has already been closed.
	ErrClosed = errors.New("slotdb: closed")

	// ErrNoTable indicates the connection has no table: the file was opened
	// with [ModeCreate] and [Conn.Create] has not been called, or a previous
	// [Conn.Load] failed.
	ErrNoTable = errors.New("slotdb: no table loaded")

	// ErrRange indicates an id outside [0, MaxRows).
	ErrRange = errors.New("slotdb: there's not that many records")

	// ErrInvalidID indicates an id argument that is not a decimal integer.
	ErrInvalidID = errors.New("slotdb: invalid id")

	// ErrAlreadySet indicates [Conn.Set] on an occupied slot.
	//
	// Recovery: [Conn.Delete] the slot first.
	ErrAlreadySet = errors.New("slotdb: already set, delete it first")

	// ErrNotSet indicates [Conn.Get] on an unoccupied slot.
	ErrNotSet = errors.New("slotdb: id is not set")
)

// Kind classifies an error by how the caller should react to it.
type Kind uint8

const (
	// KindNone is the kind of a nil error.
	KindNone Kind = iota

	// KindValidation errors leave the table unchanged; the caller may continue.
	KindValidation

	// KindIO errors come from the file system; the invocation must abort.
	KindIO

	// KindResource errors mean the connection has no usable table; the
	// invocation must abort.
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindIO:
		return "io"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

var (
	validationErrors = []error{ErrRange, ErrInvalidID, ErrAlreadySet, ErrNotSet}
	resourceErrors   = []error{ErrClosed, ErrNoTable}
)

// KindOf classifies err.
//
// Errors that match no slotdb sentinel are reported as [KindIO], so unknown
// failures are never mistaken for recoverable ones.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}

	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return KindValidation
		}
	}

	for _, target := range resourceErrors {
		if errors.Is(err, target) {
			return KindResource
		}
	}

	return KindIO
}

// IsFatal reports whether err must abort the current invocation.
func IsFatal(err error) bool {
	kind := KindOf(err)

	return kind == KindIO || kind == KindResource
}
