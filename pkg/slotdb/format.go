package slotdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Table geometry. The on-disk size depends on every one of these, so they
// are fixed rather than configurable.
const (
	// MaxRows is the number of slots in a table.
	MaxRows = 100

	// MaxData is the capacity of each text field in bytes, including the
	// NUL terminator. Stored text is at most MaxData-1 bytes.
	MaxData = 512

	// RecordSize is the encoded size of one record.
	RecordSize = offEmail + MaxData

	// ImageSize is the exact size of a valid database file.
	ImageSize = MaxRows * RecordSize
)

// Record field offsets (bytes from record start).
const (
	offID       = 0 // int32
	offOccupied = 4 // int32, 0 or 1
	offName     = 8 // [MaxData]byte
	offEmail    = offName + MaxData
)

// Record is one fixed-size slot.
//
// ID always equals the slot's position. When Occupied is false the text
// fields are zero.
type Record struct {
	ID       int32
	Occupied bool
	Name     [MaxData]byte
	Email    [MaxData]byte
}

// table is the in-memory image of a database file.
type table [MaxRows]Record

// emptyRecord returns the unoccupied value of slot id.
func emptyRecord(id int) Record {
	return Record{ID: int32(id)}
}

// newTable allocates a table with every slot empty.
func newTable() *table {
	t := new(table)
	for i := range t {
		t[i] = emptyRecord(i)
	}

	return t
}

// setText copies s into dst, truncated to MaxData-1 bytes, and terminates it
// inside the field. The rest of the field is zeroed.
func setText(dst *[MaxData]byte, s string) {
	clear(dst[:])
	copy(dst[:MaxData-1], s)
}

// text returns the field contents up to the first NUL.
func text(field *[MaxData]byte) string {
	n := bytes.IndexByte(field[:], 0)
	if n < 0 {
		n = MaxData - 1
	}

	return string(field[:n])
}

func encodeRecord(buf []byte, r *Record) {
	var occupied uint32
	if r.Occupied {
		occupied = 1
	}

	binary.NativeEndian.PutUint32(buf[offID:], uint32(r.ID))
	binary.NativeEndian.PutUint32(buf[offOccupied:], occupied)
	copy(buf[offName:offEmail], r.Name[:])
	copy(buf[offEmail:RecordSize], r.Email[:])
}

// decodeRecord parses the record stored at position pos. Returns ErrCorrupt
// if the record breaks a format invariant.
func decodeRecord(buf []byte, pos int) (Record, error) {
	var r Record

	id := int32(binary.NativeEndian.Uint32(buf[offID:]))
	if int(id) != pos {
		return Record{}, fmt.Errorf("%w: record %d has id %d", ErrCorrupt, pos, id)
	}

	switch occupied := binary.NativeEndian.Uint32(buf[offOccupied:]); occupied {
	case 0:
	case 1:
		r.Occupied = true
	default:
		return Record{}, fmt.Errorf("%w: record %d has occupied flag %d", ErrCorrupt, pos, occupied)
	}

	r.ID = id

	// Text of empty slots is dropped, so it is zero in memory and on the
	// next Write.
	if !r.Occupied {
		return r, nil
	}

	copy(r.Name[:], buf[offName:offEmail])
	copy(r.Email[:], buf[offEmail:RecordSize])

	if bytes.IndexByte(r.Name[:], 0) < 0 {
		return Record{}, fmt.Errorf("%w: record %d name is not terminated", ErrCorrupt, pos)
	}

	if bytes.IndexByte(r.Email[:], 0) < 0 {
		return Record{}, fmt.Errorf("%w: record %d email is not terminated", ErrCorrupt, pos)
	}

	return r, nil
}

// encodeTable serializes t into a new ImageSize-byte buffer.
func encodeTable(t *table) []byte {
	buf := make([]byte, ImageSize)
	for i := range t {
		encodeRecord(buf[i*RecordSize:(i+1)*RecordSize], &t[i])
	}

	return buf
}

// decodeTable parses a complete image. buf must be exactly ImageSize bytes.
func decodeTable(buf []byte) (*table, error) {
	if len(buf) != ImageSize {
		return nil, fmt.Errorf("%w: image is %d bytes, want %d", ErrCorrupt, len(buf), ImageSize)
	}

	t := new(table)
	for i := range t {
		r, err := decodeRecord(buf[i*RecordSize:(i+1)*RecordSize], i)
		if err != nil {
			return nil, err
		}

		t[i] = r
	}

	return t, nil
}
