package slotdb

import (
	"fmt"
	"strconv"
)

// Entry is the caller-facing view of an occupied slot.
type Entry struct {
	ID    int
	Name  string
	Email string
}

// Seq is the iterator type returned by [Conn.List].
//
// It matches the shape of iter.Seq[Entry], so callers can range over it or
// use slices.Collect.
type Seq func(yield func(Entry) bool)

// ValidID returns [ErrRange] unless 0 <= id < [MaxRows].
func ValidID(id int) error {
	if id < 0 || id >= MaxRows {
		return fmt.Errorf("%w: id %d not in [0, %d)", ErrRange, id, MaxRows)
	}

	return nil
}

// ParseID parses a decimal id and checks its range.
//
// Returns [ErrInvalidID] if s is not an integer and [ErrRange] if it is
// outside [0, MaxRows).
func ParseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}

	if err := ValidID(id); err != nil {
		return 0, err
	}

	return id, nil
}

// Create resets every slot to empty. It only changes the in-memory table;
// call [Conn.Write] to persist it.
func (c *Conn) Create() error {
	if c.closed {
		return ErrClosed
	}

	c.table = newTable()

	return nil
}

// Set stores name and email in slot id and marks it occupied.
//
// Text longer than MaxData-1 bytes is truncated. Returns [ErrRange] or
// [ErrAlreadySet] without touching the table. Does not persist.
func (c *Conn) Set(id int, name, email string) error {
	if err := c.usable(); err != nil {
		return err
	}

	if err := ValidID(id); err != nil {
		return err
	}

	rec := &c.table[id]
	if rec.Occupied {
		return fmt.Errorf("%w: id %d", ErrAlreadySet, id)
	}

	setText(&rec.Name, name)
	setText(&rec.Email, email)
	rec.Occupied = true

	return nil
}

// Get returns the entry in slot id, or [ErrNotSet] if the slot is empty.
func (c *Conn) Get(id int) (Entry, error) {
	if err := c.usable(); err != nil {
		return Entry{}, err
	}

	if err := ValidID(id); err != nil {
		return Entry{}, err
	}

	rec := &c.table[id]
	if !rec.Occupied {
		return Entry{}, fmt.Errorf("%w: id %d", ErrNotSet, id)
	}

	return entryOf(rec), nil
}

// Delete empties slot id. Deleting an empty slot succeeds. Does not persist.
func (c *Conn) Delete(id int) error {
	if err := c.usable(); err != nil {
		return err
	}

	if err := ValidID(id); err != nil {
		return err
	}

	c.table[id] = emptyRecord(id)

	return nil
}

// List returns an iterator over occupied slots in ascending id order.
//
// The iterator reads the table at iteration time and may be ranged over
// again. Mutating the Conn while iterating is not supported.
func (c *Conn) List() (Seq, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}

	t := c.table

	return func(yield func(Entry) bool) {
		for i := range t {
			if !t[i].Occupied {
				continue
			}

			if !yield(entryOf(&t[i])) {
				return
			}
		}
	}, nil
}

// Len returns the number of occupied slots.
func (c *Conn) Len() (int, error) {
	if err := c.usable(); err != nil {
		return 0, err
	}

	n := 0

	for i := range c.table {
		if c.table[i].Occupied {
			n++
		}
	}

	return n, nil
}

func entryOf(rec *Record) Entry {
	return Entry{
		ID:    int(rec.ID),
		Name:  text(&rec.Name),
		Email: text(&rec.Email),
	}
}
