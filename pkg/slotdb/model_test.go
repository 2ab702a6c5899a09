package slotdb_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

// model is the reference behavior: a map from id to entry.
type model map[int]slotdb.Entry

func (m model) entries() []slotdb.Entry {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	// nil when empty, like slices.Collect.
	var out []slotdb.Entry
	for _, id := range ids {
		out = append(out, m[id])
	}

	return out
}

func Test_Conn_Matches_Model_When_Running_Random_Operations(t *testing.T) {
	t.Parallel()

	for _, seed := range []uint64{1, 2, 3, 42, 1337} {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			t.Parallel()

			runModel(t, seed, 500)
		})
	}
}

func runModel(t *testing.T, seed uint64, steps int) {
	t.Helper()

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	path := newDBPath(t)
	conn := openDB(t, path)
	want := model{}

	// Ids slightly outside the valid range exercise ErrRange.
	randID := func() int { return rng.IntN(slotdb.MaxRows+4) - 2 }

	for step := range steps {
		switch op := rng.IntN(10); {
		case op < 4:
			id := randID()
			name := fmt.Sprintf("name-%d", rng.IntN(1000))
			email := fmt.Sprintf("%d@example.com", rng.IntN(1000))

			err := conn.Set(id, name, email)

			switch _, occupied := want[id]; {
			case id < 0 || id >= slotdb.MaxRows:
				mustBe(t, step, "Set", err, slotdb.ErrRange)
			case occupied:
				mustBe(t, step, "Set", err, slotdb.ErrAlreadySet)
			default:
				mustBe(t, step, "Set", err, nil)

				want[id] = slotdb.Entry{ID: id, Name: name, Email: email}
			}

		case op < 6:
			id := randID()
			got, err := conn.Get(id)

			switch entry, occupied := want[id]; {
			case id < 0 || id >= slotdb.MaxRows:
				mustBe(t, step, "Get", err, slotdb.ErrRange)
			case !occupied:
				mustBe(t, step, "Get", err, slotdb.ErrNotSet)
			default:
				mustBe(t, step, "Get", err, nil)

				if diff := cmp.Diff(entry, got); diff != "" {
					t.Fatalf("step %d: Get(%d) mismatch (-want +got):\n%s", step, id, diff)
				}
			}

		case op < 8:
			id := randID()
			err := conn.Delete(id)

			if id < 0 || id >= slotdb.MaxRows {
				mustBe(t, step, "Delete", err, slotdb.ErrRange)
			} else {
				mustBe(t, step, "Delete", err, nil)
				delete(want, id)
			}

		case op < 9:
			if diff := cmp.Diff(want.entries(), listEntries(t, conn)); diff != "" {
				t.Fatalf("step %d: List mismatch (-want +got):\n%s", step, diff)
			}

		default:
			// Persist and reopen: the file must round-trip the table.
			if err := conn.Write(); err != nil {
				t.Fatalf("step %d: Write: %v", step, err)
			}

			if err := conn.Close(); err != nil {
				t.Fatalf("step %d: Close: %v", step, err)
			}

			conn = openDB(t, path)
		}
	}

	if diff := cmp.Diff(want.entries(), listEntries(t, conn)); diff != "" {
		t.Fatalf("final List mismatch (-want +got):\n%s", diff)
	}
}

func mustBe(t *testing.T, step int, op string, err, want error) {
	t.Helper()

	if want == nil {
		if err != nil {
			t.Fatalf("step %d: %s: unexpected error: %v", step, op, err)
		}

		return
	}

	if !errors.Is(err, want) {
		t.Fatalf("step %d: %s: got %v, want %v", step, op, err, want)
	}
}
