package cli_test

import (
	"testing"

	"github.com/calvinalkan/slotdb/internal/cli"
	"github.com/calvinalkan/slotdb/pkg/fs"
)

func Test_Commands_Fail_Busy_When_Another_Process_Holds_The_Lock(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustRun("create")
	c.WriteFile(".slotdb.json", `{"lock_timeout": "30ms"}`)

	lock, err := fs.NewLocker(fs.NewReal()).TryLock(c.DBPath() + ".lock")
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}

	stderr := c.MustFail(2, "set", "1", "n", "e")
	cli.AssertContains(t, stderr, "busy")

	// --no-lock bypasses the advisory lock.
	c.MustRun("--no-lock", "list")

	if err := lock.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c.MustRun("set", "1", "n", "e")
}
