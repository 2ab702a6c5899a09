package cli

import (
	"context"
	"fmt"

	"github.com/calvinalkan/slotdb/internal/config"
	"github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

// SetCmd returns the set command.
func SetCmd(cfg *config.Config, fsys fs.FS) *Command {
	cmd := &Command{
		Usage: "set <id> <name> <email>",
		Short: "Store a record in an empty slot",
		Long: fmt.Sprintf(`Store name and email in slot <id> and save the database.

The slot must be empty; delete it first to replace a record.
Text longer than %d bytes is truncated.`, slotdb.MaxData-1),
	}

	cmd.Exec = func(_ context.Context, o *IO, args []string) error {
		if err := cmd.wantArgs(args, 3); err != nil {
			return err
		}

		id, err := slotdb.ParseID(args[0])
		if err != nil {
			return err
		}

		name, email := args[1], args[2]

		err = withConn(cfg, fsys, slotdb.ModeModify, func(conn *slotdb.Conn) error {
			if err := conn.Set(id, name, email); err != nil {
				return err
			}

			return conn.Write()
		})
		if err != nil {
			return err
		}

		warnTruncated(o, "name", name)
		warnTruncated(o, "email", email)

		return nil
	}

	return cmd
}

func warnTruncated(o *IO, field, value string) {
	if len(value) > slotdb.MaxData-1 {
		o.Warn(fmt.Sprintf("%s truncated from %d to %d bytes", field, len(value), slotdb.MaxData-1),
			"shorten the value to store it completely")
	}
}
