package cli

import (
	"context"

	"github.com/calvinalkan/slotdb/internal/config"
	"github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

// DeleteCmd returns the delete command.
func DeleteCmd(cfg *config.Config, fsys fs.FS) *Command {
	cmd := &Command{
		Usage: "delete <id>",
		Short: "Empty a slot",
		Long:  "Empty slot <id> and save the database. Deleting an empty slot succeeds.",
	}

	cmd.Exec = func(_ context.Context, _ *IO, args []string) error {
		if err := cmd.wantArgs(args, 1); err != nil {
			return err
		}

		id, err := slotdb.ParseID(args[0])
		if err != nil {
			return err
		}

		return withConn(cfg, fsys, slotdb.ModeModify, func(conn *slotdb.Conn) error {
			if err := conn.Delete(id); err != nil {
				return err
			}

			return conn.Write()
		})
	}

	return cmd
}
