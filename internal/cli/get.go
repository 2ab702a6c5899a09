package cli

import (
	"context"

	"github.com/calvinalkan/slotdb/internal/config"
	"github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

// GetCmd returns the get command.
func GetCmd(cfg *config.Config, fsys fs.FS) *Command {
	cmd := &Command{
		Usage: "get <id>",
		Short: "Print one record",
		Long:  "Print the record in slot <id> as \"id name email\". Fails if the slot is empty.",
	}

	cmd.Exec = func(_ context.Context, o *IO, args []string) error {
		if err := cmd.wantArgs(args, 1); err != nil {
			return err
		}

		id, err := slotdb.ParseID(args[0])
		if err != nil {
			return err
		}

		return withConn(cfg, fsys, slotdb.ModeModify, func(conn *slotdb.Conn) error {
			entry, err := conn.Get(id)
			if err != nil {
				return err
			}

			printEntry(o, entry)

			return nil
		})
	}

	return cmd
}
