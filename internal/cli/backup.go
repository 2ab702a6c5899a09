package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/calvinalkan/slotdb/internal/config"
	"github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

const backupPerm = 0o644

// BackupCmd returns the backup command.
func BackupCmd(cfg *config.Config, fsys fs.FS) *Command {
	cmd := &Command{
		Usage: "backup <dest>",
		Short: "Copy the database atomically",
		Long: `Load and validate the database, then write its image to <dest>.

<dest> is replaced atomically: readers see either the old file or the
complete new one.`,
	}

	cmd.Exec = func(_ context.Context, o *IO, args []string) error {
		if err := cmd.wantArgs(args, 1); err != nil {
			return err
		}

		dest := args[0]
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(cfg.EffectiveCwd, dest)
		}

		if dest == cfg.DBFileAbs {
			return fmt.Errorf("%w: backup destination is the database itself", errUsage)
		}

		var image []byte

		err := withConn(cfg, fsys, slotdb.ModeModify, func(conn *slotdb.Conn) error {
			var err error

			image, err = conn.Snapshot()

			return err
		})
		if err != nil {
			return err
		}

		if err := fsys.WriteFileAtomic(dest, image, backupPerm); err != nil {
			return fmt.Errorf("writing backup %s: %w", dest, err)
		}

		o.Println(dest)

		return nil
	}

	return cmd
}
