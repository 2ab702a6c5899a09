package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/calvinalkan/slotdb/internal/config"
	"github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"

	flag "github.com/spf13/pflag"
)

var errDBExists = errors.New("database already exists")

// CreateCmd returns the create command.
func CreateCmd(cfg *config.Config, fsys fs.FS) *Command {
	flags := flag.NewFlagSet("create", flag.ContinueOnError)
	flags.Bool("force", false, "Overwrite an existing database")

	return &Command{
		Flags: flags,
		Usage: "create [flags]",
		Short: "Initialize an empty database",
		Long: `Write a database file with every slot empty.

An existing file is only replaced with --force.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: create takes no arguments", errUsage)
			}

			force, _ := flags.GetBool("force")

			return execCreate(o, cfg, fsys, force)
		},
	}
}

func execCreate(o *IO, cfg *config.Config, fsys fs.FS, force bool) error {
	exists, err := fsys.Exists(cfg.DBFileAbs)
	if err != nil {
		return fmt.Errorf("checking %s: %w", cfg.DBFileAbs, err)
	}

	if exists && !force {
		return fmt.Errorf("%w: %s (use --force to overwrite)", errDBExists, cfg.DBFileAbs)
	}

	err = withConn(cfg, fsys, slotdb.ModeCreate, func(conn *slotdb.Conn) error {
		if err := conn.Create(); err != nil {
			return err
		}

		return conn.Write()
	})
	if err != nil {
		return err
	}

	o.Println(cfg.DBFileAbs)

	return nil
}
