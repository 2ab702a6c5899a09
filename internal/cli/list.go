package cli

import (
	"context"
	"fmt"

	"github.com/calvinalkan/slotdb/internal/config"
	"github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"

	flag "github.com/spf13/pflag"
)

// ListCmd returns the list command.
func ListCmd(cfg *config.Config, fsys fs.FS) *Command {
	flags := flag.NewFlagSet("list", flag.ContinueOnError)
	flags.BoolP("count", "n", false, "Print only the number of records")

	return &Command{
		Flags: flags,
		Usage: "list [flags]",
		Short: "Print all records",
		Long:  "Print every occupied slot in ascending id order, one \"id name email\" line each.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: list takes no arguments", errUsage)
			}

			countOnly, _ := flags.GetBool("count")

			return withConn(cfg, fsys, slotdb.ModeModify, func(conn *slotdb.Conn) error {
				if countOnly {
					n, err := conn.Len()
					if err != nil {
						return err
					}

					o.Println(n)

					return nil
				}

				seq, err := conn.List()
				if err != nil {
					return err
				}

				for entry := range seq {
					printEntry(o, entry)
				}

				return nil
			})
		},
	}
}
