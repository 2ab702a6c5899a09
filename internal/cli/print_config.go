package cli

import (
	"context"
	"fmt"

	"github.com/calvinalkan/slotdb/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("%w: print-config takes no arguments", errUsage)
			}

			execPrintConfig(o, cfg)

			return nil
		},
	}
}

func execPrintConfig(o *IO, cfg *config.Config) {
	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println("db_file=" + cfg.DBFileAbs)
	o.Printf("lock=%t\n", cfg.Lock)
	o.Println("lock_timeout=" + cfg.LockTimeout.String())

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")

		return
	}

	if cfg.Sources.Global != "" {
		o.Println("global_config=" + cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		o.Println("project_config=" + cfg.Sources.Project)
	}
}
