package cli

import (
	"errors"

	"github.com/calvinalkan/slotdb/internal/config"
	"github.com/calvinalkan/slotdb/pkg/fs"
	"github.com/calvinalkan/slotdb/pkg/slotdb"
)

// withConn opens the configured database on fsys, runs fn, and always closes
// the connection. A close error is joined to fn's error.
func withConn(cfg *config.Config, fsys fs.FS, mode slotdb.Mode, fn func(conn *slotdb.Conn) error) (err error) {
	conn, err := slotdb.Open(slotdb.Options{
		Path:        cfg.DBFileAbs,
		Mode:        mode,
		FS:          fsys,
		Lock:        cfg.Lock,
		LockTimeout: cfg.LockTimeout,
	})
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, conn.Close())
	}()

	return fn(conn)
}

func printEntry(o *IO, e slotdb.Entry) {
	o.Printf("%d %s %s\n", e.ID, e.Name, e.Email)
}
