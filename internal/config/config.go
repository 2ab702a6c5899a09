// Package config resolves slotdb's layered JSONC configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
)

// FileName is the project config file looked up in the work directory.
const FileName = ".slotdb.json"

// Defaults.
const (
	DefaultDBFile      = "slotdb.db"
	DefaultLockTimeout = 2 * time.Second
)

// Config is the resolved configuration for one invocation.
type Config struct {
	DBFile      string        // as configured, possibly relative
	Lock        bool          // take the advisory lock on DBFile+".lock"
	LockTimeout time.Duration // zero blocks until the lock is free

	// Resolved (not read from files)
	EffectiveCwd string
	DBFileAbs    string

	Sources Sources
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // path to global config if loaded, empty otherwise
	Project string // path to project or explicit config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		DBFile:      DefaultDBFile,
		Lock:        true,
		LockTimeout: DefaultLockTimeout,
	}
}

// fileConfig is the on-disk shape. Pointers distinguish "absent" from
// "explicitly set to the zero value".
type fileConfig struct {
	DBFile      *string `json:"db_file"`
	Lock        *bool   `json:"lock"`
	LockTimeout *string `json:"lock_timeout"`
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride string            // -C/--cwd; os.Getwd() if empty
	ConfigPath      string            // -c/--config
	DBFileOverride  string            // -f/--file; empty means no override
	NoLock          bool              // --no-lock
	Env             map[string]string // environment variables
}

// globalPath returns $XDG_CONFIG_HOME/slotdb/config.json, falling back to
// ~/.config/slotdb/config.json. Empty if neither variable is set.
func globalPath(env map[string]string) string {
	if xdg := env["XDG_CONFIG_HOME"]; xdg != "" {
		return filepath.Join(xdg, "slotdb", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "slotdb", "config.json")
	}

	return ""
}

// Load resolves configuration with the following precedence (highest wins):
//  1. Defaults
//  2. Global user config
//  3. Project config (.slotdb.json in the work dir, if present)
//  4. Explicit config file via ConfigPath (must exist, replaces 3)
//  5. CLI overrides
func Load(in Input) (Config, error) {
	workDir := in.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := Default()

	if path := globalPath(in.Env); path != "" {
		fc, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			if err := apply(&cfg, fc, path); err != nil {
				return Config{}, err
			}

			cfg.Sources.Global = path
		}
	}

	path, mustExist := filepath.Join(workDir, FileName), false
	if in.ConfigPath != "" {
		path, mustExist = in.ConfigPath, true
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}

		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrFileNotFound, in.ConfigPath)
		}
	}

	fc, loaded, err := loadFile(path, mustExist)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		if err := apply(&cfg, fc, path); err != nil {
			return Config{}, err
		}

		cfg.Sources.Project = path
	}

	if in.DBFileOverride != "" {
		cfg.DBFile = in.DBFileOverride
	}

	if in.NoLock {
		cfg.Lock = false
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.DBFile) {
		cfg.DBFileAbs = cfg.DBFile
	} else {
		cfg.DBFileAbs = filepath.Join(workDir, cfg.DBFile)
	}

	return cfg, nil
}

// loadFile reads and parses path. A missing file is not an error unless
// mustExist is set.
func loadFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return fileConfig{}, false, nil
		}

		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrFileRead, path, err)
	}

	fc, err := parse(data)
	if err != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}

	return fc, true, nil
}

func parse(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var fc fileConfig

	if err := json.Unmarshal(standardized, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return fc, nil
}

// apply overlays the fields present in fc onto cfg.
func apply(cfg *Config, fc fileConfig, path string) error {
	if fc.DBFile != nil {
		if *fc.DBFile == "" {
			return fmt.Errorf("%w %s: %w", ErrInvalid, path, ErrDBFileEmpty)
		}

		cfg.DBFile = *fc.DBFile
	}

	if fc.Lock != nil {
		cfg.Lock = *fc.Lock
	}

	if fc.LockTimeout != nil {
		d, err := time.ParseDuration(*fc.LockTimeout)
		if err != nil || d < 0 {
			return fmt.Errorf("%w %s: %w: %q", ErrInvalid, path, ErrLockTimeoutInvalid, *fc.LockTimeout)
		}

		cfg.LockTimeout = d
	}

	return nil
}
