package config

import "errors"

// Config errors. All of them abort the invocation before the database is
// opened.
var (
	ErrFileNotFound       = errors.New("config file not found")
	ErrFileRead           = errors.New("cannot read config file")
	ErrInvalid            = errors.New("invalid config file")
	ErrDBFileEmpty        = errors.New("db_file cannot be empty")
	ErrLockTimeoutInvalid = errors.New("lock_timeout must be a non-negative duration")
)
