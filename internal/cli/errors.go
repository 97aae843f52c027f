package cli

import (
	"errors"
	"fmt"
)

// ErrHelp is returned by Parse when -h or --help is given
var ErrHelp = errors.New("help requested")

// ConfigError is a command line error detected before any log is read
type ConfigError struct {
	Flag    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Flag == "" {
		return e.Message
	}
	return fmt.Sprintf("argument %s: %s", e.Flag, e.Message)
}

func configError(flag, format string, args ...any) *ConfigError {
	return &ConfigError{Flag: flag, Message: fmt.Sprintf(format, args...)}
}
