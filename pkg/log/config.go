package log

import (
	"fmt"

	"github.com/spf13/pflag"
)

type Config struct {
	// Level is the minimum record level to log. Either 'debug', 'info', 'warn'
	// or 'error'.
	Level string `json:"level" yaml:"level"`

	// Subsystems enables debug logging on log records whose 'subsystem'
	// matches one of the given values (overrides `Level`).
	Subsystems []string `json:"subsystems" yaml:"subsystems"`

	// Path is the file to write logs to. Either 'stderr', 'stdout' or a file
	// path.
	Path string `json:"path" yaml:"path"`
}

func Default() *Config {
	return &Config{
		Level: "info",
		Path:  "stderr",
	}
}

func (c *Config) Validate() error {
	if c.Level == "" {
		return fmt.Errorf("missing level")
	}
	if _, err := zapLevelFromString(c.Level); err != nil {
		return err
	}
	if c.Path == "" {
		return fmt.Errorf("missing path")
	}
	return nil
}

func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(
		&c.Level,
		"log.level",
		c.Level,
		`
Minimum log level to output.

The available levels are 'debug', 'info', 'warn' and 'error'.`,
	)
	fs.StringSliceVar(
		&c.Subsystems,
		"log.subsystems",
		c.Subsystems,
		`
Each log has a 'subsystem' field where the log occured.

'--log.subsystems' enables all log levels for those given subsystems. This
can be useful to debug a particular subsystem without having to enable all
debug logs.

Such as you can enable membership logs with '--log.subsystems cyclon', or
ordering logs with '--log.subsystems epto'.`,
	)
	fs.StringVar(
		&c.Path,
		"log.path",
		c.Path,
		`
Where to write logs.

Either 'stderr', 'stdout' or a file path. When running a simulation it can be
useful to write each run to its own file, then filter by the 'node-id' field.`,
	)
}
