package flagtypes

import (
	"fmt"
	"strings"

	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/spf13/cobra"
)

type levelAliases struct {
	level logger.Level
	// names holds the canonical name first, followed by accepted aliases.
	names []string
	help  string
}

var logLevels = []levelAliases{
	{logger.LevelDebug, []string{"debug", "d", "5", "debugging"}, "Every sensor read, poll timing, and HTTP request"},
	{logger.LevelInfo, []string{"info", "i", "4", "information"}, "Sensor readings and server lifecycle (default)"},
	{logger.LevelWarn, []string{"warn", "w", "3", "warning", "warnings"}, "Only problems that do not stop a poll"},
	{logger.LevelError, []string{"error", "e", "2", "errors"}, "Only failed sensor reads and fatal errors"},
	{logger.LevelPanic, []string{"panic", "p", "1", "panics"}, "Silent, except for panics"},
}

// LogLevel is a pflag.Value for the --loglevel flag.
type LogLevel logger.Level

// Level returns the wrapped logger.Level.
func (l LogLevel) Level() logger.Level {
	return logger.Level(l)
}

func (l *LogLevel) String() string {
	for _, lvl := range logLevels {
		if lvl.level == l.Level() {
			return lvl.names[0]
		}
	}
	return l.Level().String()
}

// Set implements pflag.Value.
func (l *LogLevel) Set(val string) error {
	lvl, err := ParseLevel(val)
	if err != nil {
		return err
	}
	*l = LogLevel(lvl)
	return nil
}

// Type implements pflag.Value.
func (l *LogLevel) Type() string {
	return "loglevel"
}

// ParseLevel parses a logging level by name, single-letter abbreviation, or
// number, where 5 is debug and 1 is panic. Case is ignored.
func ParseLevel(val string) (logger.Level, error) {
	lower := strings.ToLower(val)
	for _, lvl := range logLevels {
		for _, name := range lvl.names {
			if name == lower {
				return lvl.level, nil
			}
		}
	}
	canonical := make([]string, len(logLevels))
	for i, lvl := range logLevels {
		canonical[i] = lvl.names[0]
	}
	return logger.LevelDebug, fmt.Errorf("invalid logging level %q, must be one of: %s",
		val, strings.Join(canonical, ", "))
}

// CompleteLogLevel is a cobra completion function for LogLevel flags.
func CompleteLogLevel(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	completions := make([]string, len(logLevels))
	for i, lvl := range logLevels {
		completions[i] = lvl.names[0] + "\t" + lvl.help
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
