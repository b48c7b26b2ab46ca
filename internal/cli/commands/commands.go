// Package commands implements the queryguard subcommands.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/unilakehq/queryguard/internal/cli/config"
)

// cfg is the resolved configuration, installed by the root command before
// any subcommand runs.
var cfg = &config.Config{Dialect: "unilake", Output: "json"}

// SetConfig installs the resolved configuration.
func SetConfig(c *config.Config) {
	cfg = c
}

// readInput returns the SQL or JSON payload for a command: the single
// argument, or stdin when no argument (or "-") was given.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

// readFileOrStdin reads from a file path, or stdin for "-".
func readFileOrStdin(path string, stdin io.Reader) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
