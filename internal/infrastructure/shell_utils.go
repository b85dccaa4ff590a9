package infrastructure

import "github.com/alessio/shellescape"

// CommandLine renders a command and its arguments as a copy-pasteable shell
// line. Used for logging only; exec.Command receives the raw arguments.
func CommandLine(binary string, args ...string) string {
	return shellescape.QuoteCommand(append([]string{binary}, args...))
}
