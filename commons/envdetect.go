package commons

import (
	"os"
)

// IsCIEnv returns true if the current environment is a known ci system.
func IsCIEnv() bool {
	return os.Getenv("CI") != ""
}

// IsRoot returns true if the process runs with an effective uid of 0.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// Privileged returns the command that should wrap privileged subprocesses.
// When the process already runs as root there is nothing to wrap and nil is returned.
func Privileged(command ...string) []string {
	if IsRoot() || len(command) == 0 {
		return nil
	}

	return command
}
