package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// StateDir returns the per-user fcmirror state directory (~/.fcmirror).
// It holds logs, the download history database and destination locks.
// Falls back to the temp directory if the home directory is unavailable.
func StateDir() string {
	if dir := os.Getenv("FCMIRROR_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".fcmirror")
	}
	return filepath.Join(home, ".fcmirror")
}

// DefaultLogDir returns the default log directory (~/.fcmirror/logs/).
func DefaultLogDir() string {
	return filepath.Join(StateDir(), "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "fcmirror.log")
}

// FindLogFile returns the log file to inspect: the explicit path when
// given, otherwise the default one. It fails if the file does not exist.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no log file found, expected at: %s", path)
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	return os.MkdirAll(DefaultLogDir(), 0o755)
}
