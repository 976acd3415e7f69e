package tui

import (
	"os"
	"path/filepath"
)

// GetLogFilePath returns the path of the rotating log file. WORKSTACK_LOG_FILE
// overrides the default of ~/.workstack/logs/workstack.log.
func GetLogFilePath() string {
	if customPath := os.Getenv("WORKSTACK_LOG_FILE"); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fall back to the current directory when home is unresolvable
		return "workstack.log"
	}

	return filepath.Join(homeDir, ".workstack", "logs", "workstack.log")
}
