package pathing

import (
	"os"
	"path/filepath"
)

// HomeEnvVar overrides the root directory for config and data.
const HomeEnvVar = "BT_PID_DEBUGGER_HOME"

// EnsureDirectories creates every directory the debugger writes into.
// Must be called on startup before config or database access.
func EnsureDirectories() error {
	// Directories that must exist:
	dirs := []string{
		GetConfigDir(),
		GetDataDir(),
		GetPlotDir(),
	}

	// Create all directories
	for _, dir := range dirs {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

func GetRootDir() string {
	if dir := os.Getenv(HomeEnvVar); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// No home (service accounts), fall back to working directory
		return ".bt_pid_debugger"
	}
	return filepath.Join(home, ".bt_pid_debugger")
}

func GetConfigDir() string {
	return GetRootDir()
}

func GetDataDir() string {
	return filepath.Join(GetRootDir(), "data")
}

func GetPlotDir() string {
	return filepath.Join(GetDataDir(), "plots")
}

func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "debugger.toml")
}

func GetSampleDbPath() string {
	return filepath.Join(GetDataDir(), "bluetooth.db")
}

func GetLogPath() string {
	return filepath.Join(GetDataDir(), "debugger.log")
}
