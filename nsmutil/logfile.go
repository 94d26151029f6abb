package nsmutil

import "os"

// openLogFile opens path for appending, creating it if necessary.
func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
