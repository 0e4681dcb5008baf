package download

import "fmt"

// StoragePermissionError reports that the download target directory is not
// writable. It is raised before any job is submitted.
type StoragePermissionError struct {
	Dir string
	Err error
}

func (e *StoragePermissionError) Error() string {
	return fmt.Sprintf("download directory %s is not writable: %v", e.Dir, e.Err)
}

func (e *StoragePermissionError) Unwrap() error {
	return e.Err
}

// InsufficientStorageError reports that the target volume has less free space
// than the configured floor. It is raised before any job is submitted.
type InsufficientStorageError struct {
	Dir           string
	FreeBytes     uint64
	RequiredBytes uint64
}

func (e *InsufficientStorageError) Error() string {
	return fmt.Sprintf(
		"insufficient storage in %s: %d bytes free, %d required",
		e.Dir, e.FreeBytes, e.RequiredBytes,
	)
}
