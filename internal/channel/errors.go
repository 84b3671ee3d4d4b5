package channel

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryNotFound means the archive has no channel entry.
	ErrEntryNotFound = errors.New("channel entry not found")
	// ErrEmptyEntry means the channel entry has nothing before its first line break.
	ErrEmptyEntry = errors.New("channel entry is empty")
	// ErrLineTooLong means the first line exceeds MaxLineBytes.
	ErrLineTooLong = errors.New("channel line too long")
)

// ArchiveError wraps a failure to open, read or close the package archive.
type ArchiveError struct {
	Op   string
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("%s archive %s: %v", e.Op, e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}
