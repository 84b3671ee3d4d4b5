// Package apk reads entries out of application package archives.
package apk

import (
	"archive/zip"
	"fmt"
	"io"
)

// Opener opens a package archive by path.
type Opener interface {
	Open(path string) (Archive, error)
}

// Archive is an open, read-only package archive.
type Archive interface {
	// Entries lists entry names in the archive's central directory order.
	Entries() []string
	// OpenEntry opens the first entry named name.
	OpenEntry(name string) (io.ReadCloser, error)
	Close() error
}

// ZipOpener opens archives with archive/zip.
type ZipOpener struct{}

// Open reads the central directory of the zip file at path.
func (ZipOpener) Open(path string) (Archive, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		// OpenReader hands back a live reader alongside zip.ErrInsecurePath.
		if rc != nil {
			_ = rc.Close()
		}
		return nil, fmt.Errorf("open zip %q: %w", path, err)
	}
	return &zipArchive{rc: rc}, nil
}

type zipArchive struct {
	rc *zip.ReadCloser
}

func (a *zipArchive) Entries() []string {
	names := make([]string, 0, len(a.rc.File))
	for _, f := range a.rc.File {
		names = append(names, f.Name)
	}
	return names
}

func (a *zipArchive) OpenEntry(name string) (io.ReadCloser, error) {
	for _, f := range a.rc.File {
		if f.Name == name {
			return f.Open()
		}
	}
	return nil, fmt.Errorf("entry %q: %w", name, ErrNoEntry)
}

func (a *zipArchive) Close() error {
	return a.rc.Close()
}
