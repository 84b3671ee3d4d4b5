package apk

import "errors"

// ErrNoEntry is returned by OpenEntry when the archive has no such entry.
var ErrNoEntry = errors.New("no such entry")
