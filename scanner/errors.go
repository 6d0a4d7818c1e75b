package scanner

import "errors"

// ErrSourceDirMissing indicates the source directory does not exist or is
// not a directory. This is a fatal pipeline error, never a cache miss.
var ErrSourceDirMissing = errors.New("source directory missing")
