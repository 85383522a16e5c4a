package persist

import "errors"

// ErrNoRemote is returned by operations that need a configured remote.
var ErrNoRemote = errors.New("no remote configured")
