package validate

import "errors"

// ErrUnknownFormat is returned by Lookup for an unregistered format name.
var ErrUnknownFormat = errors.New("unknown format")
