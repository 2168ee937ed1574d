package normalize

import "errors"

// ErrUnknownKind is returned by ParseKind for an unsupported normalization kind.
var ErrUnknownKind = errors.New("unknown normalization kind")
