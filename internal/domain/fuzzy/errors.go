package fuzzy

import "errors"

// ErrUnknownScorer is returned by ByName for an unsupported scorer.
var ErrUnknownScorer = errors.New("unknown fuzzy scorer")
