package rules

import "errors"

var (
	// ErrInvalidRule is returned for a malformed rule or rule list.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrUnknownTopology is returned by TopologyByName.
	ErrUnknownTopology = errors.New("unknown topology")
)
