package hooks

import "errors"

var (
	// ErrUnknownReference is reported when a ref names no shared definition.
	ErrUnknownReference = errors.New("unknown reference")
	// ErrMalformedPattern is reported when a regex or glob does not compile.
	ErrMalformedPattern = errors.New("malformed pattern")
	// ErrUnknownBuiltin is reported for builtin names outside the catalog.
	ErrUnknownBuiltin = errors.New("unknown builtin condition")
	// ErrMaxDepth is reported when nesting or reference chains go too deep.
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")
)
