package nn

import "github.com/pkg/errors"

// Sentinel errors. Returned errors wrap these with context.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrUnknownKind   = errors.New("unknown layer kind")
	ErrBadBlobs      = errors.New("invalid blob arguments")
)
