package simulate

import "errors"

// ErrInvalidConfig is returned by Run for unusable simulation settings.
var ErrInvalidConfig = errors.New("invalid simulation config")
