package feed

import "errors"

// ErrFeedUnavailable is returned when the remote feed cannot be read.
var ErrFeedUnavailable = errors.New("activity feed unavailable")
