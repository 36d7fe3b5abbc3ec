package prestige

import "errors"

// ErrIneligibleStage is returned when a pet below the final stage is retired.
var ErrIneligibleStage = errors.New("only legendary pets can be retired")
