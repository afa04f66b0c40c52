package holdings

import "errors"

var ErrInsufficientHolding = errors.New("Insufficient credits to sell")
