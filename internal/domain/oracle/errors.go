package oracle

import "errors"

var (
	ErrRateUnavailable = errors.New("oracle rate unavailable")
	ErrZeroRate        = errors.New("oracle returned a zero rate")
	ErrStaleRate       = errors.New("oracle rate is stale")
)
