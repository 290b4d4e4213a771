package cache

import "errors"

var ErrInvalidTTL = errors.New("ttl must be positive")
