package cache

import "errors"

var ErrCache = errors.New("layer cache error")
