package errors

import "errors"

// ErrCacheUnavailable 缓存不可用（Redis 未配置或已断开），调用方应直接回源
var ErrCacheUnavailable = errors.New("缓存不可用")
