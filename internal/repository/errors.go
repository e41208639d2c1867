package repository

import "errors"

// ErrNotFound 资源不存在（或已处于不可变更状态）
var ErrNotFound = errors.New("not found")
