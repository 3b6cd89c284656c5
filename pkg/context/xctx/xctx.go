package xctx

import "errors"

// contextKey 包私有键类型，字符串值便于调试时识别。
type contextKey string

// ErrNilContext 注入函数收到 nil context。
var ErrNilContext = errors.New("xctx: nil context")
