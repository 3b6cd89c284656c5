package xctx

import "context"

// contextFieldSetter 描述一个可选字段：value 为空时跳过。
type contextFieldSetter struct {
	value string
	set   func(context.Context, string) (context.Context, error)
}

// applyOptionalFields 按顺序注入非空字段。
// 父 context 中已有的字段不会被空值覆盖。
func applyOptionalFields(ctx context.Context, fields []contextFieldSetter) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	for _, field := range fields {
		if field.value == "" {
			continue
		}
		var err error
		if ctx, err = field.set(ctx, field.value); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}
