// Package e2e 端到端测试：HTTP 入站、出站传播、日志关联与导出管线一起验证。
//
// 运行：go test -tags e2e ./internal/e2e/...
package e2e
