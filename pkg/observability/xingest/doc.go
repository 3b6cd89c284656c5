// Package xingest 提供浏览器等客户端上报遥测事件的 HTTP 接入点。
//
// 请求体形如 {"events":[...]}，每个事件独立校验，合法事件按 type 分流：
//
//   - trace:  在当前请求上下文下回放一个内部 span，名称为 client.<name>
//   - metric: properties.value 为数值时记录到直方图 client.<name>，否则计数器加一
//   - log:    以 properties.level（默认 info）写入日志
//
// 单个事件非法不会影响同批其他事件；响应为 202 及
// {accepted, rejected, errors:[{index, error}]}。请求体不是合法 JSON 返回 400，
// 超出大小或事件数上限返回 413。
//
// 接入点面向不可信输入：请求体大小、单批事件数、由客户端产生的指标名数量都有上限。
package xingest
