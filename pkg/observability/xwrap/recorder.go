package xwrap

import (
	"net/http"
)

// recorder 记录 handler 写出的状态码。
type recorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *recorder) WriteHeader(code int) {
	// 1xx 信息性响应之后仍会有最终状态
	if !r.wrote && code >= http.StatusOK {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}

// Flush 支持流式响应
func (r *recorder) Flush() {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap 供 http.ResponseController 访问底层 writer
func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Status 未写出任何内容时 net/http 会以 200 结束响应
func (r *recorder) Status() int {
	if !r.wrote {
		return http.StatusOK
	}
	return r.status
}
