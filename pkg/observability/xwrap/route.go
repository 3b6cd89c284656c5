package xwrap

import (
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// routeOf 返回路由模板。
//
// ServeMux 匹配后的 r.Pattern 形如 "GET example.com/users/{id}"，去掉方法与主机部分；
// 未经 ServeMux 路由时退化为请求路径。
func routeOf(r *http.Request) string {
	p := r.Pattern
	if p == "" {
		return r.URL.Path
	}
	if _, rest, ok := strings.Cut(p, " "); ok {
		p = strings.TrimLeft(rest, " ")
	}
	if i := strings.IndexByte(p, '/'); i > 0 {
		p = p[i:]
	}
	return p
}

// routeParams 按模板中的通配符名称取值并序列化为 JSON；没有通配符时返回空串。
func routeParams(r *http.Request) string {
	names := wildcardNames(r.Pattern)
	if len(names) == 0 {
		return ""
	}
	params := make(map[string]string, len(names))
	for _, name := range names {
		params[name] = r.PathValue(name)
	}
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(params)
	if err != nil {
		return ""
	}
	return string(b)
}

func wildcardNames(pattern string) []string {
	var names []string
	for pattern != "" {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			break
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			break
		}
		name := strings.TrimSuffix(pattern[start+1:start+end], "...")
		if name != "" && name != "$" {
			names = append(names, name)
		}
		pattern = pattern[start+end+1:]
	}
	return names
}
