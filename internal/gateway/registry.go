package gateway

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/evogate/internal/evolution"
)

// Params はパスのスロットから取り出した値。キーはスロット名。
type Params map[string]string

// Handler は解決済みのリクエストを上流に転送し、上流のレスポンスボディを返す。
type Handler func(c *gin.Context, params Params) (json.RawMessage, error)

// Route は外部に公開する1つのエンドポイント。
type Route struct {
	// Method はHTTPメソッド。
	Method string
	// Pattern は{name}形式のスロットを含むパスパターン。
	Pattern string
	// Operation は転送先の上流操作。
	Operation evolution.Operation
	// Handler は転送処理。
	Handler Handler

	segments []segment
}

// segment はパターンの1セグメント。slotが空でなければスロット。
type segment struct {
	literal string
	slot    string
}

// Registry はメソッドとパスからルートを解決する。構築後は読み取り専用。
type Registry struct {
	routes   []*Route
	byMethod map[string][]*Route
}

// NewRegistry はルート一覧からRegistryを生成する。
// 同じ具体的なリクエストに一致しうるルートが2つ以上ある場合はエラーを返す。
func NewRegistry(routes ...Route) (*Registry, error) {
	r := &Registry{byMethod: make(map[string][]*Route)}
	for i := range routes {
		route := routes[i]
		if route.Method == "" {
			return nil, fmt.Errorf("ルート %q のメソッドが空です", route.Pattern)
		}
		if route.Handler == nil {
			return nil, fmt.Errorf("ルート %s %s のハンドラがnilです", route.Method, route.Pattern)
		}
		segs, err := parsePattern(route.Pattern)
		if err != nil {
			return nil, err
		}
		route.segments = segs

		for _, other := range r.byMethod[route.Method] {
			if overlaps(route.segments, other.segments) {
				return nil, fmt.Errorf("ルート %s %s は %s と重複します", route.Method, route.Pattern, other.Pattern)
			}
		}
		r.routes = append(r.routes, &route)
		r.byMethod[route.Method] = append(r.byMethod[route.Method], &route)
	}
	return r, nil
}

// Resolve はメソッドとエスケープ済みパスに一致するルートとスロットの値を返す。
// リテラルは大文字小文字を区別して比較し、スロットは空でない任意のセグメントに一致する。
// 末尾のスラッシュや空のセグメントを含むパスはどのルートにも一致しない。
func (r *Registry) Resolve(method, escapedPath string) (*Route, Params, bool) {
	if !strings.HasPrefix(escapedPath, "/") {
		return nil, nil, false
	}
	raw := strings.Split(escapedPath[1:], "/")
	parts := make([]string, len(raw))
	for i, s := range raw {
		if s == "" {
			return nil, nil, false
		}
		v, err := url.PathUnescape(s)
		if err != nil {
			return nil, nil, false
		}
		parts[i] = v
	}

	for _, route := range r.byMethod[method] {
		if params, ok := match(route.segments, parts); ok {
			return route, params, true
		}
	}
	return nil, nil, false
}

// Routes は登録順のルート一覧を返す。
func (r *Registry) Routes() []Route {
	out := make([]Route, len(r.routes))
	for i, route := range r.routes {
		out[i] = *route
	}
	return out
}

// Prefixes は登録順に重複を除いたルート群のプレフィックス（例: /api/instances）を返す。
func (r *Registry) Prefixes() []string {
	seen := make(map[string]bool)
	var prefixes []string
	for _, route := range r.routes {
		p := route.prefix()
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		prefixes = append(prefixes, p)
	}
	return prefixes
}

// prefix はパターン先頭の連続するリテラルを最大2セグメントまで連結したものを返す。
func (rt *Route) prefix() string {
	var b strings.Builder
	for i, s := range rt.segments {
		if i == 2 || s.slot != "" {
			break
		}
		b.WriteString("/")
		b.WriteString(s.literal)
	}
	return b.String()
}

// parsePattern はパスパターンをセグメントに分解する。
func parsePattern(pattern string) ([]segment, error) {
	if !strings.HasPrefix(pattern, "/") || pattern == "/" {
		return nil, fmt.Errorf("パターン %q は/で始まる空でないパスである必要があります", pattern)
	}
	seen := make(map[string]bool)
	var segs []segment
	for _, s := range strings.Split(pattern[1:], "/") {
		switch {
		case s == "":
			return nil, fmt.Errorf("パターン %q に空のセグメントがあります", pattern)
		case strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}"):
			name := s[1 : len(s)-1]
			if name == "" {
				return nil, fmt.Errorf("パターン %q に名前のないスロットがあります", pattern)
			}
			if seen[name] {
				return nil, fmt.Errorf("パターン %q でスロット %q が重複しています", pattern, name)
			}
			seen[name] = true
			segs = append(segs, segment{slot: name})
		case strings.ContainsAny(s, "{}"):
			return nil, fmt.Errorf("パターン %q のセグメント %q が不正です", pattern, s)
		default:
			segs = append(segs, segment{literal: s})
		}
	}
	return segs, nil
}

// overlaps は2つのパターンが同じ具体的なパスに一致しうるかを返す。
// セグメント数が等しく、すべての位置でどちらかがスロットか、リテラルが等しい場合に重複する。
func overlaps(a, b []segment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].slot != "" || b[i].slot != "" {
			continue
		}
		if a[i].literal != b[i].literal {
			return false
		}
	}
	return true
}

// match はセグメント列がパターンに一致するかを判定し、スロットの値を返す。
func match(segs []segment, parts []string) (Params, bool) {
	if len(segs) != len(parts) {
		return nil, false
	}
	var params Params
	for i, s := range segs {
		if s.slot == "" {
			if s.literal != parts[i] {
				return nil, false
			}
			continue
		}
		if params == nil {
			params = make(Params, len(segs))
		}
		params[s.slot] = parts[i]
	}
	if params == nil {
		params = Params{}
	}
	return params, true
}
