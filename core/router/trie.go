package router

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/promptq/promptq/core/handler"
)

// trie is the routing tree. Patterns split on "/" and match segment by
// segment: a static edge wins over a {param} edge at the same level,
// and a trailing "*" catches everything below its node. Matching never
// backtracks; the first edge that takes a segment owns the rest of the
// path.
type trie[C handler.Context] struct {
	root *level[C]
}

// level is one path depth. handlers and wild map HTTP methods to the
// endpoint registered for them.
type level[C handler.Context] struct {
	static   map[string]*level[C]
	param    *level[C]
	paramKey string
	handlers map[string]handler.HandlerFunc[C]
	wild     map[string]handler.HandlerFunc[C]
}

func newTrie[C handler.Context]() *trie[C] {
	return &trie[C]{root: &level[C]{}}
}

// insert registers fn for method under pattern. Registration runs at
// startup, so malformed patterns panic instead of returning errors.
func (t *trie[C]) insert(method, pattern string, fn handler.HandlerFunc[C]) {
	if pattern == "" || pattern[0] != '/' {
		panic(fmt.Errorf("%w: %q must start with a slash", ErrInvalidPattern, pattern))
	}

	node := t.root
	keys := make(map[string]bool)
	segs := splitPath(pattern)
	for i, seg := range segs {
		switch {
		case seg == "*":
			if i != len(segs)-1 {
				panic(fmt.Errorf("%w: %q continues after the wildcard", ErrInvalidPattern, pattern))
			}
			if node.wild == nil {
				node.wild = make(map[string]handler.HandlerFunc[C])
			}
			node.wild[method] = fn
			return

		case len(seg) > 1 && seg[0] == '{' && seg[len(seg)-1] == '}':
			key := seg[1 : len(seg)-1]
			if key == "" {
				panic(fmt.Errorf("%w: %q names no parameter", ErrInvalidPattern, pattern))
			}
			if keys[key] {
				panic(fmt.Errorf("%w: %q repeats parameter %q", ErrInvalidPattern, pattern, key))
			}
			keys[key] = true
			if node.param == nil {
				node.param = &level[C]{paramKey: key}
			} else if node.param.paramKey != key {
				panic(fmt.Errorf("%w: parameter %q collides with %q registered at the same position",
					ErrInvalidPattern, key, node.param.paramKey))
			}
			node = node.param

		default:
			if node.static == nil {
				node.static = make(map[string]*level[C])
			}
			child := node.static[seg]
			if child == nil {
				child = &level[C]{}
				node.static[seg] = child
			}
			node = child
		}
	}

	if node.handlers == nil {
		node.handlers = make(map[string]handler.HandlerFunc[C])
	}
	node.handlers[method] = fn
}

// match is one lookup outcome: fn set when the path and method both
// matched, allowed non-empty when the path exists under other methods,
// both empty on a plain miss.
type match[C handler.Context] struct {
	fn      handler.HandlerFunc[C]
	params  map[string]string
	allowed []string
}

// lookup resolves method and path. The deepest catch-all passed on the
// way down answers when nothing more specific does, so a "/*" mounted
// at the root backs every path.
func (t *trie[C]) lookup(method, path string) match[C] {
	node := t.root
	var params map[string]string

	var fallback *level[C]
	var fallbackParams map[string]string

	for _, seg := range splitPath(path) {
		if node.wild != nil {
			fallback, fallbackParams = node, maps.Clone(params)
		}
		if child, ok := node.static[seg]; ok {
			node = child
			continue
		}
		if node.param != nil && seg != "" {
			if params == nil {
				params = make(map[string]string, 1)
			}
			params[node.param.paramKey] = unescapeSegment(seg)
			node = node.param
			continue
		}
		node = nil
		break
	}

	var methods map[string]bool
	if node != nil {
		if fn, ok := node.handlers[method]; ok {
			return match[C]{fn: fn, params: params}
		}
		if node.wild != nil {
			fallback, fallbackParams = node, maps.Clone(params)
		}
		if len(node.handlers) > 0 {
			methods = make(map[string]bool, len(node.handlers))
			for m := range node.handlers {
				methods[m] = true
			}
		}
	}
	if fallback != nil {
		if fn, ok := fallback.wild[method]; ok {
			return match[C]{fn: fn, params: fallbackParams}
		}
		// A catch-all answers only its own method. It widens the Allow
		// set of paths that exist under exact routes, but a path known
		// solely to a foreign-method catch-all stays a miss.
		if methods != nil {
			for m := range fallback.wild {
				methods[m] = true
			}
		}
	}

	if len(methods) == 0 {
		return match[C]{}
	}
	return match[C]{allowed: slices.Sorted(maps.Keys(methods))}
}

// splitPath returns the path's segments. The root path has none and a
// trailing slash yields a final empty segment, keeping "/tasks" and
// "/tasks/" distinct routes.
func splitPath(p string) []string {
	if p == "" || p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// unescapeSegment decodes percent-encoding in a captured parameter.
// Matching runs on the escaped path, so an encoded slash cannot split a
// segment, but handlers get the decoded value.
func unescapeSegment(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}
