package router

import (
	"strings"

	"github.com/vango-dev/signalshell/pkg/routepath"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segCatchAll
)

type segment struct {
	kind  segmentKind
	value string // literal text or parameter name
}

// pattern is a compiled route path.
type pattern struct {
	segments []segment
}

// compilePattern parses a canonical route path. A catch-all segment must
// be the last one.
func compilePattern(path string) (pattern, error) {
	parts := routepath.Split(path)
	p := pattern{segments: make([]segment, 0, len(parts))}

	for i, part := range parts {
		switch {
		case strings.HasPrefix(part, "*"):
			if i != len(parts)-1 || len(part) == 1 {
				return pattern{}, ErrInvalidPath
			}
			p.segments = append(p.segments, segment{kind: segCatchAll, value: part[1:]})
		case strings.HasPrefix(part, ":"):
			name := parseParamSegment(part)
			if name == "" {
				return pattern{}, ErrInvalidPath
			}
			p.segments = append(p.segments, segment{kind: segParam, value: name})
		default:
			p.segments = append(p.segments, segment{kind: segLiteral, value: part})
		}
	}
	return p, nil
}

// key returns the pattern with parameter names erased, so "/a/:id" and
// "/a/:slug" are recognised as the same path.
func (p pattern) key() string {
	if len(p.segments) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, s := range p.segments {
		b.WriteByte('/')
		switch s.kind {
		case segParam:
			b.WriteByte(':')
		case segCatchAll:
			b.WriteByte('*')
		default:
			b.WriteString(s.value)
		}
	}
	return b.String()
}

// match reports whether the path segments satisfy the pattern, returning
// captured parameters.
func (p pattern) match(parts []string) (map[string]string, bool) {
	var params map[string]string

	for i, s := range p.segments {
		switch s.kind {
		case segCatchAll:
			if i >= len(parts) {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[s.value] = strings.Join(parts[i:], "/")
			return params, true
		case segParam:
			if i >= len(parts) {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[s.value] = parts[i]
		default:
			if i >= len(parts) || parts[i] != s.value {
				return nil, false
			}
		}
	}
	if len(parts) != len(p.segments) {
		return nil, false
	}
	return params, true
}

// parseParamSegment extracts the parameter name from ":id" or ":id:int".
// The type suffix is accepted for readability but not enforced.
func parseParamSegment(seg string) string {
	seg = seg[1:]
	if idx := strings.Index(seg, ":"); idx != -1 {
		return seg[:idx]
	}
	return seg
}
