// Package routepath normalizes the URL paths that flow through route
// tables and navigation requests.
//
// Both the route table (at construction) and the router (on every
// navigation) run paths through Canonicalize, so "/upload", "/upload/" and
// "/./upload" all address the same route. Navigation targets that start
// with "//" are protocol-relative and NavPath rejects them.
package routepath

import (
	"errors"
	"strings"
)

// Path errors.
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
	ErrPathEscapesRoot      = errors.New("path escapes root via ..")
	ErrAbsoluteURL          = errors.New("absolute URL not allowed")
)

// Result is a canonicalized path split from its query string.
type Result struct {
	// Path is the canonical path, always starting with "/".
	Path string

	// Query is the raw query string without the leading "?".
	Query string

	// Changed reports whether the path differs from the input.
	Changed bool
}

// String returns the path with its query string re-attached.
func (r Result) String() string {
	if r.Query == "" {
		return r.Path
	}
	return r.Path + "?" + r.Query
}

// Canonicalize normalizes a URL path:
//   - a missing leading slash is added
//   - repeated slashes collapse
//   - "." segments are dropped and ".." segments resolved
//   - a trailing slash is removed, except for "/"
//
// Backslashes, NUL bytes, malformed percent escapes and ".." segments that
// climb above the root are rejected. The query string is split off and
// left untouched; a fragment is dropped.
func Canonicalize(input string) (Result, error) {
	if input == "" {
		return Result{Path: "/", Changed: true}, nil
	}

	input, _, _ = strings.Cut(input, "#")
	path, query, _ := strings.Cut(input, "?")

	if strings.Contains(path, "\\") {
		return Result{}, ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return Result{}, ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := checkEscapes(path); err != nil {
			return Result{}, err
		}
	}

	segments, err := resolve(strings.Split(path, "/"))
	if err != nil {
		return Result{}, err
	}

	canonical := "/" + strings.Join(segments, "/")
	return Result{
		Path:    canonical,
		Query:   query,
		Changed: canonical != path,
	}, nil
}

// NavPath canonicalizes a navigation target. Only same-origin relative
// paths are accepted: the input must start with "/" and must not be a
// scheme-qualified or protocol-relative URL.
func NavPath(input string) (Result, error) {
	if strings.HasPrefix(input, "//") || strings.Contains(input, "://") {
		return Result{}, ErrAbsoluteURL
	}
	if !strings.HasPrefix(input, "/") {
		return Result{}, ErrInvalidPath
	}
	return Canonicalize(input)
}

// Split breaks a path into its non-empty segments.
func Split(path string) []string {
	var out []string
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func resolve(segments []string) ([]string, error) {
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
		case "..":
			if len(out) == 0 {
				return nil, ErrPathEscapesRoot
			}
			out = out[:len(out)-1]
		default:
			out = append(out, seg)
		}
	}
	return out, nil
}

func checkEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHex(path[i+1]) || !isHex(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
