package lens

import (
	"errors"
	"fmt"
	"strings"

	"github.com/on-the-ground/reducks_go/ducks/internal/tree"
)

// ErrInvalidPath is returned for path expressions that cannot be parsed.
var ErrInvalidPath = errors.New("invalid path")

// Path addresses a node of a state tree, one key per segment.
type Path []string

// ParsePath parses dotted and bracketed expressions such as "a.b" or "a[0].b".
func ParsePath(expr string) (Path, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidPath)
	}

	var (
		path Path
		seg  strings.Builder
	)
	flush := func() {
		if seg.Len() > 0 {
			path = append(path, seg.String())
			seg.Reset()
		}
	}
	for i := 0; i < len(expr); i++ {
		switch c := expr[i]; c {
		case '.':
			if seg.Len() == 0 && (i == 0 || expr[i-1] != ']') {
				return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, expr)
			}
			flush()
		case '[':
			flush()
			end := strings.IndexByte(expr[i:], ']')
			if end <= 1 {
				return nil, fmt.Errorf("%w: unterminated bracket in %q", ErrInvalidPath, expr)
			}
			path = append(path, strings.Trim(expr[i+1:i+end], `"'`))
			i += end
		case ']':
			return nil, fmt.Errorf("%w: unexpected ']' in %q", ErrInvalidPath, expr)
		default:
			seg.WriteByte(c)
		}
	}
	if strings.HasSuffix(expr, ".") {
		return nil, fmt.Errorf("%w: trailing '.' in %q", ErrInvalidPath, expr)
	}
	flush()
	return path, nil
}

// MustParsePath is the panicking variant of ParsePath.
func MustParsePath(expr string) Path {
	p, err := ParsePath(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String joins the segments with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Join returns a new path with sub appended.
func (p Path) Join(sub Path) Path {
	out := make(Path, 0, len(p)+len(sub))
	out = append(out, p...)
	return append(out, sub...)
}

// At is the lens focusing the node at p of an untyped state tree.
func At(p Path) Lens[any, any] {
	return Lens[any, any]{
		Get: func(s any) any { return tree.Get(s, p) },
		Set: func(s any, v any) any { return tree.Set(s, p, v) },
	}
}
