// Package remotepath models hierarchical object addresses in the remote storage zone.
package remotepath

import (
	"net/url"
	"slices"
	"strings"

	"github.com/openmined/cdnpublish/internal/errs"
)

// Separator joins path segments.
const Separator = "/"

// Path is a normalized remote address made of non-empty segments.
// The zero value is the root path.
type Path struct {
	segments []string
}

// Dir is a Path addressing a directory. It always renders with a trailing separator.
type Dir struct {
	path Path
}

// Root is the empty path.
var Root = Path{}

// Parse normalizes raw into a Path. A leading separator is implied, repeated and trailing
// separators collapse, and any query or fragment suffix is discarded.
func Parse(raw string) (Path, error) {
	if raw == "" {
		return Root, errs.New(errs.KindParse, "invalid path: empty input")
	}

	// collapse leading separators so that "//x" is not read as a host
	u, err := url.Parse(Separator + strings.TrimLeft(raw, Separator))
	if err != nil {
		return Root, errs.Wrap(errs.KindParse, err, "invalid path %q", raw)
	}
	if u.Scheme != "" || u.Host != "" || u.Opaque != "" || u.User != nil {
		return Root, errs.New(errs.KindParse, "invalid path %q: not a path", raw)
	}

	segments := make([]string, 0, strings.Count(u.Path, Separator))
	for _, s := range strings.Split(u.Path, Separator) {
		switch s {
		case "", ".":
			continue
		case "..":
			return Root, errs.New(errs.KindParse, "invalid path %q: parent segment not allowed", raw)
		}
		segments = append(segments, s)
	}

	return Path{segments: segments}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(raw string) Path {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Join appends other to p. Joining with the root path on either side returns the other operand.
func (p Path) Join(other Path) Path {
	if p.IsRoot() {
		return other
	}
	if other.IsRoot() {
		return p
	}
	return Path{segments: slices.Concat(p.segments, other.segments)}
}

// FileName returns the last segment, or false for the root path.
func (p Path) FileName() (string, bool) {
	if p.IsRoot() {
		return "", false
	}
	return p.segments[len(p.segments)-1], true
}

// Parent returns p without its last segment.
func (p Path) Parent() Path {
	if len(p.segments) <= 1 {
		return Root
	}
	return Path{segments: slices.Clone(p.segments[:len(p.segments)-1])}
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// String renders p without a leading separator, e.g. "assets/app.js". Root renders as "".
func (p Path) String() string {
	return strings.Join(p.segments, Separator)
}

// Abs renders p with a leading separator, e.g. "/assets/app.js".
func (p Path) Abs() string {
	return Separator + p.String()
}

// Escaped renders p with every segment URL-escaped.
func (p Path) Escaped() string {
	escaped := make([]string, len(p.segments))
	for i, s := range p.segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, Separator)
}

// AsDir converts p into its directory form.
func (p Path) AsDir() Dir {
	return Dir{path: p}
}

// Path converts d back into a Path without loss.
func (d Dir) Path() Path {
	return d.path
}

// Join resolves p inside d.
func (d Dir) Join(p Path) Path {
	return d.path.Join(p)
}

// String renders d with exactly one trailing separator, e.g. "assets/". The root directory renders as "/".
func (d Dir) String() string {
	if d.path.IsRoot() {
		return Separator
	}
	return d.path.String() + Separator
}

// Escaped renders d URL-escaped with a trailing separator. The root directory renders as "".
func (d Dir) Escaped() string {
	if d.path.IsRoot() {
		return ""
	}
	return d.path.Escaped() + Separator
}
