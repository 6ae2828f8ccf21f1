package localfs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/openmined/cdnpublish/internal/errs"
)

// Expand turns one user input into traversal entry points. An existing path is returned as is;
// otherwise the input is matched as a doublestar glob relative to the working directory.
func (w *Walker) Expand(input string) ([]string, error) {
	abs := input
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(w.cwd, input)
	}
	if _, err := os.Lstat(abs); err == nil {
		return []string{input}, nil
	}

	if !isGlob(input) {
		return nil, errs.New(errs.KindFileTraverse, "cannot resolve path '%s'", input)
	}

	pattern := filepath.ToSlash(filepath.Clean(input))
	if filepath.IsAbs(input) || pattern == ".." || strings.HasPrefix(pattern, "../") {
		return nil, errs.New(errs.KindFileTraverse, "pattern '%s' is outside of current directory", input)
	}

	matches, err := doublestar.Glob(os.DirFS(w.cwd), pattern)
	if err != nil {
		return nil, errs.Wrap(errs.KindFileTraverse, err, "invalid pattern '%s'", input)
	}
	if len(matches) == 0 {
		return nil, errs.New(errs.KindFileTraverse, "no files match pattern '%s'", input)
	}

	for i, m := range matches {
		matches[i] = filepath.FromSlash(m)
	}
	return matches, nil
}

func isGlob(input string) bool {
	return strings.ContainsAny(input, "*?[{")
}
