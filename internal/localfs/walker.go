// Package localfs discovers the regular files to publish beneath the working directory.
package localfs

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmined/cdnpublish/internal/errs"
)

// Walker resolves and traverses local paths, refusing anything outside its working directory.
// Every path it returns is relative to the working directory.
type Walker struct {
	cwd     string
	matcher *Matcher
}

// NewWalker creates a Walker rooted at cwd. matcher may be nil.
func NewWalker(cwd string, matcher *Matcher) (*Walker, error) {
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return nil, errs.Wrap(errs.KindFileTraverse, err, "cannot determine current directory")
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errs.Wrap(errs.KindFileTraverse, err, "cannot determine current directory")
	}
	return &Walker{cwd: resolved, matcher: matcher}, nil
}

// Dir returns the symlink-resolved working directory.
func (w *Walker) Dir() string {
	return w.cwd
}

// Abs returns the absolute form of a path relative to the working directory.
func (w *Walker) Abs(rel string) string {
	return filepath.Join(w.cwd, rel)
}

// Resolve makes path absolute, resolves symlinks and returns it relative to the working directory.
func (w *Walker) Resolve(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(w.cwd, path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errs.Wrap(errs.KindFileTraverse, err, "cannot resolve path '%s'", path)
	}

	rel, err := filepath.Rel(w.cwd, resolved)
	if err != nil || isOutside(rel) {
		return "", errs.New(errs.KindFileTraverse, "path '%s' is outside of current directory", path)
	}
	return rel, nil
}

// Traverse returns every regular file reachable from path. A regular file yields itself,
// a directory is walked recursively. Order is unspecified. An excluded entry point, or one below
// an excluded directory, yields nothing.
func (w *Walker) Traverse(path string) ([]string, error) {
	rel, err := w.Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(w.Abs(rel))
	if err != nil {
		return nil, errs.Wrap(errs.KindFileTraverse, err, "cannot open file descriptor at %s", path)
	}

	if w.matcher.IgnoredPath(rel, info.IsDir()) {
		slog.Debug("traverse skip", "reason", "excluded", "path", rel)
		return nil, nil
	}

	switch {
	case info.Mode().IsRegular():
		return []string{rel}, nil
	case info.IsDir():
		var files []string
		if err := w.walk(rel, &files); err != nil {
			return nil, err
		}
		return files, nil
	default:
		return nil, errs.New(errs.KindFileTraverse, "'%s' is neither a regular file nor a directory", path)
	}
}

func (w *Walker) walk(dir string, files *[]string) error {
	entries, err := os.ReadDir(w.Abs(dir))
	if err != nil {
		return errs.Wrap(errs.KindFileTraverse, err, "while reading directory at %s", dir)
	}

	for _, entry := range entries {
		rel := entry.Name()
		if dir != "." {
			rel = filepath.Join(dir, entry.Name())
		}

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			mode, err = w.followLink(rel)
			if err != nil {
				return err
			}
			if mode.IsDir() {
				slog.Debug("traverse skip", "reason", "symlinked directory", "path", rel)
				continue
			}
		}

		if w.matcher.Ignored(rel, mode.IsDir()) {
			slog.Debug("traverse skip", "reason", "excluded", "path", rel)
			continue
		}

		switch {
		case mode.IsDir():
			if err := w.walk(rel, files); err != nil {
				return err
			}
		case mode.IsRegular():
			*files = append(*files, rel)
		default:
			slog.Debug("traverse skip", "reason", "irregular file", "path", rel)
		}
	}

	return nil
}

// followLink returns the mode of a symlink target, which must stay inside the working directory.
func (w *Walker) followLink(rel string) (fs.FileMode, error) {
	target, err := w.Resolve(rel)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(w.Abs(target))
	if err != nil {
		return 0, errs.Wrap(errs.KindFileTraverse, err, "while reading metadata at path %s", rel)
	}
	return info.Mode().Type(), nil
}

func isOutside(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}
