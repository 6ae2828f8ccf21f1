package localfs

import (
	"bufio"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/openmined/cdnpublish/internal/errs"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is the optional exclude file read from the working directory.
const IgnoreFileName = ".cdnignore"

// Matcher decides which discovered entries are excluded, using gitignore syntax.
// A nil Matcher excludes nothing.
type Matcher struct {
	ignore *gitignore.GitIgnore
	rules  int
}

// NewMatcher compiles patterns together with the rules of cwd/.cdnignore, if present.
func NewMatcher(cwd string, patterns []string) (*Matcher, error) {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p != "" {
			lines = append(lines, p)
		}
	}

	ignorePath := filepath.Join(cwd, IgnoreFileName)
	fileLines, err := readIgnoreFile(ignorePath)
	if err != nil {
		return nil, err
	}
	if len(fileLines) > 0 {
		slog.Debug("loaded ignore file", "path", ignorePath, "rules", len(fileLines))
		lines = append(lines, fileLines...)
	}

	if len(lines) == 0 {
		return nil, nil
	}

	return &Matcher{
		ignore: gitignore.CompileIgnoreLines(lines...),
		rules:  len(lines),
	}, nil
}

// Rules returns the number of compiled rules.
func (m *Matcher) Rules() int {
	if m == nil {
		return 0
	}
	return m.rules
}

// Ignored reports whether rel, a path relative to the working directory, is excluded.
func (m *Matcher) Ignored(rel string, isDir bool) bool {
	if m == nil || m.ignore == nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if isDir && m.ignore.MatchesPath(rel+"/") {
		return true
	}
	return m.ignore.MatchesPath(rel)
}

// IgnoredPath is like Ignored but also reports rel as excluded when one of its parent
// directories is. The working directory itself is never excluded.
func (m *Matcher) IgnoredPath(rel string, isDir bool) bool {
	if m == nil || rel == "." || rel == "" {
		return false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for i := 1; i < len(parts); i++ {
		if m.Ignored(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.Ignored(rel, isDir)
}

func readIgnoreFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errs.Wrap(errs.KindIO, err, "open %s", path)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Wrap(errs.KindIO, err, "read %s", path)
	}
	return lines, nil
}
