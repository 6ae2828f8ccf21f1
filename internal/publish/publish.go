// Package publish implements the bulk upload pipeline: a plan step that resolves the local files
// and their remote targets, followed by either a dry-run report or the concurrent upload.
package publish

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/cdnpublish/internal/errs"
	"github.com/openmined/cdnpublish/internal/localfs"
	"github.com/openmined/cdnpublish/internal/remotepath"
	"github.com/openmined/cdnpublish/internal/storage"
)

const (
	DefaultParallel = 20
	DefaultAttempts = 3
	DefaultDelay    = 1000 * time.Millisecond
)

// Lister lists remote directories.
type Lister interface {
	List(ctx context.Context, dir remotepath.Dir) ([]storage.Item, error)
}

// Uploader streams a local file to a remote path.
type Uploader interface {
	UploadFile(ctx context.Context, path remotepath.Path, localPath string, checksum string) error
}

// Remote is the storage collaborator used by Run.
type Remote interface {
	Lister
	Uploader
}

// Options configures one upload run.
type Options struct {
	Paths     []string        // local inputs, files, directories or globs; defaults to "."
	Prefix    remotepath.Path // prepended to every remote target
	Exclude   []string        // gitignore-style patterns
	WorkDir   string          // defaults to the process working directory
	Checksum  bool
	Overwrite bool
	Execute   bool
	Parallel  int
	Attempts  int
	Delay     time.Duration
}

func (o Options) withDefaults() (Options, error) {
	if len(o.Paths) == 0 {
		o.Paths = []string{"."}
	}
	if o.WorkDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return o, errs.Wrap(errs.KindFileTraverse, err, "cannot determine current directory")
		}
		o.WorkDir = cwd
	}
	o.Parallel = max(o.Parallel, 1)
	o.Attempts = max(o.Attempts, 1)
	o.Delay = max(o.Delay, 0)
	return o, nil
}

// Resource is one file to upload.
type Resource struct {
	Path     string          // relative to the working directory
	Remote   remotepath.Path // upload target
	Checksum string          // upper-case hex SHA-256; empty when checksums are disabled
	Size     int64
}

// Plan is the resolved, immutable set of resources of a run.
type Plan struct {
	Resources []Resource
	WorkDir   string
	Prefix    remotepath.Path

	parallel int
	attempts int
	delay    time.Duration
}

// Run plans the upload and then either reports it (dry run) or executes it.
func Run(ctx context.Context, remote Remote, opts Options, out io.Writer) error {
	plan, err := NewPlan(ctx, remote, opts)
	if err != nil {
		return err
	}

	if !opts.Execute {
		return plan.Report(out)
	}
	return plan.Execute(ctx, remote)
}

// NewPlan checks the remote prefix, discovers the local files, maps them to remote paths and,
// when requested, computes their checksums. Phases run strictly in that order and the first error aborts.
func NewPlan(ctx context.Context, remote Lister, opts Options) (*Plan, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	if !opts.Overwrite {
		if err := guardPrefix(ctx, remote, opts.Prefix); err != nil {
			return nil, err
		}
	}

	matcher, err := localfs.NewMatcher(opts.WorkDir, opts.Exclude)
	if err != nil {
		return nil, err
	}
	walker, err := localfs.NewWalker(opts.WorkDir, matcher)
	if err != nil {
		return nil, err
	}
	slog.Debug("upload", "phase", "traverse", "dir", walker.Dir(), "inputs", len(opts.Paths), "exclude_rules", matcher.Rules())

	resources, err := mapResources(walker, opts.Paths, opts.Prefix)
	if err != nil {
		return nil, err
	}
	slog.Debug("upload", "phase", "mapped", "files", len(resources))

	if opts.Checksum {
		resources, err = computeChecksums(ctx, walker.Dir(), resources)
		if err != nil {
			return nil, err
		}
		slog.Debug("upload", "phase", "checksummed", "files", len(resources))
	}

	return &Plan{
		Resources: resources,
		WorkDir:   walker.Dir(),
		Prefix:    opts.Prefix,
		parallel:  opts.Parallel,
		attempts:  opts.Attempts,
		delay:     opts.Delay,
	}, nil
}

// guardPrefix fails unless the remote directory form of prefix is empty.
// Nothing links this check to the later uploads; a concurrent writer can still race it.
func guardPrefix(ctx context.Context, remote Lister, prefix remotepath.Path) error {
	dir := prefix.AsDir()
	items, err := remote.List(ctx, dir)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		return errs.New(errs.KindOperations, "remote location '%s' currently contains files", dir)
	}
	return nil
}

// mapResources traverses inputs sequentially and pairs every file with prefix/<relative path>.
// A file reached through several inputs is mapped once; two files mapping to one remote path fail the plan.
func mapResources(walker *localfs.Walker, inputs []string, prefix remotepath.Path) ([]Resource, error) {
	seen := mapset.NewThreadUnsafeSet[string]()
	owners := make(map[string]string) // remote path -> local file
	var resources []Resource

	for _, input := range inputs {
		entries, err := walker.Expand(input)
		if err != nil {
			return nil, err
		}

		for _, entry := range entries {
			files, err := walker.Traverse(entry)
			if err != nil {
				return nil, err
			}

			for _, file := range files {
				if !seen.Add(file) {
					continue
				}

				rel, err := remotepath.Parse(filepath.ToSlash(file))
				if err != nil {
					return nil, errs.Wrap(errs.KindParse, err, "invalid uri for '%s'", file)
				}
				if rel.IsRoot() {
					return nil, errs.New(errs.KindParse, "invalid uri for '%s': no path segments", file)
				}

				remotePath := prefix.Join(rel)
				if other, taken := owners[remotePath.String()]; taken {
					return nil, errs.New(errs.KindParse, "'%s' and '%s' both map to '%s'", other, file, remotePath.Abs())
				}
				owners[remotePath.String()] = file

				info, err := os.Stat(walker.Abs(file))
				if err != nil {
					return nil, errs.Wrap(errs.KindIO, err, "stat %s", file)
				}

				resources = append(resources, Resource{
					Path:   file,
					Remote: remotePath,
					Size:   info.Size(),
				})
			}
		}
	}

	if len(resources) == 0 {
		return nil, errs.New(errs.KindOperations, "no file selected to upload")
	}
	return resources, nil
}
