package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-utils/retry"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// Execute uploads every resource with at most parallel uploads in flight. Each resource is retried
// with a fixed delay. The first resource that exhausts its attempts fails the batch: no further resource
// is dispatched, while uploads already in flight are left to finish and their outcome is dropped.
func (p *Plan) Execute(ctx context.Context, remote Uploader) error {
	start := time.Now()
	slog.Info("upload", "phase", "start", "files", len(p.Resources), "parallel", p.parallel, "attempts", p.attempts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallel)

	for _, res := range p.Resources {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// the batch may have failed while this task waited for a slot
			if gctx.Err() != nil {
				return nil
			}
			return p.upload(ctx, remote, res)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var total int64
	for _, res := range p.Resources {
		total += res.Size
	}
	slog.Info("upload", "phase", "done", "files", len(p.Resources), "size", humanize.Bytes(uint64(total)), "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// upload runs the attempts of one resource. Attempts use ctx rather than the batch context so that
// a failure elsewhere does not interrupt them.
func (p *Plan) upload(ctx context.Context, remote Uploader, res Resource) error {
	localPath := filepath.Join(p.WorkDir, res.Path)

	err := retry.Times(uint(p.attempts-1)).Wait(p.delay).TryWithAbort(func(attempt uint) (error, bool) {
		err := remote.UploadFile(ctx, res.Remote, localPath, res.Checksum)
		if err == nil {
			slog.Debug("upload", "path", res.Remote.Abs(), "attempt", attempt+1)
			return nil, false
		}

		slog.Warn("upload attempt failed", "path", res.Remote.Abs(), "attempt", attempt+1, "of", p.attempts, "error", err)
		return err, ctx.Err() != nil
	})
	if err != nil {
		return fmt.Errorf("upload '%s' to '%s': %w", res.Path, res.Remote.Abs(), err)
	}
	return nil
}
