package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/openmined/cdnpublish/internal/errs"
	"golang.org/x/sync/errgroup"
)

// Checksum returns the upper-case hex SHA-256 digest of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// checksumWorkers bounds open file descriptors only; it is unrelated to the upload budget.
var checksumWorkers = 4 * runtime.NumCPU()

// computeChecksums returns resources with their checksum set. Either every digest is computed
// or an error is returned; there is no partial result.
func computeChecksums(ctx context.Context, workDir string, resources []Resource) ([]Resource, error) {
	var (
		mu  sync.Mutex
		out = make([]Resource, 0, len(resources))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checksumWorkers)

	for _, res := range resources {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			content, err := os.ReadFile(filepath.Join(workDir, res.Path))
			if err != nil {
				return errs.Wrap(errs.KindIO, err, "read %s", res.Path)
			}
			res.Checksum = Checksum(content)
			res.Size = int64(len(content))

			mu.Lock()
			out = append(out, res)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
