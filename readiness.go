package invoicepdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// readiness reports how the image wait ended.
type readiness struct {
	Total      int
	Pending    int // images that were still loading when the wait began
	Unresolved int // images given up on after the image timeout
}

// awaitImages blocks until every image in the clone has loaded or failed.
// Waits run concurrently. When timeout is positive and elapses first, the
// remaining images are treated as failed and the export proceeds.
// Only cancellation of ctx itself is returned as an error.
func awaitImages(ctx context.Context, s Surface, clone Node, timeout time.Duration, logger *slog.Logger) (readiness, error) {
	images, err := s.Images(ctx, clone)
	if err != nil {
		return readiness{}, fmt.Errorf("%w: listing images: %v", ErrImagesNotReady, err)
	}

	r := readiness{Total: len(images)}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var unresolved atomic.Int32
	var g errgroup.Group
	for _, img := range images {
		if img.Complete {
			continue
		}
		r.Pending++

		g.Go(func() error {
			err := s.AwaitImage(waitCtx, clone, img.Index)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			unresolved.Add(1)
			logger.Warn("export: image not settled, continuing without it",
				"index", img.Index, "src", img.Src, "error", err)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return r, fmt.Errorf("%w: %v", ErrImagesNotReady, err)
	}

	r.Unresolved = int(unresolved.Load())
	if r.Unresolved > 0 && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		logger.Warn("export: image wait timed out", "timeout", timeout, "unresolved", r.Unresolved)
	}
	return r, nil
}
