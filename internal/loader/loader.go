// Package loader streams parsed firmware blocks into chip memory.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bigbag/eagleboot/internal/bus"
	"github.com/bigbag/eagleboot/internal/image"
)

// ErrLoad is matched by every LoadError.
var ErrLoad = errors.New("firmware block write failed")

// LoadError reports the block whose write aborted the download.
type LoadError struct {
	Index   int
	Address uint32
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("write block %d at 0x%08X: %v", e.Index, e.Address, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// Progress is reported after every written block.
type Progress struct {
	Block        int
	TotalBlocks  int
	BytesWritten int
	TotalBytes   int
}

// ProgressCallback is called to report download progress.
type ProgressCallback func(Progress)

type config struct {
	progress ProgressCallback
	logger   *slog.Logger
}

// Option configures Load.
type Option func(*config)

// WithProgress sets the progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(c *config) {
		c.progress = cb
	}
}

// WithLogger sets a logger for per-block debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Load writes every block of img in image order, one WriteMemory call per
// block. It stops at the first failure and does not retry.
func Load(ctx context.Context, w bus.MemoryWriter, img *image.Image, opts ...Option) error {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	total := 0
	for b, err := range img.Blocks() {
		if err != nil {
			return err
		}
		total += len(b.Payload)
	}

	written := 0
	for b, err := range img.Blocks() {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return &LoadError{Index: b.Index, Address: b.LoadAddress, Err: err}
		}

		if cfg.logger != nil {
			cfg.logger.Debug("write block",
				slog.Int("index", b.Index),
				slog.String("addr", fmt.Sprintf("0x%08X", b.LoadAddress)),
				slog.Int("len", len(b.Payload)),
			)
		}

		if err := w.WriteMemory(ctx, b.LoadAddress, b.Payload); err != nil {
			return &LoadError{Index: b.Index, Address: b.LoadAddress, Err: err}
		}

		written += len(b.Payload)
		if cfg.progress != nil {
			cfg.progress(Progress{
				Block:        b.Index + 1,
				TotalBlocks:  int(img.BlockCount),
				BytesWritten: written,
				TotalBytes:   total,
			})
		}
	}

	return nil
}
