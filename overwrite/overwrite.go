// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package overwrite

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"
	"unsafe"

	"go.uber.org/zap"

	"github.com/coreclear/sanitize/device"
	"github.com/coreclear/sanitize/model"
)

// DefaultBufferSize is the write chunk size used when the device's
// optimal I/O size isn't a better fit. 32MiB matches the buffer size the
// original C++ Destroy implementation allocated.
const DefaultBufferSize = 32 * 1024 * 1024

// directIOAlignment is the buffer start-address alignment O_DIRECT
// writes require on Linux; 4096 covers every logical/physical sector
// size this engine targets. The original C++ Destroy implementation
// gets this from the platform allocator (`_aligned_malloc(DESTROY_BUFFER_SIZE,
// 4096)`); Go's make gives no address guarantee, so runPass carves an
// aligned slice out of a slightly larger allocation instead.
const directIOAlignment = 4096

// alignedBuffer returns a size-byte slice whose first byte sits at an
// address that is a multiple of directIOAlignment, backed by a slightly
// larger allocation. A plain make([]byte, size) has no such guarantee,
// and an O_DIRECT write against a misaligned buffer address fails with
// EINVAL at write time even though the file opened successfully.
func alignedBuffer(size int) []byte {
	buf := make([]byte, size+directIOAlignment)

	offset := directIOAlignment - int(uintptr(unsafe.Pointer(&buf[0]))%directIOAlignment)
	if offset == directIOAlignment {
		offset = 0
	}

	return buf[offset : offset+size : offset+size]
}

// Options configures a pipeline run.
type Options struct {
	// BufferSize overrides DefaultBufferSize.
	BufferSize int
	// TrimAfterClear issues a BLKSECDISCARD/BLKDISCARD hint before a
	// sequence that is a single all-zero pass, on devices that support
	// it (random and multi-pass sequences get no hint), letting the
	// controller retire flash blocks instead of the host writing every
	// byte. It never replaces the write: the pipeline always performs
	// the full write pass regardless of whether the trim succeeded,
	// since a successful discard is not proof of erasure to the
	// standard this engine is held to.
	TrimAfterClear bool
	Progress       model.ProgressFunc
	Logger         *zap.Logger
}

// Pipeline runs pattern-overwrite passes against a range of an open,
// writable device.
type Pipeline struct {
	dev *device.Device
	opt Options
}

// New constructs a pipeline bound to dev.
func New(dev *device.Device, opt Options) *Pipeline {
	if opt.BufferSize <= 0 {
		opt.BufferSize = DefaultBufferSize
	}

	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}

	return &Pipeline{dev: dev, opt: opt}
}

// Run executes every pattern in seq, in order, against [start, start+length)
// of the device. Each pass writes the whole range before the next pass
// begins and syncs at the end of the pass, so a crash between passes
// never leaves a partially-overwritten range attributed to the wrong
// pass index.
func (p *Pipeline) Run(ctx context.Context, seq []model.Pattern, start, length uint64) error {
	sectorSize := uint64(p.dev.SectorSize())

	if start%sectorSize != 0 {
		return fmt.Errorf("overwrite: start offset %d is not sector-aligned to %d", start, sectorSize)
	}

	// A length that doesn't land on a sector boundary still gets a full
	// final sector written, so the tail of the range is never left
	// half-covered by the pass.
	if rem := length % sectorSize; rem != 0 {
		length += sectorSize - rem
	}

	if p.opt.TrimAfterClear && len(seq) == 1 && !seq[0].Randomize && seq[0].Byte == 0x00 {
		if err := discardRange(p.dev, start, length); err != nil {
			p.opt.Logger.Debug("trim-before-clear not available", zap.Error(err))
		}
	}

	for i, pattern := range seq {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := p.runPass(ctx, pattern, start, length, i, len(seq)); err != nil {
			return fmt.Errorf("overwrite: pass %d/%d: %w", i+1, len(seq), err)
		}
	}

	return nil
}

func (p *Pipeline) runPass(ctx context.Context, pattern model.Pattern, start, length uint64, passIndex, passCount int) error {
	buf := alignedBuffer(p.opt.BufferSize)
	fillBuffer(buf, pattern)

	var written uint64

	// Progress is reported at most once per progressByteStep and per
	// 500ms, whichever is coarser, plus once when the pass completes.
	const progressByteStep = 1 << 30

	nextReportAt := uint64(progressByteStep)
	lastReport := time.Now()
	startTime := lastReport

	for written < length {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk := buf
		remaining := length - written

		if uint64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}

		if pattern.Randomize {
			// Fresh bytes every chunk: a repeating random buffer would
			// let an attacker who recovers one chunk predict the rest.
			if _, err := rand.Read(chunk); err != nil {
				return fmt.Errorf("crypto/rand: %w", err)
			}
		}

		n, err := p.dev.File().WriteAt(chunk, int64(start+written))
		if err != nil {
			return err
		}

		written += uint64(n)

		if p.opt.Progress != nil && ((written >= nextReportAt && time.Since(lastReport) >= 500*time.Millisecond) || written == length) {
			elapsed := time.Since(startTime).Seconds()

			speed := 0.0
			if elapsed > 0 {
				speed = float64(written) / elapsed / (1024 * 1024)
			}

			p.opt.Progress(model.ProgressSample{
				BytesWritten: written,
				TotalBytes:   length,
				Percent:      100 * float64(written) / float64(length),
				SpeedMBps:    speed,
				PassIndex:    passIndex,
				PassCount:    passCount,
			})

			lastReport = time.Now()

			for nextReportAt <= written {
				nextReportAt += progressByteStep
			}
		}
	}

	return p.dev.File().Sync()
}

func fillBuffer(buf []byte, pattern model.Pattern) {
	if pattern.Randomize {
		return // filled fresh per chunk in runPass
	}

	for i := range buf {
		buf[i] = pattern.Byte
	}
}
