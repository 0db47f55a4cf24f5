// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sanitize

import (
	"context"
	"fmt"
	"time"

	"github.com/coreclear/sanitize/device"
	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/overwrite"
	"github.com/coreclear/sanitize/sysdisk"
)

// BoundaryOverwriteSize is the size of each of the two boundary passes
// Destroy performs, at offset 0 and at size-BoundaryOverwriteSize, on
// top of the whole-device Gutmann pass. 100MiB matches the boundary
// scrub the Destroy tier is specified to perform against the regions
// most likely to carry recoverable metadata (partition tables, LVM/ZFS
// labels, filesystem superblocks) even if the full-disk pass above it
// were somehow incomplete.
const BoundaryOverwriteSize = 100 * 1024 * 1024

// Destroy runs the four-stage Destroy tier: a full-device 35-pass
// Gutmann overwrite, then two 100MiB random boundary passes at the
// start and end of the device, then one final full-device random pass.
// It refuses to run unless confirm is true, per spec.md's requirement
// that the most destructive tier can never be triggered accidentally.
func Destroy(ctx context.Context, path string, confirm bool, progress model.ProgressFunc, opts ...device.Option) (model.PurgeResult, error) {
	start := time.Now()

	if !confirm {
		result := newResult(path, model.Unknown, model.MethodDestroy)
		result.Status = model.StatusError
		result.Message = "destroy refused: confirm=false"

		return finish(result, start), fmt.Errorf("destroy: %w", model.ErrNotConfirmed)
	}

	dev, err := device.OpenForWrite(path, opts...)
	if err != nil {
		return model.PurgeResult{}, err
	}
	defer dev.Close() //nolint:errcheck

	devType := sysdisk.Get(sysdisk.NameFromPath(path)).Classify()

	result := newResult(path, devType, model.MethodDestroy)
	result.Supported = true

	pipeline := overwrite.New(dev, overwrite.Options{Progress: progress, Logger: dev.Logger()})

	total := dev.Length()
	sectorSize := uint64(dev.SectorSize())

	boundarySize := alignDown(BoundaryOverwriteSize, sectorSize)
	if boundarySize*2 > total {
		boundarySize = alignDown(total/2, sectorSize)
	}

	stages := []struct {
		name   string
		start  uint64
		length uint64
		seq    []model.Pattern
	}{
		{"gutmann-full-disk", 0, total, overwrite.GutmannSequence()},
		{"boundary-head", 0, boundarySize, overwrite.ClearRandomSequence()},
		{"boundary-tail", total - boundarySize, boundarySize, overwrite.ClearRandomSequence()},
		{"final-random-pass", 0, total, overwrite.ClearRandomSequence()},
	}

	for _, stage := range stages {
		if err := pipeline.Run(ctx, stage.seq, stage.start, stage.length); err != nil {
			result.Executed = true
			result.Status = model.StatusError
			result.Message = fmt.Sprintf("destroy stage %q: %s", stage.name, err)

			return finish(result, start), fmt.Errorf("destroy: stage %q: %w", stage.name, err)
		}
	}

	result.Executed = true
	result.Success = true
	result.Status = model.StatusSuccess
	result.Message = fmt.Sprintf("destroy completed: gutmann pass + boundary scrub (%d bytes each) + final random pass", boundarySize)

	return finish(result, start), nil
}

func alignDown(v, align uint64) uint64 {
	if align == 0 {
		return v
	}

	return v - v%align
}
