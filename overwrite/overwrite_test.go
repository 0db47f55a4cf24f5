// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package overwrite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/freddierice/go-losetup/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreclear/sanitize/device"
	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/overwrite"
)

const mib = 1024 * 1024

func TestPipelineRunOnRegularFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "target.img")

	f, err := os.Create(path)
	require.NoError(t, err)

	require.NoError(t, f.Truncate(4*mib))
	require.NoError(t, f.Close())

	magic := make([]byte, 512)
	for i := range magic {
		magic[i] = 0xAB
	}

	readBack, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)

	_, err = readBack.WriteAt(magic, 0)
	require.NoError(t, err)
	require.NoError(t, readBack.Close())

	dev, err := device.OpenForWrite(path)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, dev.Close()) })

	pipeline := overwrite.New(dev, overwrite.Options{BufferSize: mib})

	err = pipeline.Run(context.Background(), overwrite.ClearZeroSequence(), 0, dev.Length())
	require.NoError(t, err)

	verify, err := os.Open(path)
	require.NoError(t, err)
	defer verify.Close() //nolint:errcheck

	buf := make([]byte, 512)
	_, err = verify.ReadAt(buf, 0)
	require.NoError(t, err)

	for _, b := range buf {
		assert.Zero(t, b)
	}
}

func TestPipelineRunRejectsUnalignedStart(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "target.img")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(mib))
	require.NoError(t, f.Close())

	dev, err := device.OpenForWrite(path)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, dev.Close()) })

	pipeline := overwrite.New(dev, overwrite.Options{})

	err = pipeline.Run(context.Background(), overwrite.ClearZeroSequence(), 1, mib-1)
	assert.Error(t, err)
}

func TestPipelineRunRoundsUnalignedLengthUpToSector(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "target.img")

	// A length one byte short of two 512-byte blocks is not a multiple of
	// the sector size (a regular file reports the 4096-byte default), so
	// it is rounded up and the second block still gets fully overwritten,
	// not rejected.
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(2 * 512))
	require.NoError(t, f.Close())

	magic := make([]byte, 512)
	for i := range magic {
		magic[i] = 0xAB
	}

	readBack, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = readBack.WriteAt(magic, 512)
	require.NoError(t, err)
	require.NoError(t, readBack.Close())

	dev, err := device.OpenForWrite(path)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, dev.Close()) })

	pipeline := overwrite.New(dev, overwrite.Options{})

	err = pipeline.Run(context.Background(), overwrite.ClearZeroSequence(), 0, 512+511)
	require.NoError(t, err)

	verify, err := os.Open(path)
	require.NoError(t, err)
	defer verify.Close() //nolint:errcheck

	buf := make([]byte, 512)
	_, err = verify.ReadAt(buf, 512)
	require.NoError(t, err)

	for _, b := range buf {
		assert.Zero(t, b)
	}
}

func TestPipelineProgressReporting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "target.img")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(2*mib))
	require.NoError(t, f.Close())

	dev, err := device.OpenForWrite(path)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, dev.Close()) })

	var samples []model.ProgressSample

	pipeline := overwrite.New(dev, overwrite.Options{
		BufferSize: 256 * 1024,
		Progress: func(s model.ProgressSample) {
			samples = append(samples, s)
		},
	})

	require.NoError(t, pipeline.Run(context.Background(), overwrite.ClearZeroSequence(), 0, dev.Length()))

	require.NotEmpty(t, samples)
	assert.Equal(t, 100.0, samples[len(samples)-1].Percent)
}

func TestPipelineRunOnLoopDevice(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("skipping test; must be root")
	}

	tmpDir := t.TempDir()
	rawImage := filepath.Join(tmpDir, "image.raw")

	f, err := os.Create(rawImage)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(8*mib))
	require.NoError(t, f.Close())

	loDev, err := losetup.Attach(rawImage, 0, false)
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, loDev.Detach()) })

	dev, err := device.OpenForWrite(loDev.Path())
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, dev.Close()) })

	pipeline := overwrite.New(dev, overwrite.Options{TrimAfterClear: true})

	require.NoError(t, pipeline.Run(context.Background(), overwrite.ClearZeroSequence(), 0, dev.Length()))
}
