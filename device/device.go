// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package device provides the raw block-device handle the drivers share:
// one concrete Device type whose platform-specific parts live in
// build-tagged files, so callers never branch on GOOS themselves. It
// covers open, size, sector size, read-only and lock queries; reads and
// writes go through File(). It is a concrete type, not an interface, and
// it has no dismount operation.
package device

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/coreclear/sanitize/model"
)

// DefaultSectorSize is used when the device cannot report its own
// logical sector size (spec.md §3: "default 4096").
const DefaultSectorSize = 4096

// Device wraps a scoped, exclusively-owned acquisition of a raw block
// device or a regular file standing in for one (used by tests and by the
// software-overwrite pipeline against disk images). It is never shared
// across components: it is passed by ownership to exactly one driver.
type Device struct {
	f        *os.File
	path     string
	length   uint64
	writable bool
	logger   *zap.Logger

	devNo uint64
}

// Option configures Open/OpenForWrite.
type Option func(*openConfig)

type openConfig struct {
	logger *zap.Logger
}

// WithLogger attaches a structured logger to the device handle and any
// driver constructed from it. Nil (the default) uses zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(c *openConfig) {
		c.logger = l
	}
}

func buildConfig(opts []Option) openConfig {
	c := openConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c
}

// Open acquires a read-only handle to path. This is the mode used by the
// Device Probe (C1) and Capability Query (C2): non-destructive by
// construction, since the OS will reject any write() on the resulting fd.
func Open(path string, opts ...Option) (*Device, error) {
	cfg := buildConfig(opts)

	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrOpenFailed, path, err)
	}

	d := &Device{f: f, path: path, logger: cfg.logger}

	if err := d.probeSize(); err != nil {
		cfg.logger.Warn("could not determine device size at open", zap.String("path", path), zap.Error(err))
	}

	return d, nil
}

// OpenForWrite acquires an exclusive, write-mode handle to path with
// direct, write-through semantics where the OS supports it (bypassing the
// page cache, per spec.md §4.4). This is the mode used by every
// destructive driver (C4, C5, C6).
func OpenForWrite(path string, opts ...Option) (*Device, error) {
	cfg := buildConfig(opts)

	f, err := openWritableDirect(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrOpenFailed, path, err)
	}

	d := &Device{f: f, path: path, writable: true, logger: cfg.logger}

	if err := d.probeSize(); err != nil {
		cfg.logger.Warn("could not determine device size at open", zap.String("path", path), zap.Error(err))
	}

	return d, nil
}

// Path returns the path this handle was opened from.
func (d *Device) Path() string {
	return d.path
}

// File exposes the underlying *os.File for packages that need direct
// ReadAt/WriteAt/Seek access (the overwrite pipeline, LBA-aligned drivers).
// Ownership stays with Device: callers must not close it directly.
func (d *Device) File() *os.File {
	return d.f
}

// Writable reports whether this handle was opened via OpenForWrite.
func (d *Device) Writable() bool {
	return d.writable
}

// Logger returns the structured logger attached at open time.
func (d *Device) Logger() *zap.Logger {
	return d.logger
}

// Length returns the last byte length observed for this device, either
// from an ioctl (block devices) or from stat (regular files).
func (d *Device) Length() uint64 {
	return d.length
}

// Close releases the handle. Close is idempotent-safe to call from a
// defer even when the device was never fully opened, satisfying the
// Device Handle invariant "guaranteed release on all exit paths".
func (d *Device) Close() error {
	if d.f == nil {
		return nil
	}

	// Flush before close so the caller's "no write survives a crash
	// between passes" expectation (spec.md §5) holds even on the last pass.
	if d.writable {
		_ = d.f.Sync() //nolint:errcheck
	}

	err := d.f.Close()
	d.f = nil

	return err
}

func (d *Device) probeSize() error {
	if sz, err := d.ioctlSize(); err == nil && sz > 0 {
		d.length = sz

		return nil
	}

	st, err := d.f.Stat()
	if err != nil {
		return err
	}

	if st.Mode().IsRegular() {
		d.length = uint64(st.Size())

		return nil
	}

	return fmt.Errorf("device: unable to determine length of %s", d.path)
}
