// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package fsid identifies the filesystem or container occupying a
// device by magic-byte matching, in the manner of blkid. The Volume
// Preparer (C3) uses it purely for informational reporting: nothing
// here writes to the device, and a positive match never blocks a
// sanitize operation, it only annotates the pre-flight report with what
// is about to be destroyed.
package fsid

import (
	"bytes"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// Magic is a single byte pattern anchored at a fixed offset.
type Magic struct {
	Offset int
	Value  []byte
}

// Matches reports whether buf, read starting at Offset 0, contains the
// magic value at its offset.
func (m Magic) Matches(buf []byte) bool {
	if len(buf) < m.Offset+len(m.Value) {
		return false
	}

	return bytes.Equal(buf[m.Offset:m.Offset+len(m.Value)], m.Value)
}

// requiredSize is how many bytes must be read to test this magic.
func (m Magic) requiredSize() int {
	return m.Offset + len(m.Value)
}

// Result is what a successful Prober found.
type Result struct {
	Name  string
	UUID  *uuid.UUID
	Label string
}

// Prober identifies one filesystem/container format.
type Prober interface {
	Name() string
	Magics() []Magic
	Probe(r io.ReaderAt) (*Result, error)
}

// Chain is the ordered set of probers tried against a device. Order
// matters only in that the first match wins; the formats here don't
// overlap in practice.
type Chain []Prober

// DefaultChain covers the filesystems and containers a decommissioned
// disk is realistically found holding. bluestore/lvm2/squashfs/zfs and
// vendor-specific formats are left out — see SPEC_FULL.md for why: none
// of them changes what the sanitizer does, only what it would print in a
// pre-flight report, and the maintenance cost of their bespoke
// superblock parsers isn't earned back by this component's read-only,
// best-effort reporting role.
func DefaultChain() Chain {
	return Chain{
		&vfatProber{},
		&extProber{},
		&xfsProber{},
		&iso9660Prober{},
		&swapProber{},
		&luks2Prober{},
	}
}

// MaxMagicSize is the largest read needed to evaluate every prober's
// magic list, used to size the initial sniff buffer.
func (c Chain) MaxMagicSize() int {
	max := 0
	for _, p := range c {
		for _, m := range p.Magics() {
			if n := m.requiredSize(); n > max {
				max = n
			}
		}
	}

	return max
}

// Identify runs the chain against r and returns the first match, or nil
// if nothing matched.
func (c Chain) Identify(r io.ReaderAt) (*Result, error) {
	sniff := make([]byte, c.MaxMagicSize())

	n, err := r.ReadAt(sniff, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("fsid: sniff read: %w", err)
	}

	sniff = sniff[:n]

	for _, p := range c {
		matched := false

		for _, m := range p.Magics() {
			if m.Matches(sniff) {
				matched = true

				break
			}
		}

		if !matched {
			continue
		}

		res, err := p.Probe(r)
		if err != nil {
			return nil, fmt.Errorf("fsid: %s probe: %w", p.Name(), err)
		}

		if res != nil {
			res.Name = p.Name()

			return res, nil
		}
	}

	return nil, nil //nolint:nilnil
}

func trimNulString(b []byte) string {
	idx := bytes.IndexByte(b, 0)
	if idx == -1 {
		idx = len(b)
	}

	return string(bytes.TrimSpace(b[:idx]))
}
