// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsid

import (
	"io"

	"github.com/google/uuid"
)

// vfatProber matches FAT12/16/32 boot sectors. Label extraction isn't
// attempted: the boot-sector volume label field is frequently blank or
// stale, and this component only needs to say "this holds a FAT
// filesystem", not describe it precisely.
type vfatProber struct{}

func (vfatProber) Name() string { return "vfat" }

func (vfatProber) Magics() []Magic {
	return []Magic{
		{Offset: 0x52, Value: []byte("MSWIN")},
		{Offset: 0x52, Value: []byte("FAT32   ")},
		{Offset: 0x36, Value: []byte("MSDOS")},
		{Offset: 0x36, Value: []byte("FAT16   ")},
		{Offset: 0x36, Value: []byte("FAT12   ")},
		{Offset: 0x36, Value: []byte("FAT     ")},
	}
}

func (vfatProber) Probe(io.ReaderAt) (*Result, error) {
	return &Result{}, nil
}

// extProber matches ext2/3/4 superblocks by their fixed magic at offset
// 0x438 (superblock offset 0x400 + s_magic offset 0x38).
type extProber struct{}

const extSBOffset = 0x400

func (extProber) Name() string { return "ext" }

func (extProber) Magics() []Magic {
	return []Magic{{Offset: extSBOffset + 0x38, Value: []byte{0x53, 0xef}}}
}

func (extProber) Probe(r io.ReaderAt) (*Result, error) {
	buf := make([]byte, 264)
	if _, err := r.ReadAt(buf, extSBOffset); err != nil {
		return nil, err
	}

	res := &Result{}

	if u, err := uuid.FromBytes(buf[0x68:0x78]); err == nil {
		res.UUID = &u
	}

	res.Label = trimNulString(buf[0x78 : 0x78+16])

	return res, nil
}

// xfsProber matches the "XFSB" magic at the start of the primary
// superblock.
type xfsProber struct{}

func (xfsProber) Name() string { return "xfs" }

func (xfsProber) Magics() []Magic {
	return []Magic{{Offset: 0, Value: []byte("XFSB")}}
}

func (xfsProber) Probe(r io.ReaderAt) (*Result, error) {
	buf := make([]byte, 32)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, err
	}

	res := &Result{}
	if u, err := uuid.FromBytes(buf[4:20]); err == nil {
		res.UUID = &u
	}

	return res, nil
}

// iso9660Prober matches the primary volume descriptor's "CD001" magic.
//
// TODO: this only reads the primary volume descriptor's label. Discs
// with a Joliet supplementary volume descriptor (type 2, UCS-2 label)
// and a blank primary label report an empty Label instead of the
// Joliet one; decoding that needs golang.org/x/text/encoding/unicode,
// dropped for now (see DESIGN.md).
type iso9660Prober struct{}

const iso9660SBOffset = 0x8000

func (iso9660Prober) Name() string { return "iso9660" }

func (iso9660Prober) Magics() []Magic {
	return []Magic{{Offset: iso9660SBOffset + 1, Value: []byte("CD001")}}
}

func (iso9660Prober) Probe(r io.ReaderAt) (*Result, error) {
	buf := make([]byte, 190)
	if _, err := r.ReadAt(buf, iso9660SBOffset); err != nil {
		return nil, err
	}

	// Volume identifier: 32 bytes at offset 40 of the primary volume descriptor.
	return &Result{Label: trimNulString(buf[40:72])}, nil
}

// swapProber matches Linux swap signatures, which util-linux places at
// pageSize-10 for every common page size since the signature location
// depends on the kernel's page size at mkswap time.
type swapProber struct{}

func (swapProber) Name() string { return "swap" }

func (swapProber) Magics() []Magic {
	var magics []Magic

	for _, pageSize := range []int{0x1000, 0x2000, 0x4000, 0x8000, 0x10000} {
		for _, sig := range [][]byte{[]byte("SWAP-SPACE"), []byte("SWAPSPACE2")} {
			magics = append(magics, Magic{Offset: pageSize - 10, Value: sig})
		}
	}

	return magics
}

func (swapProber) Probe(io.ReaderAt) (*Result, error) {
	return &Result{}, nil
}

// luks2Prober matches the LUKS2 binary header magic. A match here feeds
// model.SEDIndicators.SoftwareEncryptionDetected, distinct from the
// hardware-SED heuristic in the capability package: a LUKS2 container
// means the data is already encrypted at the filesystem layer,
// independent of whatever the underlying drive itself supports.
type luks2Prober struct{}

func (luks2Prober) Name() string { return "luks2" }

func (luks2Prober) Magics() []Magic {
	return []Magic{{Offset: 0, Value: []byte("LUKS\xba\xbe")}}
}

func (luks2Prober) Probe(r io.ReaderAt) (*Result, error) {
	buf := make([]byte, 592)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return nil, err
	}

	res := &Result{}

	res.Label = trimNulString(buf[0x18:0x18+48])

	if u, err := uuid.Parse(trimNulString(buf[0xa8 : 0xa8+40])); err == nil {
		res.UUID = &u
	}

	return res, nil
}
