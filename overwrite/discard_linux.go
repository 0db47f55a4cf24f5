// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux

package overwrite

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/coreclear/sanitize/device"
)

// discardRange tries BLKSECDISCARD (cryptographic/secure trim) and falls
// back to a plain BLKDISCARD, mirroring the fallback chain the teacher's
// block.Device.WipeRange uses. Neither is a substitute for the write
// pass that follows; this only gives flash controllers a chance to
// retire blocks up front, which on some SSDs measurably speeds up the
// write that comes after.
func discardRange(dev *device.Device, start, length uint64) error {
	r := [2]uint64{start, length}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, dev.File().Fd(), unix.BLKSECDISCARD, uintptr(unsafe.Pointer(&r[0]))); errno == 0 {
		return nil
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, dev.File().Fd(), unix.BLKDISCARD, uintptr(unsafe.Pointer(&r[0]))); errno == 0 {
		return nil
	}

	return fmt.Errorf("overwrite: BLKSECDISCARD/BLKDISCARD unavailable")
}
