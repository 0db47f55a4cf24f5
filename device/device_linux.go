// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux

package device

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// openWritableDirect opens path for exclusive writing, bypassing the page
// cache with O_DIRECT|O_SYNC where the underlying filesystem/device
// supports it (spec.md §4.4: "direct, write-through semantics"). Regular
// files (used by tests and the file-target overwrite path, scenario 3 in
// spec.md §8) frequently reject O_DIRECT with EINVAL; the pipeline falls
// back to buffered writes plus an explicit Sync after every pass in that
// case, since the invariant that matters is "flushed between passes", not
// the mechanism by which that flush happens.
func openWritableDirect(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_EXCL|unix.O_DIRECT|unix.O_SYNC, 0)
	if err == nil {
		return f, nil
	}

	if errors.Is(err, unix.EINVAL) {
		return os.OpenFile(path, os.O_WRONLY|unix.O_EXCL, 0)
	}

	return nil, err
}

// ioctlSize returns the block device size in bytes via BLKGETSIZE64. It
// returns an error for regular files, which is expected: probeSize falls
// back to os.Stat in that case.
func (d *Device) ioctlSize() (uint64, error) {
	var size uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&size))); errno != 0 {
		return 0, errno
	}

	return size, nil
}

// SectorSize returns the device's logical sector size via BLKSSZGET,
// falling back to DefaultSectorSize (spec.md §3) when the ioctl fails —
// this is normal for regular files and loopback images without an
// explicit logical block size.
func (d *Device) SectorSize() uint {
	var size uint
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKSSZGET, uintptr(unsafe.Pointer(&size))); errno != 0 || size == 0 {
		return DefaultSectorSize
	}

	return size
}

// IOOptimalSize returns the device's preferred I/O size (BLKIOOPT, then
// BLKBSZGET, then DefaultSectorSize). The overwrite pipeline does not
// consult it: its write chunk size comes from overwrite.Options.BufferSize.
func (d *Device) IOOptimalSize() uint {
	for _, ioctl := range []uintptr{unix.BLKIOOPT, unix.BLKBSZGET} {
		var size uint
		if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), ioctl, uintptr(unsafe.Pointer(&size))); errno == 0 && size > 0 {
			return size
		}
	}

	return DefaultSectorSize
}

// IsRotational reports whether the kernel's block layer believes this
// device has a seek penalty. Devices without a queue/rotational sysfs
// attribute (regular files, some virtual devices) return false, matching
// the SSD-leaning default the classifier uses when unsure.
func (d *Device) IsRotational() bool {
	devNo, err := d.DevNo()
	if err != nil {
		return false
	}

	path := fmt.Sprintf("/sys/dev/block/%d:%d/queue/rotational", unix.Major(devNo), unix.Minor(devNo))

	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	return len(data) > 0 && data[0] == '1'
}

// DevNo returns the device's major:minor number, used by IsRotational to
// resolve its /sys/dev/block path. The Volume Preparer does not use it: it
// matches mounts to the disk by sysdisk.NameFromPath.
func (d *Device) DevNo() (uint64, error) {
	if d.devNo != 0 {
		return d.devNo, nil
	}

	var st unix.Stat_t
	if err := unix.Fstat(int(d.f.Fd()), &st); err != nil {
		return 0, err
	}

	d.devNo = st.Rdev

	return d.devNo, nil
}

// IsReadOnly reports whether the kernel has marked the device read-only
// (BLKROGET), independent of how this handle itself was opened.
func (d *Device) IsReadOnly() (bool, error) {
	var flag int
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, d.f.Fd(), unix.BLKROGET, uintptr(unsafe.Pointer(&flag))); errno != 0 {
		return false, errno
	}

	return flag != 0, nil
}

// Lock acquires an flock(2) lock on the device. No entry point of this
// module calls it; write exclusion comes from the O_EXCL open in
// OpenForWrite.
func (d *Device) Lock(exclusive bool) error {
	return d.lock(exclusive, 0)
}

// TryLock is Lock without blocking; it returns an error immediately if
// the lock is held elsewhere.
func (d *Device) TryLock(exclusive bool) error {
	return d.lock(exclusive, unix.LOCK_NB)
}

// Unlock releases any lock held via Lock/TryLock. Best-effort: spec.md §4.3
// says "unlock on engine exit is best-effort".
func (d *Device) Unlock() error {
	for {
		if err := unix.Flock(int(d.f.Fd()), unix.LOCK_UN); !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

func (d *Device) lock(exclusive bool, flag int) error {
	if exclusive {
		flag |= unix.LOCK_EX
	} else {
		flag |= unix.LOCK_SH
	}

	for {
		if err := unix.Flock(int(d.f.Fd()), flag); !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}
