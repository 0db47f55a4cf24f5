// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sysdisk gathers disk metadata from /sys/block without opening
// the device itself, adapted from the teacher's blockdevice/util/disk
// package. The Device Probe (C1) prefers this cheap, purely-informational
// path before falling back to ioctls on devices sysfs doesn't cover.
package sysdisk

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coreclear/sanitize/model"
)

// Info is everything C1/C2 can learn about a disk from sysfs alone.
type Info struct {
	// Name is the kernel device name, e.g. "sda", "nvme0n1".
	Name string
	// Size is the disk size in bytes, computed from the sysfs "size"
	// attribute, which is always in 512-byte units.
	Size uint64
	Model string
	Serial string
	WWID string
	// BusPath is the PCI/USB topology path under /sys/devices, with the
	// "block/<dev>" suffix trimmed off. A USB device's bus path contains
	// a "/usb" segment.
	BusPath string
	// Rotational is nil when the kernel didn't report the attribute
	// (some virtual/loop devices), true for HDDs, false for SSDs/NVMe.
	Rotational *bool
	ReadOnly   bool
}

// IsUSB reports whether the disk hangs off an xHCI/USB controller,
// judging by its sysfs bus topology — this is the same signal the
// original C++ inferred from the Windows STORAGE_ADAPTER_DESCRIPTOR
// BusType, expressed the Linux-native way.
func (i Info) IsUSB() bool {
	for _, seg := range strings.Split(i.BusPath, "/") {
		if strings.HasPrefix(seg, "usb") {
			return true
		}
	}

	return false
}

// IsNVMe reports whether the disk is an NVMe namespace device.
func (i Info) IsNVMe() bool {
	return strings.HasPrefix(i.Name, "nvme")
}

const sysBlockRoot = "/sys/block"

func readTrimmed(parts ...string) string {
	data, err := os.ReadFile(filepath.Join(parts...))
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// Get reads sysfs attributes for a single disk, given its kernel device
// name (not a full path). Missing attributes are left at their zero
// value: sysfs coverage varies across controllers and virtual devices.
func Get(name string) Info {
	name = filepath.Base(name)

	info := Info{Name: name}

	fullPath, _ := os.Readlink(filepath.Join(sysBlockRoot, name)) //nolint:errcheck

	info.BusPath = strings.TrimPrefix(fullPath, "../devices")
	info.BusPath = strings.TrimSuffix(info.BusPath, filepath.Join("block", name))

	if s := readTrimmed(sysBlockRoot, name, "size"); s != "" {
		if sectors, err := strconv.ParseUint(s, 10, 64); err == nil {
			info.Size = sectors * 512
		}
	}

	if rot := readTrimmed(sysBlockRoot, name, "queue", "rotational"); rot != "" {
		v := rot == "1"
		info.Rotational = &v
	}

	info.Model = readTrimmed(sysBlockRoot, name, "device", "model")
	info.Serial = readTrimmed(sysBlockRoot, name, "device", "serial")

	if info.Serial == "" {
		info.Serial = readTrimmed(sysBlockRoot, name, "serial")
	}

	info.WWID = readTrimmed(sysBlockRoot, name, "wwid")
	if info.WWID == "" {
		info.WWID = readTrimmed(sysBlockRoot, name, "device", "wwid")
	}

	info.ReadOnly = readTrimmed(sysBlockRoot, name, "ro") == "1"

	return info
}

// List enumerates every physical disk under /sys/block, skipping
// partitions, loopback, device-mapper, ramdisk and optical devices —
// the same exclusion list the teacher's disks.List uses.
func List() ([]Info, error) {
	entries, err := os.ReadDir(sysBlockRoot)
	if err != nil {
		return nil, fmt.Errorf("sysdisk: read %s: %w", sysBlockRoot, err)
	}

	var disks []Info

	for _, e := range entries {
		name := e.Name()

		skip := false

		for _, prefix := range []string{"sr", "loop", "md", "dm-", "ram"} {
			if strings.HasPrefix(name, prefix) {
				skip = true

				break
			}
		}

		if skip {
			continue
		}

		info := Get(name)
		if info.Size == 0 {
			continue
		}

		disks = append(disks, info)
	}

	return disks, nil
}

// Classify maps sysfs-observed attributes to the DeviceType taxonomy the
// rest of the engine dispatches on. USB wins over every other signal, per
// the hard invariant that USB never gets a hardware purge path regardless
// of what transport hides underneath it (a USB-SATA bridge, for example).
func (i Info) Classify() model.DeviceType {
	switch {
	case i.IsUSB():
		return model.USB
	case i.IsNVMe():
		return model.NVMe
	case i.Rotational == nil:
		return model.Unknown
	case *i.Rotational:
		return model.SATAHDD
	default:
		return model.SATASSD
	}
}

// NameFromPath extracts the kernel device name from a /dev path,
// resolving partitions to their whole-disk device where possible.
func NameFromPath(devPath string) string {
	name := filepath.Base(devPath)

	if _, err := os.Stat(filepath.Join(sysBlockRoot, name)); err == nil {
		return name
	}

	// Not itself a whole-disk name (e.g. "sda1", "nvme0n1p1"); walk the
	// sysfs partition symlink back to its parent.
	if link, err := os.Readlink(filepath.Join("/sys/class/block", name)); err == nil {
		parts := strings.Split(link, "/")
		for i, p := range parts {
			if p == "block" && i+1 < len(parts) {
				return parts[i+1]
			}
		}
	}

	return name
}
