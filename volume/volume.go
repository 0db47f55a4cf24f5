// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package volume implements the Volume Preparer (C3). On POSIX systems
// this is informational only: unmounting is the caller's responsibility
// before the engine ever opens the device (spec.md §4.3), so Prepare
// reports what is mounted from the target disk without touching it.
package volume

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/coreclear/sanitize/fsid"
	"github.com/coreclear/sanitize/sysdisk"
)

// Mount describes one active mount sourced from the disk being prepared.
type Mount struct {
	Source     string
	Target     string
	Filesystem string
}

// Report is the outcome of Prepare: what C3 observed about the target
// disk's current mount and filesystem state, plus a warning when
// filesystems from the disk are still mounted. Prepare never unmounts on
// any platform; volume_windows.go's LockAndDismount is an unimplemented
// stub.
type Report struct {
	Mounts     []Mount
	Identified *fsid.Result
	Warnings   []string
}

// Prepare gathers mount and filesystem-identification information about
// devPath and every partition sysfs knows belongs to it. It never
// unmounts, locks, or otherwise mutates state on POSIX: spec.md's Volume
// Preparer non-goal explicitly excludes that here, leaving it to the
// caller's own pre-flight tooling.
func Prepare(devPath string, logger *zap.Logger) (Report, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	report := Report{}

	mounts, err := readProcMounts()
	if err != nil {
		logger.Warn("could not read /proc/mounts", zap.Error(err))
	} else {
		diskName := sysdisk.NameFromPath(devPath)

		for _, m := range mounts {
			if sysdisk.NameFromPath(m.Source) == diskName {
				report.Mounts = append(report.Mounts, m)
			}
		}
	}

	if len(report.Mounts) > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d filesystem(s) from this disk are currently mounted; sanitize will fail or corrupt live data if not unmounted first", len(report.Mounts)))
	}

	f, err := os.Open(devPath)
	if err == nil {
		defer f.Close() //nolint:errcheck

		if res, err := fsid.DefaultChain().Identify(f); err == nil {
			report.Identified = res
		}
	}

	return report, nil
}

func readProcMounts() ([]Mount, error) {
	f, err := os.Open("/proc/mounts")
	if err != nil {
		return nil, fmt.Errorf("volume: open /proc/mounts: %w", err)
	}
	defer f.Close() //nolint:errcheck

	var mounts []Mount

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}

		if !strings.HasPrefix(fields[0], "/dev/") {
			continue
		}

		mounts = append(mounts, Mount{Source: fields[0], Target: fields[1], Filesystem: fields[2]})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("volume: scan /proc/mounts: %w", err)
	}

	return mounts, nil
}
