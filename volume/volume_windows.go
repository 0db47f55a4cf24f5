// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build windows

package volume

import "fmt"

// On windows the Volume Preparer is not a no-op: writing to a physical
// drive that has mounted volumes on it requires FSCTL_LOCK_VOLUME and
// FSCTL_DISMOUNT_VOLUME against each volume handle first, or the write
// is silently rejected by the filter driver stack. Neither ioctl has a
// golang.org/x/sys/windows binding in the pack's dependency set, so this
// stays a documented stub rather than a partial, silently-wrong
// implementation.

// LockAndDismount would issue FSCTL_LOCK_VOLUME then FSCTL_DISMOUNT_VOLUME
// against every volume mounted from the physical drive at devPath.
func LockAndDismount(devPath string) error {
	return fmt.Errorf("volume: lock/dismount not implemented on windows")
}
