// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build !linux

package overwrite

import (
	"fmt"

	"github.com/coreclear/sanitize/device"
)

func discardRange(dev *device.Device, start, length uint64) error {
	return fmt.Errorf("overwrite: discard not implemented on this platform")
}
