// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package model

import "errors"

// Sentinel errors returned by drivers before they are shaped into a
// PurgeResult by the root dispatcher. Callers that only need the typed
// result never see these; they exist so internal packages can use
// errors.Is/errors.As instead of matching on strings.
var (
	// ErrUnsupported means the requested capability is missing on this device.
	ErrUnsupported = errors.New("sanitize: method not supported by this device")
	// ErrBlocked means the capability is present but a precondition failed
	// (frozen or locked ATA security, for example).
	ErrBlocked = errors.New("sanitize: operation blocked by device precondition")
	// ErrTimeout means a poll loop exceeded its bound (NVMe Sanitize, 4h/2880 polls).
	ErrTimeout = errors.New("sanitize: operation timed out waiting for device")
	// ErrCancelled names cancellation by a host-supplied token. The
	// overwrite pipeline and the NVMe driver report cancellation with
	// ctx.Err() and do not wrap this sentinel.
	ErrCancelled = errors.New("sanitize: cancelled by caller")
	// ErrNotConfirmed means Destroy was invoked without confirm=true.
	ErrNotConfirmed = errors.New("sanitize: destroy requires explicit confirmation")
	// ErrOpenFailed means the device handle could not be acquired.
	ErrOpenFailed = errors.New("sanitize: failed to open device")
)
