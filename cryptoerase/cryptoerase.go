// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package cryptoerase implements the Crypto-Erase Dispatcher (C7):
// choosing among NVMe Sanitize crypto-erase, TCG Opal Revert, and a
// fallback to ATA Secure Erase, in that preference order, for a device
// with self-encrypting-drive indicators.
package cryptoerase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/coreclear/sanitize/ata"
	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/nvme"
	"github.com/coreclear/sanitize/passthrough"
)

// Outcome records which strategy the dispatcher used, for the caller to
// fold into a PurgeResult's Reason field.
type Outcome struct {
	Method model.Method
	Reason string
}

// DispatchNVMe chooses NVMe Sanitize crypto-erase whenever NVMe SANICAP
// (or its overestimate) reports crypto support, since it is the
// cheapest, best-standardized crypto-erase path on that transport.
func DispatchNVMe(ctx context.Context, t passthrough.NVMeTransport, caps model.NVMeCapabilities, logger *zap.Logger, progress model.ProgressFunc) (Outcome, error) {
	if !caps.CryptoSupported {
		return Outcome{}, fmt.Errorf("cryptoerase: %w: NVMe crypto erase", model.ErrUnsupported)
	}

	driver := nvme.New(t, logger)

	if err := driver.Sanitize(ctx, nvme.ActionCryptoErase, progress); err != nil {
		return Outcome{}, err
	}

	return Outcome{Method: model.MethodNVMeSanitizeCrypto, Reason: "nvme sanitize crypto erase"}, nil
}

// DispatchATA chooses TCG Opal Revert when the device advertises OPAL
// 2.0 support, falling back to a normal ATA Secure Erase (which, on a
// self-encrypting drive, also destroys the media encryption key and so
// is cryptographically equivalent in effect even though it isn't a
// dedicated Revert) when Opal session negotiation isn't available.
func DispatchATA(t passthrough.ATATransport, sed model.SEDIndicators, caps model.ATACapabilities, logger *zap.Logger) (Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	d0, err := discovery0(t)
	if err == nil && d0.OPAL20 {
		if revErr := revert(t); revErr == nil {
			return Outcome{Method: model.MethodCryptoErase, Reason: "tcg opal revert"}, nil
		} else {
			logger.Info("TCG Opal Revert unavailable, falling back to ATA Secure Erase", zap.Error(revErr))
		}
	}

	driver := ata.New(t, logger)

	if err := driver.Erase(caps, caps.EnhancedSupported); err != nil {
		return Outcome{}, err
	}

	reason := "ata secure erase fallback (no opal session support)"
	if sed.HWEncryptionDetected {
		reason = fmt.Sprintf("ata secure erase fallback for detected SED (%s)", sed.MatchedHint)
	}

	method := model.MethodATASecureErase
	if caps.EnhancedSupported {
		method = model.MethodATASecureEraseEnhanced
	}

	return Outcome{Method: method, Reason: reason}, nil
}
