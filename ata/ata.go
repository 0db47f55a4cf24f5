// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package ata implements the ATA Secure Erase Driver (C5): the
// SECURITY SET PASSWORD / SECURITY ERASE PREPARE / SECURITY ERASE UNIT
// three-command sequence, grounded on the original implementation's
// ataSecureErase and the ATA/ATAPI Command Set security feature set.
package ata

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coreclear/sanitize/capability"
	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/passthrough"
)

// State is a step in the erase state machine.
type State int

const (
	StateIdle State = iota
	StateProbed
	StatePasswordSet
	StatePreparedToErase
	StateErasing
	StateDone
	StateBlocked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateProbed:
		return "PROBED"
	case StatePasswordSet:
		return "PASSWORD_SET"
	case StatePreparedToErase:
		return "PREPARED_TO_ERASE"
	case StateErasing:
		return "ERASING"
	case StateDone:
		return "DONE"
	case StateBlocked:
		return "BLOCKED"
	case StateFailed:
		return "FAILED"
	default:
		return "IDLE"
	}
}

// Driver runs the ATA Secure Erase command sequence against a
// passthrough transport.
type Driver struct {
	t      passthrough.ATATransport
	logger *zap.Logger
	state  State
}

// New constructs a Driver bound to an ATA passthrough transport.
func New(t passthrough.ATATransport, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{t: t, logger: logger, state: StateIdle}
}

// State returns the driver's current state machine position.
func (d *Driver) State() State {
	return d.state
}

// erasePasswordBlock is the 512-byte SECURITY SET PASSWORD/ERASE UNIT
// data block. Byte 0 bit 0 selects user (0) vs master (1) password
// level; byte 0 bit 1 requests the enhanced erase mode on ERASE UNIT.
// The remaining bytes (the password itself) are left zeroed: an
// all-zero password is what the original implementation uses, since the
// password only needs to match between SET PASSWORD and ERASE UNIT
// within the same session, not be secret.
func erasePasswordBlock(enhanced bool) []byte {
	buf := make([]byte, 512)

	if enhanced {
		buf[0] = 0x02
	}

	return buf
}

// Erase runs the full three-command sequence: SET PASSWORD, ERASE
// PREPARE, ERASE UNIT. caps must come from a fresh capability probe
// against the same device; a frozen or locked device is rejected before
// any command is sent (spec.md invariant: "never SET PASSWORD against a
// device already ATA-locked by another party").
func (d *Driver) Erase(caps model.ATACapabilities, enhanced bool) error {
	d.state = StateProbed

	if !caps.Supported {
		d.state = StateFailed

		return fmt.Errorf("ata: %w: security feature set not supported", model.ErrUnsupported)
	}

	if caps.Frozen {
		d.state = StateBlocked

		return fmt.Errorf("ata: %w: security frozen, power cycle required to unfreeze", model.ErrBlocked)
	}

	if caps.Locked {
		d.state = StateBlocked

		return fmt.Errorf("ata: %w: device is security-locked", model.ErrBlocked)
	}

	if enhanced && !caps.EnhancedSupported {
		d.logger.Warn("enhanced erase requested but not supported by device, falling back to normal erase")

		enhanced = false
	}

	setPasswordBlock := erasePasswordBlock(false)

	if err := d.t.ExecATA(passthrough.ATARegisters{Command: passthrough.ATASecuritySetPassword}, passthrough.DirToDevice, setPasswordBlock, 15); err != nil {
		d.state = StateFailed

		return fmt.Errorf("ata: SECURITY SET PASSWORD: %w", err)
	}

	d.state = StatePasswordSet

	if err := d.t.ExecATA(passthrough.ATARegisters{Command: passthrough.ATASecurityErasePrepare}, passthrough.DirNone, nil, 10); err != nil {
		d.state = StateFailed

		return fmt.Errorf("ata: SECURITY ERASE PREPARE: %w", err)
	}

	d.state = StatePreparedToErase
	d.state = StateErasing

	start := time.Now()

	eraseTimeoutSec := 4 * 60 * 60

	eraseBlock := erasePasswordBlock(enhanced)

	if err := d.t.ExecATA(passthrough.ATARegisters{Command: passthrough.ATASecurityEraseUnit}, passthrough.DirToDevice, eraseBlock, eraseTimeoutSec); err != nil {
		d.state = StateFailed

		return fmt.Errorf("ata: SECURITY ERASE UNIT: %w", err)
	}

	d.logger.Info("ATA secure erase completed", zap.Duration("duration", time.Since(start)), zap.Bool("enhanced", enhanced))

	d.state = StateDone

	return nil
}

// Probe queries IDENTIFY DEVICE to obtain the current security
// capability record, which the caller should pass unmodified to Erase.
func Probe(t passthrough.ATATransport) (model.ATACapabilities, string, error) {
	return capability.QueryATA(t)
}

// ErrEnhancedUnsupported is returned by callers that require enhanced
// erase and refuse the normal-erase fallback.
var ErrEnhancedUnsupported = errors.New("ata: enhanced erase not supported by device")
