// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cryptoerase

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/coreclear/sanitize/passthrough"
)

// ErrNoOPAL20Support mirrors the sentinel a TCG Opal session library
// returns when Discovery0 finds no OPAL 2.0 feature descriptor, in the
// style of github.com/bluecmd/go-opal's session Open call.
var ErrNoOPAL20Support = errors.New("cryptoerase: device does not support OPAL 2.0")

// ataTrustedReceive is the ATA command used to retrieve the Level 0
// Discovery response, per the ATA/ATAPI Command Set trusted-computing
// feature set.
const ataTrustedReceive uint8 = 0x5c

// opal20FeatureCode identifies the OPAL SSC 2.0 feature descriptor in a
// Level 0 Discovery response, per the TCG Storage Architecture Core
// Specification.
const opal20FeatureCode uint16 = 0x0203

// discoveryResult is the parsed subset of a Level 0 Discovery header and
// feature list this package needs: whether OPAL 2.0 is present.
type discoveryResult struct {
	OPAL20 bool
}

// discovery0 issues a non-destructive TRUSTED RECEIVE (protocol 1,
// comID 1 for Level 0 Discovery) and scans the returned feature
// descriptor list for the OPAL 2.0 feature code. It never writes to the
// device: this is a read-only probe suitable for the Capability Query
// as well as the Crypto-Erase Dispatcher's reasoning.
func discovery0(t passthrough.ATATransport) (discoveryResult, error) {
	buf := make([]byte, 512)

	regs := passthrough.ATARegisters{
		Command: ataTrustedReceive,
		Feature: 0x01, // security protocol 1 = TCG
		LBAMid:  0x01, // comID low byte (comID 0x0001), level 0 discovery
	}

	if err := t.ExecATA(regs, passthrough.DirFromDevice, buf, 10); err != nil {
		return discoveryResult{}, fmt.Errorf("cryptoerase: TRUSTED RECEIVE (Level 0 Discovery): %w", err)
	}

	// Level 0 Discovery header: 4-byte length prefix, then feature
	// descriptors starting at offset 48.
	length := binary.BigEndian.Uint32(buf[0:4])
	if length == 0 || int(length) > len(buf) {
		return discoveryResult{}, nil
	}

	res := discoveryResult{}

	pos := 48
	for pos+4 <= int(length) {
		code := binary.BigEndian.Uint16(buf[pos : pos+2])
		featureLen := int(buf[pos+3]) + 4

		if code == opal20FeatureCode {
			res.OPAL20 = true

			break
		}

		if featureLen <= 0 {
			break
		}

		pos += featureLen
	}

	return res, nil
}

// revert stands in for the TCG Opal Revert method against the Admin SP
// (which would restore the drive to its factory state and destroy every
// media encryption key). Session negotiation (StartSession/Authenticate
// with PBKDF2 key wrapping) is not implemented, so revert sends nothing
// to the device and always returns an error wrapping ErrNoOPAL20Support;
// the dispatcher then falls back to ATA Secure Erase, with the fallback
// recorded in the result reason.
func revert(t passthrough.ATATransport) error {
	return fmt.Errorf("cryptoerase: %w: full TCG session negotiation not implemented", ErrNoOPAL20Support)
}
