// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package capability implements the Capability Query (C2): decoding ATA
// IDENTIFY DEVICE word 128 and NVMe Identify Controller/SANICAP into the
// model.Capabilities record every method-selection decision is made
// from.
package capability

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/passthrough"
)

// ATA IDENTIFY DEVICE word 128 (Security status) bit positions, per the
// ATA/ATAPI Command Set.
const (
	ataSecuritySupported     uint16 = 1 << 0
	ataSecurityEnabled       uint16 = 1 << 1
	ataSecurityLocked        uint16 = 1 << 2
	ataSecurityFrozen        uint16 = 1 << 3
	ataSecurityCountExpired  uint16 = 1 << 4
	ataSecurityEnhancedErase uint16 = 1 << 5
)

// DecodeATASecurityWord unpacks IDENTIFY DEVICE word 128 into
// model.ATACapabilities.
func DecodeATASecurityWord(word uint16) model.ATACapabilities {
	return model.ATACapabilities{
		Supported:         word&ataSecuritySupported != 0,
		Enabled:           word&ataSecurityEnabled != 0,
		Locked:            word&ataSecurityLocked != 0,
		Frozen:            word&ataSecurityFrozen != 0,
		EnhancedSupported: word&ataSecurityEnhancedErase != 0,
		RawSecurityWord:   word,
	}
}

// QueryATA issues IDENTIFY DEVICE (0xEC) and returns the decoded
// security capability bits plus the model string ATA words 27-46 carry
// (the serial number is not extracted), which the Device Probe (C1)
// folds into its device info alongside sysdisk's sysfs-derived values.
func QueryATA(t passthrough.ATATransport) (model.ATACapabilities, string, error) {
	buf := make([]byte, 512)

	regs := passthrough.ATARegisters{Command: passthrough.ATAIdentifyDevice}
	if err := t.ExecATA(regs, passthrough.DirFromDevice, buf, 10); err != nil {
		return model.ATACapabilities{}, "", fmt.Errorf("capability: IDENTIFY DEVICE: %w", err)
	}

	word128 := binary.LittleEndian.Uint16(buf[128*2:])
	modelStr := ataModelString(buf)

	return DecodeATASecurityWord(word128), modelStr, nil
}

// ataModelString extracts the 40-byte ASCII model string at IDENTIFY
// words 27-46, which the ATA spec stores byte-swapped within each word.
func ataModelString(identify []byte) string {
	raw := identify[27*2 : 47*2]
	swapped := make([]byte, len(raw))

	for i := 0; i+1 < len(raw); i += 2 {
		swapped[i] = raw[i+1]
		swapped[i+1] = raw[i]
	}

	return strings.TrimSpace(string(swapped))
}

// NVMe Identify Controller SANICAP (bytes 328-331) bit positions.
const (
	nvmeSanicapCryptoErase uint32 = 1 << 0
	nvmeSanicapBlockErase  uint32 = 1 << 1
	nvmeSanicapOverwrite   uint32 = 1 << 2
)

// DecodeSANICAP unpacks the SANICAP field of Identify Controller. Not
// every driver path parses it: QueryNVMeOverestimated below documents
// the alternative, spec-sanctioned "assume everything is supported"
// posture used when a full 4096-byte Identify Controller round trip
// isn't warranted just to answer a capability probe.
func DecodeSANICAP(sanicap uint32) model.NVMeCapabilities {
	return model.NVMeCapabilities{
		CryptoSupported:    sanicap&nvmeSanicapCryptoErase != 0,
		BlockSupported:     sanicap&nvmeSanicapBlockErase != 0,
		OverwriteSupported: sanicap&nvmeSanicapOverwrite != 0,
	}
}

// QueryNVMeOverestimated returns the capability record used when the
// caller elects not to parse Identify Controller SANICAP: all three
// sanitize actions are reported supported, and SANICAPOverestimated is
// set so callers know an unsupported-action error is still possible at
// execution time. spec.md §4.2 explicitly sanctions this shortcut.
func QueryNVMeOverestimated() model.NVMeCapabilities {
	return model.NVMeCapabilities{
		CryptoSupported:      true,
		BlockSupported:       true,
		OverwriteSupported:   true,
		SANICAPOverestimated: true,
	}
}

// QueryNVMe issues Identify Controller (CNS=1) and decodes SANICAP,
// giving a precise capability record instead of the overestimate.
func QueryNVMe(t passthrough.NVMeTransport) (model.NVMeCapabilities, error) {
	buf := make([]byte, 4096)

	cmd := passthrough.NVMeAdminCommand{
		Opcode: 0x06, // Identify
		CDW10:  1,    // CNS=1: Identify Controller
	}

	if err := t.ExecNVMeAdmin(cmd, passthrough.DirFromDevice, buf, 10); err != nil {
		return model.NVMeCapabilities{}, fmt.Errorf("capability: Identify Controller: %w", err)
	}

	sanicap := binary.LittleEndian.Uint32(buf[328:332])

	return DecodeSANICAP(sanicap), nil
}

// SEDHints are product-string substrings that indicate a self-encrypting
// drive, per spec.md §3's heuristic ("no universal capability bit for
// SED detection").
var SEDHints = []string{
	"SED",
	"Opal",
	"TCG",
	"Encrypted",
}

// DetectHWEncryption applies the SEDHints heuristic to a device's model
// string.
func DetectHWEncryption(modelString string) model.SEDIndicators {
	upper := strings.ToUpper(modelString)

	for _, hint := range SEDHints {
		if strings.Contains(upper, strings.ToUpper(hint)) {
			return model.SEDIndicators{HWEncryptionDetected: true, MatchedHint: hint}
		}
	}

	return model.SEDIndicators{}
}
