// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package passthrough issues raw ATA-16 and NVMe admin commands through
// the Linux SCSI generic (SG_IO) ioctl, the transport the ATA Secure
// Erase Driver (C5) and NVMe Sanitize Driver (C6) build on. The framing
// mirrors the approach github.com/bluecmd/go-opal/drive/sgio takes for
// TCG Opal command delivery, adapted here for the ATA security and NVMe
// admin command sets instead of Opal's IF-SEND/IF-RECV.
package passthrough

import "fmt"

// ATARegisters is the subset of the ATA task file this package cares
// about: enough to build IDENTIFY DEVICE and the SECURITY SET
// PASSWORD/ERASE PREPARE/ERASE UNIT command sequence (spec.md §6).
type ATARegisters struct {
	Command  uint8
	Feature  uint8
	Count    uint8
	LBALow   uint8
	LBAMid   uint8
	LBAHigh  uint8
	Device   uint8
}

// ATA command opcodes used by the Capability Query and ATA Secure Erase
// Driver, taken from the ATA/ATAPI Command Set.
const (
	ATAIdentifyDevice      uint8 = 0xEC
	ATASecuritySetPassword uint8 = 0xF1
	ATASecurityUnlock      uint8 = 0xF2
	ATASecurityErasePrepare uint8 = 0xF3
	ATASecurityEraseUnit   uint8 = 0xF4
	ATASecurityFreezeLock  uint8 = 0xF5
)

// Direction of a passthrough transfer, matching SG_IO's dxfer_direction.
type Direction int

const (
	// DirNone issues a command with no data phase.
	DirNone Direction = iota
	// DirFromDevice reads a buffer back from the device.
	DirFromDevice
	// DirToDevice writes a buffer to the device.
	DirToDevice
)

// ATATransport issues ATA-16 passthrough commands against an open device
// file descriptor.
type ATATransport interface {
	ExecATA(regs ATARegisters, dir Direction, buf []byte, timeoutSec int) error
}

// NVMeAdminCommand is the fixed 64-byte NVMe submission queue entry
// shape, trimmed to the fields the Sanitize Driver needs: opcode,
// namespace ID, and command dwords 10-15.
type NVMeAdminCommand struct {
	Opcode uint8
	NSID   uint32
	CDW10  uint32
	CDW11  uint32
	CDW12  uint32
	CDW13  uint32
	CDW14  uint32
	CDW15  uint32
}

// NVMe admin opcodes used by the Sanitize Driver.
const (
	NVMeAdminSanitize    uint8 = 0x84
	NVMeAdminGetLogPage  uint8 = 0x02
	NVMeAdminIdentify    uint8 = 0x06
)

// NVMe Sanitize CDW10 action codes.
const (
	NVMeSanitizeActionExit         uint32 = 0
	NVMeSanitizeActionBlockErase   uint32 = 1
	NVMeSanitizeActionOverwrite    uint32 = 2
	NVMeSanitizeActionCryptoErase  uint32 = 3
)

// NVMeSanitizeStatusLogID is the Get Log Page log identifier for
// Sanitize Status (NVMe base spec figure "Log Page Identifiers").
const NVMeSanitizeStatusLogID uint32 = 0x81

// NVMeTransport issues NVMe admin passthrough commands.
type NVMeTransport interface {
	ExecNVMeAdmin(cmd NVMeAdminCommand, dir Direction, buf []byte, timeoutSec int) error
}

// ErrShortRead means fewer bytes came back than the command's expected
// response size, most likely because the underlying device rejected the
// command with a sense/status the SG_IO layer folded into a short read
// instead of a distinct error (some SATA-behind-USB bridges do this).
var ErrShortRead = fmt.Errorf("passthrough: short read from device")
