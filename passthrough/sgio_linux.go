// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build linux

package passthrough

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sgIOHdr mirrors struct sg_io_hdr from <scsi/sg.h>. Field order and
// sizes must match the kernel's definition exactly since this is passed
// by raw pointer through SG_IO.
type sgIOHdr struct {
	interfaceID    int32
	dxferDirection int32
	cmdLen         uint8
	mxSbLen        uint8
	iovecCount     uint16
	dxferLen       uint32
	dxferp         uintptr
	cmdp           uintptr
	sbp            uintptr
	timeout        uint32
	flags          uint32
	packID         int32
	usrPtr         uintptr
	status         uint8
	maskedStatus   uint8
	msgStatus      uint8
	sbLenWr        uint8
	hostStatus     uint16
	driverStatus   uint16
	resid          int32
	duration       uint32
	info           uint32
}

const (
	sgDXferNone     = -1
	sgDXferToDev    = -2
	sgDXferFromDev  = -3
	sgInterfaceID   = 'S'
	sgIOIoctl       = 0x2285 // SG_IO
)

func dxferDirection(dir Direction) int32 {
	switch dir {
	case DirFromDevice:
		return sgDXferFromDev
	case DirToDevice:
		return sgDXferToDev
	default:
		return sgDXferNone
	}
}

// ATA PASS-THROUGH(16) opcode and protocol/flag values, per SAT-3.
const (
	ataPassThrough16 = 0x85

	ataProtoNonData  = 3 << 1
	ataProtoPIOIn    = 4 << 1
	ataProtoPIOOut   = 5 << 1

	ataTFlagLBA   = 1 << 0
	ataCkCondBit  = 1 << 5
	ataTLenSector = 2 << 0
	ataTLenNSect  = 1 << 2
	ataTDirFromDev = 1 << 3
)

// buildATA16CDB assembles the 16-byte ATA PASS-THROUGH CDB carrying the
// task file registers in regs, per SAT-3 table 176.
func buildATA16CDB(regs ATARegisters, dir Direction, sectorCount uint8) [16]byte {
	var cdb [16]byte

	cdb[0] = ataPassThrough16

	proto := ataProtoNonData

	flags := byte(ataCkCondBit)

	switch dir {
	case DirFromDevice:
		proto = ataProtoPIOIn
		flags |= ataTDirFromDev | ataTLenSector | ataTLenNSect
	case DirToDevice:
		proto = ataProtoPIOOut
		flags |= ataTLenSector | ataTLenNSect
	}

	cdb[1] = byte(proto)
	cdb[2] = flags
	cdb[3] = 0 // feature (15:8)
	cdb[4] = regs.Feature
	cdb[5] = 0 // count (15:8)
	cdb[6] = sectorCount
	cdb[7] = regs.LBALow
	cdb[8] = regs.LBAMid
	cdb[9] = regs.LBAHigh
	cdb[10] = 0
	cdb[11] = 0
	cdb[12] = 0
	cdb[13] = regs.Device
	cdb[14] = regs.Command
	cdb[15] = 0

	return cdb
}

// Transport wraps a raw device file descriptor with ATA-16/NVMe admin
// passthrough capability via SG_IO. It implements both ATATransport and
// NVMeTransport; drivers hold whichever interface they need.
type Transport struct {
	fd uintptr
}

// New wraps fd for passthrough command delivery. fd must refer to an
// open block device (or its SCSI generic sibling), not a regular file.
func New(fd uintptr) *Transport {
	return &Transport{fd: fd}
}

// ExecATA issues an ATA-16 passthrough command and waits for completion.
func (t *Transport) ExecATA(regs ATARegisters, dir Direction, buf []byte, timeoutSec int) error {
	sectorCount := uint8(len(buf) / 512)
	if len(buf) > 0 && len(buf)%512 != 0 {
		return fmt.Errorf("passthrough: ATA data buffer must be a multiple of 512 bytes, got %d", len(buf))
	}

	cdb := buildATA16CDB(regs, dir, sectorCount)

	var sense [32]byte

	hdr := sgIOHdr{
		interfaceID:    sgInterfaceID,
		dxferDirection: dxferDirection(dir),
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		dxferLen:       uint32(len(buf)),
		cmdp:           uintptr(unsafe.Pointer(&cdb[0])),
		sbp:            uintptr(unsafe.Pointer(&sense[0])),
		timeout:        uint32(timeoutSec) * 1000,
	}

	if len(buf) > 0 {
		hdr.dxferp = uintptr(unsafe.Pointer(&buf[0]))
	}

	if err := ioctlSGIO(t.fd, &hdr); err != nil {
		return fmt.Errorf("passthrough: SG_IO ATA command 0x%02x: %w", regs.Command, err)
	}

	if hdr.status != 0 || hdr.hostStatus != 0 || hdr.driverStatus != 0 {
		return fmt.Errorf("passthrough: ATA command 0x%02x failed: status=%d host=%d driver=%d sense=% x",
			regs.Command, hdr.status, hdr.hostStatus, hdr.driverStatus, sense[:hdr.sbLenWr])
	}

	return nil
}

// buildNVMeAdminCDB packs an NVMe admin command into the 16-byte
// variable-length CDB layout the Linux SG_IO/SCSI-to-NVMe translation
// shim expects, carrying opcode, nsid and the low command dwords.
// Devices exposed as /dev/nvmeXnY rarely need this path (NVMeDirect's
// NVME_IOCTL_ADMIN_CMD in nvme_linux.go is preferred there); ExecNVMeAdmin exists for
// completeness and for NVMe-behind-SAS/SCSI enclosures that only expose
// SG_IO.
func buildNVMeAdminCDB(cmd NVMeAdminCommand) [16]byte {
	var cdb [16]byte

	cdb[0] = cmd.Opcode
	cdb[4] = byte(cmd.NSID)
	cdb[5] = byte(cmd.NSID >> 8)
	cdb[6] = byte(cmd.NSID >> 16)
	cdb[7] = byte(cmd.NSID >> 24)
	cdb[8] = byte(cmd.CDW10)
	cdb[9] = byte(cmd.CDW10 >> 8)
	cdb[10] = byte(cmd.CDW10 >> 16)
	cdb[11] = byte(cmd.CDW10 >> 24)
	cdb[12] = byte(cmd.CDW11)
	cdb[13] = byte(cmd.CDW11 >> 8)
	cdb[14] = byte(cmd.CDW11 >> 16)
	cdb[15] = byte(cmd.CDW11 >> 24)

	return cdb
}

// ExecNVMeAdmin issues an NVMe admin command through SG_IO.
func (t *Transport) ExecNVMeAdmin(cmd NVMeAdminCommand, dir Direction, buf []byte, timeoutSec int) error {
	cdb := buildNVMeAdminCDB(cmd)

	var sense [32]byte

	hdr := sgIOHdr{
		interfaceID:    sgInterfaceID,
		dxferDirection: dxferDirection(dir),
		cmdLen:         uint8(len(cdb)),
		mxSbLen:        uint8(len(sense)),
		dxferLen:       uint32(len(buf)),
		cmdp:           uintptr(unsafe.Pointer(&cdb[0])),
		sbp:            uintptr(unsafe.Pointer(&sense[0])),
		timeout:        uint32(timeoutSec) * 1000,
	}

	if len(buf) > 0 {
		hdr.dxferp = uintptr(unsafe.Pointer(&buf[0]))
	}

	if err := ioctlSGIO(t.fd, &hdr); err != nil {
		return fmt.Errorf("passthrough: SG_IO NVMe admin opcode 0x%02x: %w", cmd.Opcode, err)
	}

	if hdr.status != 0 || hdr.hostStatus != 0 || hdr.driverStatus != 0 {
		return fmt.Errorf("passthrough: NVMe admin opcode 0x%02x failed: status=%d host=%d driver=%d",
			cmd.Opcode, hdr.status, hdr.hostStatus, hdr.driverStatus)
	}

	return nil
}

func ioctlSGIO(fd uintptr, hdr *sgIOHdr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, sgIOIoctl, uintptr(unsafe.Pointer(hdr))); errno != 0 {
		return errno
	}

	return nil
}
