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

// nvmePassthruCmd mirrors struct nvme_passthru_cmd from
// <linux/nvme_ioctl.h>, the native NVMe admin passthrough ABI. This is
// the path the NVMe Sanitize Driver (C6) uses against /dev/nvmeXnY;
// Transport.ExecNVMeAdmin (SG_IO) is kept for NVMe devices that only
// expose a SCSI generic node.
type nvmePassthruCmd struct {
	opcode      uint8
	flags       uint8
	rsvd1       uint16
	nsid        uint32
	cdw2        uint32
	cdw3        uint32
	metadata    uint64
	addr        uint64
	metadataLen uint32
	dataLen     uint32
	cdw10       uint32
	cdw11       uint32
	cdw12       uint32
	cdw13       uint32
	cdw14       uint32
	cdw15       uint32
	timeoutMs   uint32
	result      uint32
}

// NVME_IOCTL_ADMIN_CMD = _IOWR('N', 0x41, struct nvme_admin_cmd), computed
// the way <asm-generic/ioctl.h> defines _IOWR.
const nvmeIOCTLAdminCmd = 0xC0484E41

// NVMeDirect issues admin commands straight to an NVMe character or
// namespace device node via NVME_IOCTL_ADMIN_CMD, bypassing SG_IO
// entirely. This is the transport the Sanitize Driver prefers.
type NVMeDirect struct {
	fd uintptr
}

// NewNVMeDirect wraps an open /dev/nvmeXnY (or /dev/nvmeX controller)
// file descriptor.
func NewNVMeDirect(fd uintptr) *NVMeDirect {
	return &NVMeDirect{fd: fd}
}

// ExecNVMeAdmin issues cmd via NVME_IOCTL_ADMIN_CMD. The completion dword
// is discarded; callers that need it should use ExecNVMeAdminResult.
func (n *NVMeDirect) ExecNVMeAdmin(cmd NVMeAdminCommand, dir Direction, buf []byte, timeoutSec int) error {
	_, err := n.exec(cmd, buf, timeoutSec)

	return err
}

// ExecNVMeAdminResult is ExecNVMeAdmin plus the raw completion dword.
// The SANICAP capability probe does not need it: it reads SANICAP from
// the Identify Controller data buffer via ExecNVMeAdmin.
func (n *NVMeDirect) ExecNVMeAdminResult(cmd NVMeAdminCommand, buf []byte, timeoutSec int) (uint32, error) {
	return n.exec(cmd, buf, timeoutSec)
}

func (n *NVMeDirect) exec(cmd NVMeAdminCommand, buf []byte, timeoutSec int) (uint32, error) {
	raw := nvmePassthruCmd{
		opcode:    cmd.Opcode,
		nsid:      cmd.NSID,
		cdw10:     cmd.CDW10,
		cdw11:     cmd.CDW11,
		cdw12:     cmd.CDW12,
		cdw13:     cmd.CDW13,
		cdw14:     cmd.CDW14,
		cdw15:     cmd.CDW15,
		timeoutMs: uint32(timeoutSec) * 1000,
	}

	if len(buf) > 0 {
		raw.addr = uint64(uintptr(unsafe.Pointer(&buf[0])))
		raw.dataLen = uint32(len(buf))
	}

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, n.fd, nvmeIOCTLAdminCmd, uintptr(unsafe.Pointer(&raw))); errno != 0 {
		return 0, fmt.Errorf("passthrough: NVME_IOCTL_ADMIN_CMD opcode 0x%02x: %w", cmd.Opcode, errno)
	}

	return raw.result, nil
}
