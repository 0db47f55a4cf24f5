// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package model defines the data types shared by every sanitization
// component: device classification, capability records, pattern passes,
// and the PurgeResult returned to callers. It has no dependency on any
// other package in this module so that drivers, probes, and the root
// dispatcher can all import it without creating import cycles.
package model

import "fmt"

// DeviceType classifies the physical transport/media of a block device.
type DeviceType int

const (
	// Unknown device type could not be determined.
	Unknown DeviceType = iota
	// USB is a USB-attached mass storage device.
	USB
	// SATAHDD is a rotational SATA drive.
	SATAHDD
	// SATASSD is a non-rotational SATA drive.
	SATASSD
	// NVMe is an NVM Express device.
	NVMe
	// SCSI is a SCSI-attached device (excluding USB and NVMe).
	SCSI
)

// String implements fmt.Stringer.
func (t DeviceType) String() string {
	switch t {
	case USB:
		return "USB"
	case SATAHDD:
		return "SATA_HDD"
	case SATASSD:
		return "SATA_SSD"
	case NVMe:
		return "NVMe"
	case SCSI:
		return "SCSI"
	default:
		return "Unknown"
	}
}

// IsPurgeSupported reports whether the device class can, in principle,
// accept a hardware purge command (ATA Secure Erase / NVMe Sanitize).
// USB always returns false regardless of capability probe results: this
// is a hard invariant, not a heuristic (spec.md invariant 4).
func IsPurgeSupported(t DeviceType) bool {
	switch t {
	case SATAHDD, SATASSD, NVMe, SCSI:
		return true
	default:
		return false
	}
}

// Method identifies the sanitization method selected or attempted.
type Method int

const (
	// MethodNone is the zero value: no method selected yet.
	MethodNone Method = iota
	// MethodClearZero overwrites every LBA once with 0x00.
	MethodClearZero
	// MethodClearRandom overwrites every LBA once with CSPRNG bytes.
	MethodClearRandom
	// MethodDoD is the DoD 5220.22-M three-pass sequence.
	MethodDoD
	// MethodGutmann is the 35-pass Gutmann sequence.
	MethodGutmann
	// MethodATASecureErase is the ATA Security Erase Unit command (Normal).
	MethodATASecureErase
	// MethodATASecureEraseEnhanced is Security Erase Unit with the Enhanced bit set.
	MethodATASecureEraseEnhanced
	// MethodNVMeSanitizeCrypto is NVMe Sanitize with the crypto-erase action.
	MethodNVMeSanitizeCrypto
	// MethodNVMeSanitizeBlock is NVMe Sanitize with the block-erase action.
	MethodNVMeSanitizeBlock
	// MethodNVMeSanitizeOverwrite is NVMe Sanitize with the overwrite action.
	MethodNVMeSanitizeOverwrite
	// MethodCryptoErase is the crypto-erase dispatcher's chosen strategy.
	MethodCryptoErase
	// MethodDestroy is the four-stage Destroy sequence.
	MethodDestroy
)

// String implements fmt.Stringer.
func (m Method) String() string {
	switch m {
	case MethodClearZero:
		return "CLEAR_ZERO"
	case MethodClearRandom:
		return "CLEAR_RANDOM"
	case MethodDoD:
		return "DOD_5220_22_M"
	case MethodGutmann:
		return "GUTMANN"
	case MethodATASecureErase:
		return "ATA_SECURE_ERASE"
	case MethodATASecureEraseEnhanced:
		return "ATA_SECURE_ERASE_ENHANCED"
	case MethodNVMeSanitizeCrypto:
		return "NVME_SANITIZE_CRYPTO"
	case MethodNVMeSanitizeBlock:
		return "NVME_SANITIZE_BLOCK"
	case MethodNVMeSanitizeOverwrite:
		return "NVME_SANITIZE_OVERWRITE"
	case MethodCryptoErase:
		return "CRYPTO_ERASE"
	case MethodDestroy:
		return "DESTROY"
	default:
		return "NONE"
	}
}

// Status is the outcome bucket of a PurgeResult, per spec.md §7.
type Status string

const (
	// StatusSuccess is a cleanly completed command or pipeline.
	StatusSuccess Status = "success"
	// StatusDryRun is a non-destructive probe-only invocation.
	StatusDryRun Status = "dry_run"
	// StatusUnsupported means the capability is missing.
	StatusUnsupported Status = "unsupported"
	// StatusBlocked means the capability is present but a precondition failed.
	StatusBlocked Status = "blocked"
	// StatusError means an OS call failed.
	StatusError Status = "error"
	// StatusTimeout means a poll loop exceeded its bound.
	StatusTimeout Status = "timeout"
)

// ATACapabilities decodes ATA IDENTIFY DEVICE word 128.
type ATACapabilities struct {
	Supported         bool
	Enabled           bool
	Locked            bool
	Frozen            bool
	EnhancedSupported bool
	RawSecurityWord   uint16
}

// NVMeCapabilities decodes NVMe SANICAP and sanitize-status log state.
type NVMeCapabilities struct {
	CryptoSupported     bool
	BlockSupported      bool
	OverwriteSupported  bool
	SanitizeInProgress  bool
	// SANICAPOverestimated records that the implementation did not parse
	// SANICAP and is assuming all three modes are supported, per spec.md
	// §4.2. Execution-time unsupported errors are then possible even
	// though the probe reported supported==true.
	SANICAPOverestimated bool
}

// SEDIndicators are heuristic self-encrypting-drive signals gathered at
// probe time (spec.md §3: product-string heuristic).
type SEDIndicators struct {
	HWEncryptionDetected bool
	// SoftwareEncryptionDetected is set when a LUKS2 (or similar)
	// container header is found on the device — a supplement over the
	// original spec, see SPEC_FULL.md §4/§6.
	SoftwareEncryptionDetected bool
	// MatchedHint is the substring of the product string that triggered
	// HWEncryptionDetected, kept for audit/debugging.
	MatchedHint string
}

// Capabilities aggregates every capability record gathered by C2 for one
// device-open. Capabilities are immutable once observed (spec.md §3).
type Capabilities struct {
	ATA  ATACapabilities
	NVMe NVMeCapabilities
	SED  SEDIndicators
}

// Pattern is a single overwrite pass specification: a fixed byte pattern
// or a request for cryptographically random fill.
type Pattern struct {
	Byte      uint8
	Randomize bool
}

// ProgressSample is emitted by long-running drivers at most once per 1 GiB
// or 500ms of wall time, whichever is coarser (spec.md §3).
type ProgressSample struct {
	BytesWritten uint64
	TotalBytes   uint64
	Percent      float64
	SpeedMBps    float64
	PassIndex    int
	PassCount    int
}

// ProgressFunc receives progress samples from a running driver. It may be
// called from a worker goroutine; implementations must not block for long.
type ProgressFunc func(ProgressSample)

// PurgeResult is the structured, audit-suitable outcome of every engine
// entry point (spec.md §3/§6).
type PurgeResult struct {
	Success      bool
	Supported    bool
	Executed     bool
	DeviceType   DeviceType
	Method       Method
	Status       Status
	Message      string
	Reason       string
	DevicePath   string
	ErrorCode    int
	DurationSecs float64
	// OperationID uniquely identifies this invocation for audit trails.
	OperationID string
}

// Validate checks the PurgeResult invariants from spec.md §3. It is used
// by tests and may be called defensively before a result crosses a
// language boundary.
func (r PurgeResult) Validate() error {
	if r.Executed && r.Status == StatusDryRun {
		return fmt.Errorf("model: executed=true is inconsistent with status=dry_run")
	}

	if !r.Supported && r.Executed {
		return fmt.Errorf("model: supported=false but executed=true")
	}

	if (r.Status == StatusSuccess) != (r.Success && r.Executed) {
		return fmt.Errorf("model: status=success must hold iff success && executed")
	}

	if (r.Status == StatusDryRun) != (r.Success && !r.Executed) {
		return fmt.Errorf("model: status=dry_run must hold iff success && !executed")
	}

	return nil
}
