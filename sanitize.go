// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sanitize implements the Method Dispatcher & Result Shaper
// (C8): the public entry points that open a device, run the Device
// Probe and Capability Query, select and run a sanitization method, and
// shape the outcome into a PurgeResult.
package sanitize

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coreclear/sanitize/ata"
	"github.com/coreclear/sanitize/capability"
	"github.com/coreclear/sanitize/cryptoerase"
	"github.com/coreclear/sanitize/device"
	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/nvme"
	"github.com/coreclear/sanitize/overwrite"
	"github.com/coreclear/sanitize/passthrough"
	"github.com/coreclear/sanitize/sysdisk"
	"github.com/coreclear/sanitize/volume"
)

// Type aliases re-export the shared data model at the package root so
// callers depend on a single import for the whole public surface,
// matching how the teacher's blockdevice package re-exports its
// sub-package types.
type (
	DeviceType       = model.DeviceType
	Method           = model.Method
	Status           = model.Status
	ATACapabilities  = model.ATACapabilities
	NVMeCapabilities = model.NVMeCapabilities
	SEDIndicators    = model.SEDIndicators
	Capabilities     = model.Capabilities
	Pattern          = model.Pattern
	ProgressSample   = model.ProgressSample
	ProgressFunc     = model.ProgressFunc
	PurgeResult      = model.PurgeResult
)

// Re-exported sentinel errors.
var (
	ErrUnsupported  = model.ErrUnsupported
	ErrBlocked      = model.ErrBlocked
	ErrTimeout      = model.ErrTimeout
	ErrCancelled    = model.ErrCancelled
	ErrNotConfirmed = model.ErrNotConfirmed
	ErrOpenFailed   = model.ErrOpenFailed
)

// DeviceInfo is what the Device Probe (C1) plus the Capability Query
// (C2) can determine about a target before any sanitization method runs.
type DeviceInfo struct {
	Path      string
	Type      model.DeviceType
	SizeBytes uint64
	// SizeGB is SizeBytes as binary gigabytes (÷1024^3), matching
	// spec.md §6's `device_info` shape and the original wipeAddon.cpp's
	// `size / 1024.0 / 1024.0 / 1024.0`.
	SizeGB       float64
	SectorSize   uint
	Model        string
	Serial       string
	WWID         string
	Capabilities model.Capabilities
	MountReport  volume.Report
}

// Probe runs the Device Probe and Capability Query against path without
// requesting write access, so it is safe to call against a mounted,
// in-use device.
func Probe(path string, opts ...device.Option) (DeviceInfo, error) {
	dev, err := device.Open(path, opts...)
	if err != nil {
		return DeviceInfo{}, err
	}
	defer dev.Close() //nolint:errcheck

	info := DeviceInfo{
		Path:       path,
		SizeBytes:  dev.Length(),
		SizeGB:     float64(dev.Length()) / (1024 * 1024 * 1024),
		SectorSize: dev.SectorSize(),
	}

	sd := sysdisk.Get(sysdisk.NameFromPath(path))
	info.Type = sd.Classify()
	info.Model = sd.Model
	info.Serial = sd.Serial
	info.WWID = sd.WWID

	t := transportFor(dev)

	switch info.Type {
	case model.NVMe:
		if caps, err := capability.QueryNVMe(nvmeTransportFor(dev)); err == nil {
			info.Capabilities.NVMe = caps
		} else {
			info.Capabilities.NVMe = capability.QueryNVMeOverestimated()
		}
	case model.SATAHDD, model.SATASSD, model.SCSI:
		if ataCaps, modelStr, err := capability.QueryATA(t); err == nil {
			info.Capabilities.ATA = ataCaps

			if info.Model == "" {
				info.Model = modelStr
			}

			info.Capabilities.SED = capability.DetectHWEncryption(info.Model)
		}
	}

	if report, err := volume.Prepare(path, dev.Logger()); err == nil {
		info.MountReport = report

		if report.Identified != nil && report.Identified.Name == "luks2" {
			info.Capabilities.SED.SoftwareEncryptionDetected = true
		}
	}

	return info, nil
}

func transportFor(dev *device.Device) passthrough.ATATransport {
	return passthrough.New(dev.File().Fd())
}

func nvmeTransportFor(dev *device.Device) passthrough.NVMeTransport {
	return passthrough.NewNVMeDirect(dev.File().Fd())
}

// newResult builds the common PurgeResult skeleton every entry point
// shapes its outcome into.
func newResult(path string, devType model.DeviceType, method model.Method) model.PurgeResult {
	return model.PurgeResult{
		DeviceType: devType,
		Method:     method,
		DevicePath: path,
		OperationID: uuid.New().String(),
	}
}

func finish(r model.PurgeResult, start time.Time) model.PurgeResult {
	r.DurationSecs = time.Since(start).Seconds()

	return r
}

// Wipe runs a Clear-tier software overwrite (spec.md §4.1's Clear tier)
// against the whole device using method, which must be one of
// MethodClearZero, MethodClearRandom, MethodDoD, or MethodGutmann.
func Wipe(ctx context.Context, path string, method model.Method, progress model.ProgressFunc, opts ...device.Option) (model.PurgeResult, error) {
	start := time.Now()

	seq := overwrite.SequenceForMethod(method)
	if seq == nil {
		return model.PurgeResult{}, fmt.Errorf("sanitize: %w: %s is not an overwrite method", model.ErrUnsupported, method)
	}

	dev, err := device.OpenForWrite(path, opts...)
	if err != nil {
		return model.PurgeResult{}, err
	}
	defer dev.Close() //nolint:errcheck

	devType := sysdisk.Get(sysdisk.NameFromPath(path)).Classify()

	result := newResult(path, devType, method)
	result.Supported = true

	pipeline := overwrite.New(dev, overwrite.Options{Progress: progress, Logger: dev.Logger(), TrimAfterClear: method == model.MethodClearZero})

	if err := pipeline.Run(ctx, seq, 0, dev.Length()); err != nil {
		result.Executed = true
		result.Success = false
		result.Status = model.StatusError
		result.Message = err.Error()

		return finish(result, start), err
	}

	result.Executed = true
	result.Success = true
	result.Status = model.StatusSuccess
	result.Message = fmt.Sprintf("%s completed over %d bytes", method, dev.Length())

	return finish(result, start), nil
}

// ATASecureErase runs the ATA Secure Erase Driver (C5) against path. When
// dryRun is true, only the Device Probe (C1) and Capability Query (C2)
// run: the device is opened read-only and no SECURITY command is ever
// sent, per spec.md §6's dry-run mode.
func ATASecureErase(path string, enhanced, dryRun bool, opts ...device.Option) (model.PurgeResult, error) {
	start := time.Now()

	method := model.MethodATASecureErase
	if enhanced {
		method = model.MethodATASecureEraseEnhanced
	}

	devType := sysdisk.Get(sysdisk.NameFromPath(path)).Classify()
	result := newResult(path, devType, method)

	if !model.IsPurgeSupported(devType) {
		result.Status = model.StatusUnsupported
		result.Message = fmt.Sprintf("ata secure erase: %s devices never receive hardware purge commands", devType)

		return finish(result, start), fmt.Errorf("sanitize: %w: %s is not eligible for ATA/NVMe purge", model.ErrUnsupported, devType)
	}

	var dev *device.Device

	var err error

	if dryRun {
		dev, err = device.Open(path, opts...)
	} else {
		dev, err = device.OpenForWrite(path, opts...)
	}

	if err != nil {
		return model.PurgeResult{}, err
	}
	defer dev.Close() //nolint:errcheck

	t := transportFor(dev)

	caps, _, err := capability.QueryATA(t)
	if err != nil {
		result.Status = model.StatusError
		result.Message = err.Error()

		return finish(result, start), err
	}

	result.Supported = caps.Supported

	if dryRun {
		result.Success = true
		result.Status = model.StatusDryRun
		result.Message = "dry run: ATA security capability probed, no command issued"

		return finish(result, start), nil
	}

	driver := ata.New(t, dev.Logger())

	if err := driver.Erase(caps, enhanced); err != nil {
		result.Executed = driver.State() != ata.StateBlocked && driver.State() != ata.StateFailed
		result.Status = statusForError(err)
		result.Message = err.Error()

		return finish(result, start), err
	}

	result.Executed = true
	result.Success = true
	result.Status = model.StatusSuccess
	result.Message = "ATA Secure Erase completed"

	return finish(result, start), nil
}

// NVMeSanitize runs the NVMe Sanitize Driver (C6) against path. When
// dryRun is true, only the Device Probe (C1) and Capability Query (C2)
// run: the device is opened read-only and no SANITIZE admin command is
// ever sent, per spec.md §6's dry-run mode.
func NVMeSanitize(ctx context.Context, path string, action nvme.Action, dryRun bool, progress model.ProgressFunc, opts ...device.Option) (model.PurgeResult, error) {
	start := time.Now()

	devType := sysdisk.Get(sysdisk.NameFromPath(path)).Classify()
	result := newResult(path, devType, methodForNVMeAction(action))

	if !model.IsPurgeSupported(devType) {
		result.Status = model.StatusUnsupported
		result.Message = fmt.Sprintf("nvme sanitize: %s devices never receive hardware purge commands", devType)

		return finish(result, start), fmt.Errorf("sanitize: %w: %s is not eligible for ATA/NVMe purge", model.ErrUnsupported, devType)
	}

	var dev *device.Device

	var err error

	if dryRun {
		dev, err = device.Open(path, opts...)
	} else {
		dev, err = device.OpenForWrite(path, opts...)
	}

	if err != nil {
		return model.PurgeResult{}, err
	}
	defer dev.Close() //nolint:errcheck

	caps, err := capability.QueryNVMe(nvmeTransportFor(dev))
	if err != nil {
		result.Status = model.StatusError
		result.Message = err.Error()

		return finish(result, start), err
	}

	result.Supported = nvmeActionSupported(caps, action)

	if dryRun {
		result.Success = true
		result.Status = model.StatusDryRun
		result.Message = "dry run: NVMe SANICAP probed, no command issued"

		return finish(result, start), nil
	}

	if !result.Supported {
		result.Status = model.StatusUnsupported
		result.Message = "nvme sanitize: controller does not report SANICAP support for the requested action"

		return finish(result, start), fmt.Errorf("sanitize: %w: action not reported as supported by SANICAP", model.ErrUnsupported)
	}

	driver := nvme.New(nvmeTransportFor(dev), dev.Logger())

	if err := driver.Sanitize(ctx, action, progress); err != nil {
		result.Executed = true
		result.Status = statusForError(err)
		result.Message = err.Error()

		return finish(result, start), err
	}

	result.Executed = true
	result.Success = true
	result.Status = model.StatusSuccess
	result.Message = "NVMe sanitize completed"

	return finish(result, start), nil
}

func nvmeActionSupported(caps model.NVMeCapabilities, action nvme.Action) bool {
	switch action {
	case nvme.ActionCryptoErase:
		return caps.CryptoSupported
	case nvme.ActionOverwrite:
		return caps.OverwriteSupported
	default:
		return caps.BlockSupported
	}
}

func methodForNVMeAction(a nvme.Action) model.Method {
	switch a {
	case nvme.ActionCryptoErase:
		return model.MethodNVMeSanitizeCrypto
	case nvme.ActionOverwrite:
		return model.MethodNVMeSanitizeOverwrite
	default:
		return model.MethodNVMeSanitizeBlock
	}
}

// CryptoErase runs the Crypto-Erase Dispatcher (C7) against path. When
// dryRun is true, only the Device Probe (C1) and Capability Query (C2)
// run: the device is opened read-only and no sanitize/erase command is
// ever dispatched, per spec.md §6's dry-run mode.
func CryptoErase(ctx context.Context, path string, dryRun bool, progress model.ProgressFunc, opts ...device.Option) (model.PurgeResult, error) {
	start := time.Now()

	devType := sysdisk.Get(sysdisk.NameFromPath(path)).Classify()
	result := newResult(path, devType, model.MethodCryptoErase)

	if !model.IsPurgeSupported(devType) {
		result.Status = model.StatusUnsupported
		result.Message = fmt.Sprintf("crypto erase: %s devices never receive hardware purge commands", devType)

		return finish(result, start), fmt.Errorf("sanitize: %w: %s is not eligible for ATA/NVMe purge", model.ErrUnsupported, devType)
	}

	var dev *device.Device

	var err error

	if dryRun {
		dev, err = device.Open(path, opts...)
	} else {
		dev, err = device.OpenForWrite(path, opts...)
	}

	if err != nil {
		return model.PurgeResult{}, err
	}
	defer dev.Close() //nolint:errcheck

	if devType == model.NVMe {
		caps, qerr := capability.QueryNVMe(nvmeTransportFor(dev))
		if qerr != nil {
			caps = capability.QueryNVMeOverestimated()
		}

		result.Supported = caps.CryptoSupported

		if dryRun {
			result.Success = true
			result.Status = model.StatusDryRun
			result.Message = "dry run: NVMe SANICAP probed, no command issued"

			return finish(result, start), nil
		}

		outcome, dispErr := cryptoerase.DispatchNVMe(ctx, nvmeTransportFor(dev), caps, dev.Logger(), progress)

		return finishCryptoErase(result, start, outcome, dispErr)
	}

	t := transportFor(dev)

	caps, modelStr, qerr := capability.QueryATA(t)
	if qerr != nil {
		result.Status = model.StatusError
		result.Message = qerr.Error()

		return finish(result, start), qerr
	}

	result.Supported = caps.Supported

	if dryRun {
		result.Success = true
		result.Status = model.StatusDryRun
		result.Message = "dry run: ATA/SED capability probed, no command issued"

		return finish(result, start), nil
	}

	sed := capability.DetectHWEncryption(modelStr)

	outcome, dispErr := cryptoerase.DispatchATA(t, sed, caps, dev.Logger())

	return finishCryptoErase(result, start, outcome, dispErr)
}

func finishCryptoErase(result model.PurgeResult, start time.Time, outcome cryptoerase.Outcome, dispErr error) (model.PurgeResult, error) {
	if dispErr != nil {
		result.Executed = false
		result.Status = statusForError(dispErr)
		result.Message = dispErr.Error()

		return finish(result, start), dispErr
	}

	result.Executed = true
	result.Success = true
	result.Status = model.StatusSuccess
	result.Method = outcome.Method
	result.Reason = outcome.Reason
	result.Message = "crypto erase completed"

	return finish(result, start), nil
}

func statusForError(err error) model.Status {
	switch {
	case err == nil:
		return model.StatusSuccess
	case errors.Is(err, model.ErrUnsupported):
		return model.StatusUnsupported
	case errors.Is(err, model.ErrBlocked):
		return model.StatusBlocked
	case errors.Is(err, model.ErrTimeout):
		return model.StatusTimeout
	default:
		return model.StatusError
	}
}
