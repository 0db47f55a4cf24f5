// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package nvme implements the NVMe Sanitize Driver (C6): issuing the
// Sanitize admin command and polling Get Log Page (Sanitize Status)
// until completion, grounded on the original nvmeSanitize implementation
// and the NVM Express base specification's Sanitize operation.
package nvme

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/passthrough"
)

// Action selects the NVMe Sanitize action.
type Action int

const (
	ActionBlockErase Action = iota
	ActionOverwrite
	ActionCryptoErase
)

func (a Action) cdw10() uint32 {
	switch a {
	case ActionBlockErase:
		return passthrough.NVMeSanitizeActionBlockErase
	case ActionOverwrite:
		return passthrough.NVMeSanitizeActionOverwrite
	case ActionCryptoErase:
		return passthrough.NVMeSanitizeActionCryptoErase
	default:
		return passthrough.NVMeSanitizeActionExit
	}
}

func (a Action) method() model.Method {
	switch a {
	case ActionBlockErase:
		return model.MethodNVMeSanitizeBlock
	case ActionOverwrite:
		return model.MethodNVMeSanitizeOverwrite
	case ActionCryptoErase:
		return model.MethodNVMeSanitizeCrypto
	default:
		return model.MethodNone
	}
}

// PollInterval is how often the driver checks sanitize status, per
// spec.md §4.6.
const PollInterval = 5 * time.Second

// MaxPolls bounds the polling loop to a 4-hour ceiling
// (2880 * 5s == 4h), after which the driver reports StatusTimeout
// instead of polling forever against a device that never finishes.
const MaxPolls = 2880

// sanitizeStatus bit layout, NVM Express base specification "Sanitize
// Status (Log Identifier 81h)".
const (
	sanitizeStatusMask   uint16 = 0x0007
	sanitizeStatusNever  uint16 = 0
	sanitizeStatusInProg uint16 = 1
	sanitizeStatusSucc   uint16 = 2
	sanitizeStatusFailed uint16 = 3
)

// Progress is the decoded Sanitize Status log page.
type Progress struct {
	// SanitizeProgress is 0-65535; 65535 (0xFFFF) is not itself special,
	// completion is determined from the status field, matching the
	// original implementation's own comment on this ambiguity.
	SanitizeProgress uint16
	Status           uint16
	GlobalDataErased bool
}

// Complete reports whether the operation has left the "in progress"
// state, per spec.md §4.6's literal completion condition
// (`sanitize_status & 0x07 == 0`) and the original nvmeSanitize.cpp poll
// loop, which exits only on `(statusField & 0x07) == 0` — not on the
// "completed successfully" (2) code. Some controllers report the
// success code once and then settle back to 0 on the next read, so
// checking for anything other than 0 misses that transition entirely.
func (p Progress) Complete() bool {
	return p.Status&sanitizeStatusMask == sanitizeStatusNever
}

// Succeeded reports whether a completed operation succeeded. The
// original tool never branches on the "failed" (3) code — any exit
// from "in progress" is logged as "Sanitize complete!" — so this driver
// treats every observed completion the same way.
func (p Progress) Succeeded() bool {
	return p.Complete()
}

// Percent converts SanitizeProgress to a 0-100 float, per spec.md §4.6:
// "progress = sanitize_progress / 65535 * 100".
func (p Progress) Percent() float64 {
	return float64(p.SanitizeProgress) / 65535.0 * 100.0
}

// Driver runs the Sanitize admin command and polls it to completion.
type Driver struct {
	t      passthrough.NVMeTransport
	logger *zap.Logger
}

// New constructs a Driver bound to an NVMe admin passthrough transport.
func New(t passthrough.NVMeTransport, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{t: t, logger: logger}
}

// Sanitize issues the Sanitize admin command with the given action and
// polls Get Log Page until the device reports completion, ctx is
// cancelled, or MaxPolls is exceeded.
func (d *Driver) Sanitize(ctx context.Context, action Action, progress model.ProgressFunc) error {
	cmd := passthrough.NVMeAdminCommand{
		Opcode: passthrough.NVMeAdminSanitize,
		NSID:   0xFFFFFFFF,
		CDW10:  action.cdw10(),
	}

	if err := d.t.ExecNVMeAdmin(cmd, passthrough.DirNone, nil, 10); err != nil {
		return fmt.Errorf("nvme: SANITIZE admin command: %w", err)
	}

	for i := 0; i < MaxPolls; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(PollInterval):
		}

		p, err := d.getSanitizeStatus()
		if err != nil {
			return fmt.Errorf("nvme: GET LOG PAGE sanitize status: %w", err)
		}

		if progress != nil {
			progress(model.ProgressSample{Percent: p.Percent(), PassIndex: 0, PassCount: 1})
		}

		if p.Complete() {
			d.logger.Info("NVMe sanitize completed", zap.Int("poll_count", i+1))

			return nil
		}
	}

	return fmt.Errorf("nvme: %w: sanitize did not complete within %d polls", model.ErrTimeout, MaxPolls)
}

const sanitizeLogPageSize = 512

func (d *Driver) getSanitizeStatus() (Progress, error) {
	buf := make([]byte, sanitizeLogPageSize)

	cmd := passthrough.NVMeAdminCommand{
		Opcode: passthrough.NVMeAdminGetLogPage,
		NSID:   0xFFFFFFFF,
		CDW10:  passthrough.NVMeSanitizeStatusLogID | (uint32(sanitizeLogPageSize/4-1) << 16),
	}

	if err := d.t.ExecNVMeAdmin(cmd, passthrough.DirFromDevice, buf, 10); err != nil {
		return Progress{}, err
	}

	return Progress{
		SanitizeProgress: binary.LittleEndian.Uint16(buf[0:2]),
		Status:           binary.LittleEndian.Uint16(buf[2:4]),
		GlobalDataErased: binary.LittleEndian.Uint32(buf[4:8])&0x1 != 0,
	}, nil
}
