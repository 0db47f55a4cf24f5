// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package nvme_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/nvme"
	"github.com/coreclear/sanitize/passthrough"
)

type fakeNVMeTransport struct {
	pollResponses []Progress
	pollIndex     int
	sanitizeCDW10 uint32
}

type Progress struct {
	progress uint16
	status   uint16
}

func (f *fakeNVMeTransport) ExecNVMeAdmin(cmd passthrough.NVMeAdminCommand, dir passthrough.Direction, buf []byte, timeoutSec int) error {
	switch cmd.Opcode {
	case passthrough.NVMeAdminSanitize:
		f.sanitizeCDW10 = cmd.CDW10
	case passthrough.NVMeAdminGetLogPage:
		p := f.pollResponses[f.pollIndex]
		if f.pollIndex < len(f.pollResponses)-1 {
			f.pollIndex++
		}

		binary.LittleEndian.PutUint16(buf[0:2], p.progress)
		binary.LittleEndian.PutUint16(buf[2:4], p.status)
	}

	return nil
}

func TestSanitizeCryptoErase(t *testing.T) {
	ft := &fakeNVMeTransport{pollResponses: []Progress{{progress: 32767, status: 1}, {progress: 65535, status: 0}}}
	d := nvme.New(ft, nil)

	var samples []model.ProgressSample

	err := d.Sanitize(context.Background(), nvme.ActionCryptoErase, func(s model.ProgressSample) {
		samples = append(samples, s)
	})

	require.NoError(t, err)
	assert.Equal(t, passthrough.NVMeSanitizeActionCryptoErase, ft.sanitizeCDW10)
	require.NotEmpty(t, samples)
	assert.Equal(t, 100.0, samples[len(samples)-1].Percent)
}

func TestProgressPercent(t *testing.T) {
	p := nvme.Progress{SanitizeProgress: 32767}
	assert.InDelta(t, 49.99, p.Percent(), 0.1)
}

// Completion is judged solely by the low three bits reading 0, matching
// spec.md §4.6 and the original nvmeSanitize.cpp poll loop verbatim.
// The "completed successfully" (2) and "failed" (3) codes do not, on
// their own, signal completion.
func TestProgressComplete(t *testing.T) {
	assert.False(t, nvme.Progress{Status: 1}.Complete())
	assert.False(t, nvme.Progress{Status: 2}.Complete())
	assert.False(t, nvme.Progress{Status: 3}.Complete())
	assert.True(t, nvme.Progress{Status: 0}.Complete())
	assert.True(t, nvme.Progress{Status: 8}.Complete(), "higher bits are ignored by the 0x07 mask")
}

func TestProgressSucceededMatchesComplete(t *testing.T) {
	assert.Equal(t, nvme.Progress{Status: 0}.Complete(), nvme.Progress{Status: 0}.Succeeded())
	assert.Equal(t, nvme.Progress{Status: 1}.Complete(), nvme.Progress{Status: 1}.Succeeded())
}

func TestSanitizeContextCancellation(t *testing.T) {
	ft := &fakeNVMeTransport{pollResponses: []Progress{{progress: 0, status: 1}}}
	d := nvme.New(ft, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Sanitize(ctx, nvme.ActionBlockErase, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
