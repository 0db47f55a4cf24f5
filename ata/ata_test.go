// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package ata_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreclear/sanitize/ata"
	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/passthrough"
)

type fakeTransport struct {
	calls         []uint8
	failOn        uint8
	lastData      []byte
	dataByCommand map[uint8][]byte
}

func (f *fakeTransport) ExecATA(regs passthrough.ATARegisters, dir passthrough.Direction, buf []byte, timeoutSec int) error {
	f.calls = append(f.calls, regs.Command)
	f.lastData = buf

	if f.dataByCommand == nil {
		f.dataByCommand = make(map[uint8][]byte)
	}
	f.dataByCommand[regs.Command] = buf

	if f.failOn != 0 && regs.Command == f.failOn {
		return errors.New("simulated device error")
	}

	return nil
}

func TestEraseFullSequence(t *testing.T) {
	ft := &fakeTransport{}
	d := ata.New(ft, nil)

	caps := model.ATACapabilities{Supported: true}

	require.NoError(t, d.Erase(caps, false))

	assert.Equal(t, []uint8{
		passthrough.ATASecuritySetPassword,
		passthrough.ATASecurityErasePrepare,
		passthrough.ATASecurityEraseUnit,
	}, ft.calls)

	assert.Equal(t, ata.StateDone, d.State())
}

func TestEraseRejectsUnsupported(t *testing.T) {
	d := ata.New(&fakeTransport{}, nil)

	err := d.Erase(model.ATACapabilities{Supported: false}, false)
	assert.ErrorIs(t, err, model.ErrUnsupported)
	assert.Equal(t, ata.StateFailed, d.State())
}

func TestEraseRejectsFrozen(t *testing.T) {
	ft := &fakeTransport{}
	d := ata.New(ft, nil)

	err := d.Erase(model.ATACapabilities{Supported: true, Frozen: true}, false)
	assert.ErrorIs(t, err, model.ErrBlocked)
	assert.Empty(t, ft.calls, "no commands should be sent to a frozen device")
	assert.Equal(t, ata.StateBlocked, d.State())
}

func TestEraseRejectsLocked(t *testing.T) {
	ft := &fakeTransport{}
	d := ata.New(ft, nil)

	err := d.Erase(model.ATACapabilities{Supported: true, Locked: true}, false)
	assert.ErrorIs(t, err, model.ErrBlocked)
	assert.Empty(t, ft.calls)
	assert.Equal(t, ata.StateBlocked, d.State())
}

func TestEraseEnhancedFallsBackWhenUnsupported(t *testing.T) {
	ft := &fakeTransport{}
	d := ata.New(ft, nil)

	caps := model.ATACapabilities{Supported: true, EnhancedSupported: false}

	require.NoError(t, d.Erase(caps, true))
	// Fallback to normal erase: password block's enhanced bit must be clear.
	assert.Equal(t, byte(0x00), ft.lastData[0])
}

func TestEraseEnhancedSetsBit(t *testing.T) {
	ft := &fakeTransport{}
	d := ata.New(ft, nil)

	caps := model.ATACapabilities{Supported: true, EnhancedSupported: true}

	require.NoError(t, d.Erase(caps, true))
	assert.Equal(t, byte(0x02), ft.lastData[0])
}

func TestEraseEnhancedNeverSetsBitOnSetPassword(t *testing.T) {
	ft := &fakeTransport{}
	d := ata.New(ft, nil)

	caps := model.ATACapabilities{Supported: true, EnhancedSupported: true}

	require.NoError(t, d.Erase(caps, true))

	setPasswordData := ft.dataByCommand[passthrough.ATASecuritySetPassword]
	require.NotNil(t, setPasswordData)
	assert.Equal(t, byte(0x00), setPasswordData[0], "SET PASSWORD must never carry the enhanced bit")

	eraseUnitData := ft.dataByCommand[passthrough.ATASecurityEraseUnit]
	require.NotNil(t, eraseUnitData)
	assert.Equal(t, byte(0x02), eraseUnitData[0], "ERASE UNIT must carry the enhanced bit")
}

func TestEraseFailsMidSequence(t *testing.T) {
	ft := &fakeTransport{failOn: passthrough.ATASecurityErasePrepare}
	d := ata.New(ft, nil)

	err := d.Erase(model.ATACapabilities{Supported: true}, false)
	assert.Error(t, err)
	assert.Equal(t, ata.StateFailed, d.State())
	assert.Equal(t, []uint8{passthrough.ATASecuritySetPassword, passthrough.ATASecurityErasePrepare}, ft.calls)
}
