// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package cryptoerase_test

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreclear/sanitize/cryptoerase"
	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/passthrough"
)

type fakeNVMe struct {
	sanitizeCalled bool
}

func (f *fakeNVMe) ExecNVMeAdmin(cmd passthrough.NVMeAdminCommand, dir passthrough.Direction, buf []byte, timeoutSec int) error {
	if cmd.Opcode == passthrough.NVMeAdminSanitize {
		f.sanitizeCalled = true
	}

	if cmd.Opcode == passthrough.NVMeAdminGetLogPage {
		binary.LittleEndian.PutUint16(buf[0:2], 65535)
		binary.LittleEndian.PutUint16(buf[2:4], 0)
	}

	return nil
}

func TestDispatchNVMeUnsupported(t *testing.T) {
	_, err := cryptoerase.DispatchNVMe(context.Background(), &fakeNVMe{}, model.NVMeCapabilities{CryptoSupported: false}, nil, nil)
	assert.ErrorIs(t, err, model.ErrUnsupported)
}

func TestDispatchNVMeSuccess(t *testing.T) {
	fn := &fakeNVMe{}

	outcome, err := cryptoerase.DispatchNVMe(context.Background(), fn, model.NVMeCapabilities{CryptoSupported: true}, nil, nil)
	require.NoError(t, err)
	assert.True(t, fn.sanitizeCalled)
	assert.Equal(t, model.MethodNVMeSanitizeCrypto, outcome.Method)
}

type fakeATA struct {
	calls []uint8
}

func (f *fakeATA) ExecATA(regs passthrough.ATARegisters, dir passthrough.Direction, buf []byte, timeoutSec int) error {
	f.calls = append(f.calls, regs.Command)

	// No TCG discovery response: buf stays zeroed, so Discovery0 finds
	// length==0 and reports no OPAL 2.0 support, exercising the ATA
	// Secure Erase fallback path.
	return nil
}

func TestDispatchATAFallsBackToSecureErase(t *testing.T) {
	fa := &fakeATA{}

	outcome, err := cryptoerase.DispatchATA(fa, model.SEDIndicators{HWEncryptionDetected: true, MatchedHint: "OPAL"}, model.ATACapabilities{Supported: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.MethodATASecureErase, outcome.Method)
	assert.Contains(t, outcome.Reason, "OPAL")
}
