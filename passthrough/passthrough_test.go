// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package passthrough_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreclear/sanitize/passthrough"
)

func TestDirectionConstants(t *testing.T) {
	// Sanity: the zero value must be DirNone so a zeroed ATARegisters/
	// command struct never accidentally requests a data phase.
	var d passthrough.Direction
	assert.Equal(t, passthrough.DirNone, d)
}

func TestATACommandOpcodes(t *testing.T) {
	assert.Equal(t, uint8(0xEC), passthrough.ATAIdentifyDevice)
	assert.Equal(t, uint8(0xF1), passthrough.ATASecuritySetPassword)
	assert.Equal(t, uint8(0xF3), passthrough.ATASecurityErasePrepare)
	assert.Equal(t, uint8(0xF4), passthrough.ATASecurityEraseUnit)
}

func TestNVMeSanitizeActionCodes(t *testing.T) {
	assert.Equal(t, uint32(0), passthrough.NVMeSanitizeActionExit)
	assert.Equal(t, uint32(1), passthrough.NVMeSanitizeActionBlockErase)
	assert.Equal(t, uint32(2), passthrough.NVMeSanitizeActionOverwrite)
	assert.Equal(t, uint32(3), passthrough.NVMeSanitizeActionCryptoErase)
}

func TestNVMeAdminOpcodes(t *testing.T) {
	assert.Equal(t, uint8(0x84), passthrough.NVMeAdminSanitize)
	assert.Equal(t, uint8(0x02), passthrough.NVMeAdminGetLogPage)
	assert.Equal(t, uint32(0x81), passthrough.NVMeSanitizeStatusLogID)
}
