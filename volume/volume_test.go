// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package volume_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreclear/sanitize/volume"
)

func TestPrepareNonexistentDevice(t *testing.T) {
	report, err := volume.Prepare("/dev/does-not-exist-0", nil)
	assert.NoError(t, err)
	assert.Nil(t, report.Identified)
}
