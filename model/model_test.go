// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreclear/sanitize/model"
)

func TestIsPurgeSupported(t *testing.T) {
	assert.False(t, model.IsPurgeSupported(model.USB))
	assert.False(t, model.IsPurgeSupported(model.Unknown))
	assert.True(t, model.IsPurgeSupported(model.SATAHDD))
	assert.True(t, model.IsPurgeSupported(model.SATASSD))
	assert.True(t, model.IsPurgeSupported(model.NVMe))
	assert.True(t, model.IsPurgeSupported(model.SCSI))
}

func TestDeviceTypeString(t *testing.T) {
	assert.Equal(t, "USB", model.USB.String())
	assert.Equal(t, "SATA_HDD", model.SATAHDD.String())
	assert.Equal(t, "SATA_SSD", model.SATASSD.String())
	assert.Equal(t, "NVMe", model.NVMe.String())
	assert.Equal(t, "SCSI", model.SCSI.String())
	assert.Equal(t, "Unknown", model.Unknown.String())
}

func TestMethodString(t *testing.T) {
	assert.Equal(t, "GUTMANN", model.MethodGutmann.String())
	assert.Equal(t, "DESTROY", model.MethodDestroy.String())
	assert.Equal(t, "NONE", model.MethodNone.String())
}

func TestPurgeResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  model.PurgeResult
		wantErr bool
	}{
		{
			name: "valid success",
			result: model.PurgeResult{
				Success: true, Supported: true, Executed: true, Status: model.StatusSuccess,
			},
		},
		{
			name: "valid dry run",
			result: model.PurgeResult{
				Success: true, Supported: true, Executed: false, Status: model.StatusDryRun,
			},
		},
		{
			name: "executed with dry_run status is invalid",
			result: model.PurgeResult{
				Success: true, Supported: true, Executed: true, Status: model.StatusDryRun,
			},
			wantErr: true,
		},
		{
			name: "executed without supported is invalid",
			result: model.PurgeResult{
				Success: false, Supported: false, Executed: true, Status: model.StatusError,
			},
			wantErr: true,
		},
		{
			name: "success status without success+executed is invalid",
			result: model.PurgeResult{
				Success: false, Supported: true, Executed: true, Status: model.StatusSuccess,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
