// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package fsid_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreclear/sanitize/fsid"
)

func TestMagicMatches(t *testing.T) {
	m := fsid.Magic{Offset: 4, Value: []byte("XFSB")}
	assert.True(t, m.Matches([]byte("\x00\x00\x00\x00XFSB")))
	assert.False(t, m.Matches([]byte("\x00\x00\x00\x00XFSC")))
	assert.False(t, m.Matches([]byte("short")))
}

func TestChainIdentifyXFS(t *testing.T) {
	buf := make([]byte, 512)
	copy(buf, "XFSB")

	res, err := fsid.DefaultChain().Identify(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "xfs", res.Name)
}

func TestChainIdentifyExt(t *testing.T) {
	buf := make([]byte, 4096)
	buf[0x400+0x38] = 0x53
	buf[0x400+0x39] = 0xef
	copy(buf[0x400+0x78:], "rootfs")

	res, err := fsid.DefaultChain().Identify(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "ext", res.Name)
	assert.Equal(t, "rootfs", res.Label)
}

func TestChainIdentifyLUKS2(t *testing.T) {
	buf := make([]byte, 4096)
	copy(buf, "LUKS\xba\xbe")
	copy(buf[0x18:], "system-disk")

	res, err := fsid.DefaultChain().Identify(bytes.NewReader(buf))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "luks2", res.Name)
	assert.Equal(t, "system-disk", res.Label)
}

func TestChainIdentifyNoMatch(t *testing.T) {
	buf := make([]byte, 4096)

	res, err := fsid.DefaultChain().Identify(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestMaxMagicSize(t *testing.T) {
	assert.Greater(t, fsid.DefaultChain().MaxMagicSize(), 0)
}
