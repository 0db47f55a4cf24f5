// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package overwrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coreclear/sanitize/model"
	"github.com/coreclear/sanitize/overwrite"
)

func TestGutmannSequenceShape(t *testing.T) {
	seq := overwrite.GutmannSequence()
	assert.Len(t, seq, 35)

	randomCount := 0
	for _, p := range seq {
		if p.Randomize {
			randomCount++
		}
	}

	assert.Equal(t, 6, randomCount, "gutmann sequence must have 6 trailing random passes")

	assert.False(t, seq[0].Randomize)
	assert.Equal(t, uint8(0x55), seq[0].Byte)
	assert.False(t, seq[28].Randomize)
	assert.Equal(t, uint8(0x00), seq[28].Byte)
	assert.True(t, seq[29].Randomize)
	assert.True(t, seq[34].Randomize)
}

func TestDoDSequence(t *testing.T) {
	seq := overwrite.DoDSequence()
	assert.Equal(t, []model.Pattern{{Byte: 0x00}, {Byte: 0xFF}, {Randomize: true}}, seq)
}

func TestSequenceForMethod(t *testing.T) {
	assert.Equal(t, overwrite.ClearZeroSequence(), overwrite.SequenceForMethod(model.MethodClearZero))
	assert.Equal(t, overwrite.ClearRandomSequence(), overwrite.SequenceForMethod(model.MethodClearRandom))
	assert.Equal(t, overwrite.DoDSequence(), overwrite.SequenceForMethod(model.MethodDoD))
	assert.Equal(t, overwrite.GutmannSequence(), overwrite.SequenceForMethod(model.MethodGutmann))
	assert.Nil(t, overwrite.SequenceForMethod(model.MethodATASecureErase))
}
