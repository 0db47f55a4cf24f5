// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package overwrite implements the Clear-tier and Destroy-tier
// pattern-overwrite pipeline (C4): aligned direct-I/O writes of a
// pattern sequence across a byte range, with throttled progress
// reporting.
package overwrite

import "github.com/coreclear/sanitize/model"

// gutmannFixed is the 29 fixed-byte Gutmann passes, in order.
var gutmannFixed = []uint8{
	0x55, 0xAA, 0x92, 0x49, 0x24, 0x00, 0x11, 0x22, 0x33, 0x44,
	0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE,
	0xFF, 0x92, 0x49, 0x24, 0x6D, 0xB6, 0xDB, 0xFF, 0x00,
}

// gutmannRandomPasses is the number of CSPRNG-fill passes appended after
// the fixed pattern list to reach the full 35-pass sequence.
var gutmannRandomPasses = 35 - len(gutmannFixed)

// GutmannSequence returns the full 35-pass Gutmann pattern sequence: the
// 29 fixed-byte passes in order, then 6 random-fill passes.
func GutmannSequence() []model.Pattern {
	seq := make([]model.Pattern, 0, 35)

	for _, b := range gutmannFixed {
		seq = append(seq, model.Pattern{Byte: b})
	}

	for i := 0; i < gutmannRandomPasses; i++ {
		seq = append(seq, model.Pattern{Randomize: true})
	}

	return seq
}

// ClearZeroSequence is the single all-zero pass Clear-tier method.
func ClearZeroSequence() []model.Pattern {
	return []model.Pattern{{Byte: 0x00}}
}

// ClearRandomSequence is the single CSPRNG-fill pass Clear-tier method.
func ClearRandomSequence() []model.Pattern {
	return []model.Pattern{{Randomize: true}}
}

// DoDSequence is the DoD 5220.22-M three-pass sequence: 0x00, 0xFF, then
// random, matching the pattern-cycling rule the original C++
// multiPassOverwrite used for its non-Gutmann path.
func DoDSequence() []model.Pattern {
	return []model.Pattern{
		{Byte: 0x00},
		{Byte: 0xFF},
		{Randomize: true},
	}
}

// SequenceForMethod resolves a model.Method to its pattern sequence. It
// returns nil for methods that aren't overwrite-based (ATA/NVMe/crypto
// erase drivers don't go through this pipeline at all).
func SequenceForMethod(m model.Method) []model.Pattern {
	switch m {
	case model.MethodClearZero:
		return ClearZeroSequence()
	case model.MethodClearRandom:
		return ClearRandomSequence()
	case model.MethodDoD:
		return DoDSequence()
	case model.MethodGutmann:
		return GutmannSequence()
	default:
		return nil
	}
}
