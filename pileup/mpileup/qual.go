// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package mpileup

import (
	"fmt"
)

// This file contains phred+33 decoding and the threshold lookup table built
// on top of it.

const (
	// qualOffset is the ASCII offset of both quality fields.
	qualOffset = 33
	// nQual bounds every decoded quality: '~' - qualOffset == nQual - 1.
	nQual = 94
	// maxThresholdKeys is the number of bits in a thresholdMaskTable entry.
	maxThresholdKeys = 32
)

// decodeQual returns the phred value encoded at quals[pos].  The caller
// guarantees pos < len(quals).
func decodeQual(field, quals string, pos int) (int, error) {
	c := quals[pos]
	if c < qualOffset || c >= qualOffset+nQual {
		return 0, &InvalidQualityError{Field: field, Char: c, Pos: pos}
	}
	return int(c - qualOffset), nil
}

// thresholdMaskTable[phred][mapq] has bit k set iff a call with those
// qualities passes the k-th threshold key, i.e. phred < key.Phred and
// mapq < key.Mapq.  This turns per-record aggregation into one lookup per
// call instead of one comparison pair per (call, key).
type thresholdMaskTable [nQual][nQual]uint32

func newThresholdMaskTable(keys []ThresholdKey) (t *thresholdMaskTable, err error) {
	if len(keys) > maxThresholdKeys {
		err = fmt.Errorf("newThresholdMaskTable: %d threshold keys requested, at most %d supported", len(keys), maxThresholdKeys)
		return
	}
	t = new(thresholdMaskTable)
	for k, key := range keys {
		bit := uint32(1) << uint(k)
		for phred := 0; phred < nQual && phred < key.Phred; phred++ {
			for mapq := 0; mapq < nQual && mapq < key.Mapq; mapq++ {
				t[phred][mapq] |= bit
			}
		}
	}
	return
}

func (t *thresholdMaskTable) lookup2(phred, mapq int) uint32 {
	return t[phred][mapq]
}
