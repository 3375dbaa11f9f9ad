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
	"math/bits"

	"github.com/grailbio/mpileup/pileup"
)

// ThresholdKey is a (base-quality cutoff, mapping-quality cutoff) pair.  A
// call passes the key when its phred score is strictly below Phred AND its
// MAPQ is strictly below Mapq.
type ThresholdKey struct {
	Phred int
	Mapq  int
}

func (k ThresholdKey) String() string {
	return fmt.Sprintf("%d_%d", k.Phred, k.Mapq)
}

func (k ThresholdKey) passes(p QualityPair) bool {
	return p.Phred < k.Phred && p.Mapq < k.Mapq
}

// The threshold grid.  Order matters: it is the order of Aggregate's output.
var (
	PhredCutoffs = [...]int{30, 20, 25, 15}
	MapqCutoffs  = [...]int{0, 1, 5, 10}
)

// DefaultThresholdKeys returns the full PhredCutoffs x MapqCutoffs grid,
// phred-major.
func DefaultThresholdKeys() []ThresholdKey {
	keys := make([]ThresholdKey, 0, len(PhredCutoffs)*len(MapqCutoffs))
	for _, phred := range PhredCutoffs {
		for _, mapq := range MapqCutoffs {
			keys = append(keys, ThresholdKey{Phred: phred, Mapq: mapq})
		}
	}
	return keys
}

// ThresholdCounts holds, for one threshold key, the number of passing calls
// for each of A/C/G/T.  N calls and indels are never counted.
type ThresholdCounts [pileup.NBase]uint32

// Aggregator computes ThresholdCounts for a fixed list of keys.  It is
// immutable after construction.
type Aggregator struct {
	keys  []ThresholdKey
	table *thresholdMaskTable
}

// NewAggregator returns an Aggregator for keys.  At most 32 keys are
// supported.
func NewAggregator(keys []ThresholdKey) (*Aggregator, error) {
	table, err := newThresholdMaskTable(keys)
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		keys:  append([]ThresholdKey(nil), keys...),
		table: table,
	}, nil
}

// Keys returns the keys a was built with, in output order.
func (a *Aggregator) Keys() []ThresholdKey {
	return a.keys
}

// Aggregate fills dst (resized to len(a.Keys())) with the per-key counts for
// tally, and returns it.  Every key is computed; dst[k] corresponds to
// a.Keys()[k].
func (a *Aggregator) Aggregate(tally *AlleleTally, dst []ThresholdCounts) []ThresholdCounts {
	nKey := len(a.keys)
	if cap(dst) < nKey {
		dst = make([]ThresholdCounts, nKey)
	}
	dst = dst[:nKey]
	for k := range dst {
		dst[k] = ThresholdCounts{}
	}
	for allele := pileup.BaseA; allele <= pileup.BaseT; allele++ {
		for _, p := range tally[allele] {
			var mask uint32
			if p.Phred >= 0 && p.Phred < nQual && p.Mapq >= 0 && p.Mapq < nQual {
				mask = a.table.lookup2(p.Phred, p.Mapq)
			} else {
				// Only reachable for hand-built tallies.
				for k, key := range a.keys {
					if key.passes(p) {
						mask |= 1 << uint(k)
					}
				}
			}
			for mask != 0 {
				k := bits.TrailingZeros32(mask)
				dst[k][allele]++
				mask &= mask - 1
			}
		}
	}
	return dst
}
