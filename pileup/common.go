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
package pileup

// Common pileup components.

// Allele identifies one of the columns a pileup call can be tallied under.
type Allele byte

// The A/C/G/T values match their natural 2-bit encoding, so code that only
// cares about the four regular bases can index [NBase]-sized arrays directly.
const (
	// BaseA represents an A base.
	BaseA Allele = iota
	// BaseC represents a C base.
	BaseC
	// BaseG represents a G base.
	BaseG
	// BaseT represents a T base.
	BaseT
	// BaseN represents an explicitly uncalled base.
	BaseN
	// Other represents an indel event.  It carries no base quality.
	Other
)

const (
	// NBase is the number of regular base types.
	NBase = 4
	// NAllele counts N and Other as well as the regular base types.
	NAllele = 6
)

// alleleNames is indexed by Allele.
var alleleNames = [NAllele]string{"A", "C", "G", "T", "N", "Other"}

// String returns the column name used for a in output headers.
func (a Allele) String() string {
	if int(a) < NAllele {
		return alleleNames[a]
	}
	return "?"
}

// ASCIIToAlleleTable maps an (upper- or lower-case) ASCII base to its Allele.
// Every byte that is not one of ACGTNacgtn maps to Other, which callers use as
// the "not a base" marker.
var ASCIIToAlleleTable = func() (t [256]Allele) {
	for i := range t {
		t[i] = Other
	}
	for i, c := range []byte("ACGTN") {
		t[c] = Allele(i)
		t[c+'a'-'A'] = Allele(i)
	}
	return
}()

// RefAllele returns the Allele that reference-matching calls ('.' and ',')
// are tallied under when the reference symbol is refChar.  Ambiguity codes
// (R, Y, ..., and '=') have no single base, so they collapse to BaseN.
func RefAllele(refChar byte) Allele {
	if a := ASCIIToAlleleTable[refChar]; a != Other {
		return a
	}
	return BaseN
}
