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
	"github.com/grailbio/mpileup/pileup"
)

// QualityPair holds the decoded base quality and mapping quality of a single
// call.  Both values lie in [0, 93], except for indel entries, which carry
// the (-1, -1) sentinel.
type QualityPair struct {
	Phred int
	Mapq  int
}

// IndelPair is the sentinel QualityPair stored under pileup.Other.
var IndelPair = QualityPair{Phred: -1, Mapq: -1}

// AlleleTally holds, for every allele, the quality pairs of the calls
// supporting it, in base-call string order.
type AlleleTally [pileup.NAllele][]QualityPair

// Reset empties every allele's list, keeping the backing arrays.
func (t *AlleleTally) Reset() {
	for i := range t {
		t[i] = t[i][:0]
	}
}

// Count returns the number of entries tallied under a.
func (t *AlleleTally) Count(a pileup.Allele) int {
	return len(t[a])
}

// NCalls returns the number of base calls (A/C/G/T/N entries) in t.  Indel
// events are not included.
func (t *AlleleTally) NCalls() int {
	n := 0
	for a := pileup.BaseA; a <= pileup.BaseN; a++ {
		n += len(t[a])
	}
	return n
}

// DecodeOpts controls how strictly Decode treats the quality fields.
type DecodeOpts struct {
	// LenientQualities disables the end-of-scan check that both quality
	// strings were consumed exactly.  Running out of quality characters is an
	// error regardless.
	LenientQualities bool
}

// Decode decodes a single mpileup record's read-base column into a new
// AlleleTally.  See (*AlleleTally).Decode.
func Decode(baseCalls, baseQuals, mapQuals string, refBase byte, opts DecodeOpts) (AlleleTally, error) {
	var t AlleleTally
	err := t.Decode(baseCalls, baseQuals, mapQuals, refBase, opts)
	return t, err
}

// Decode resets t and fills it from a single mpileup record.  baseCalls is
// the read-base column, baseQuals and mapQuals the phred+33 base-quality and
// mapping-quality columns, and refBase the reference column.
//
// Base calls are case-folded, so forward- and reverse-strand calls are
// tallied together.  '.' and ',' go to the reference allele (BaseN when the
// reference is an ambiguity code).  Every call consumes one character from
// each quality string; indels ("+3ACG", "-1T"), read ends ('$') and read
// starts ('^' plus the read's MAPQ character) consume none.
//
// On error, t holds whatever was decoded before the failure.
func (t *AlleleTally) Decode(baseCalls, baseQuals, mapQuals string, refBase byte, opts DecodeOpts) error {
	t.Reset()
	refAllele := pileup.RefAllele(refBase)
	nSeq := len(baseCalls)
	// Position in baseCalls.  The two quality cursors always move together,
	// so a single index serves both.
	seqPos := 0
	qualPos := 0
	for seqPos < nSeq {
		c := baseCalls[seqPos]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		var allele pileup.Allele
		switch c {
		case '.', ',':
			allele = refAllele
		case 'A', 'C', 'G', 'T', 'N':
			allele = pileup.ASCIIToAlleleTable[c]
		case '+', '-':
			next, err := skipIndel(baseCalls, seqPos)
			if err != nil {
				return err
			}
			t[pileup.Other] = append(t[pileup.Other], IndelPair)
			seqPos = next
			continue
		case '$':
			seqPos++
			continue
		case '^':
			// The following character is the read's MAPQ; it is not mirrored in
			// mapQuals.
			seqPos += 2
			continue
		default:
			return &MalformedEncodingError{Char: c, Pos: seqPos}
		}
		if qualPos >= len(baseQuals) {
			return &TruncatedQualitiesError{Field: fieldBaseQuals, Len: len(baseQuals), Needed: qualPos + 1}
		}
		if qualPos >= len(mapQuals) {
			return &TruncatedQualitiesError{Field: fieldMapQuals, Len: len(mapQuals), Needed: qualPos + 1}
		}
		phred, err := decodeQual(fieldBaseQuals, baseQuals, qualPos)
		if err != nil {
			return err
		}
		mapq, err := decodeQual(fieldMapQuals, mapQuals, qualPos)
		if err != nil {
			return err
		}
		t[allele] = append(t[allele], QualityPair{Phred: phred, Mapq: mapq})
		seqPos++
		qualPos++
	}
	if !opts.LenientQualities {
		if qualPos != len(baseQuals) {
			return &TruncatedQualitiesError{Field: fieldBaseQuals, Len: len(baseQuals), Needed: qualPos}
		}
		if qualPos != len(mapQuals) {
			return &TruncatedQualitiesError{Field: fieldMapQuals, Len: len(mapQuals), Needed: qualPos}
		}
	}
	return nil
}

// skipIndel parses the indel starting with the '+' or '-' at baseCalls[pos],
// and returns the position just past its inserted/deleted sequence.
func skipIndel(baseCalls string, pos int) (int, error) {
	nSeq := len(baseCalls)
	digitEnd := pos + 1
	indelLen := 0
	for digitEnd < nSeq {
		d := baseCalls[digitEnd]
		if d < '0' || d > '9' {
			break
		}
		indelLen = indelLen*10 + int(d-'0')
		if indelLen > nSeq {
			// Can't fit; also keeps indelLen from overflowing.
			return 0, &MalformedEncodingError{Char: baseCalls[pos], Pos: pos}
		}
		digitEnd++
	}
	if digitEnd == pos+1 || digitEnd+indelLen > nSeq {
		return 0, &MalformedEncodingError{Char: baseCalls[pos], Pos: pos}
	}
	return digitEnd + indelLen, nil
}
