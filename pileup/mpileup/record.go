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
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	gunsafe "github.com/grailbio/base/unsafe"
)

// nRecordFields is the number of leading mpileup columns a record needs.
// Later columns (read names, positions, ...) are ignored.
const nRecordFields = 7

// Record is a single mpileup line.
//
// The string fields of a Record returned by ParseRecord or Scanner.Record
// alias the input buffer; they are only valid until the next Scan.
type Record struct {
	Chrom string
	// Pos is 1-based, as in the input.
	Pos int64
	Ref byte
	// Depth is the depth column; it is reported, never checked against the
	// decoded calls.
	Depth     uint32
	BaseCalls string
	BaseQuals string
	MapQuals  string
}

// ParseRecord splits a tab-separated mpileup line.  lineNum is 1-based and
// only used for error reporting.
func ParseRecord(line []byte, lineNum int) (rec Record, err error) {
	var fields [nRecordFields][]byte
	rest := line
	for i := 0; i < nRecordFields; i++ {
		if rest == nil {
			return rec, &MalformedRecordError{Line: lineNum, Reason: fmt.Sprintf("%d tab-separated field(s), at least %d required", i, nRecordFields)}
		}
		if tabPos := bytes.IndexByte(rest, '\t'); tabPos == -1 {
			fields[i] = rest
			rest = nil
		} else {
			fields[i] = rest[:tabPos]
			rest = rest[tabPos+1:]
		}
	}
	if len(fields[2]) != 1 {
		return rec, &MalformedRecordError{Line: lineNum, Reason: fmt.Sprintf("reference base %q is not a single character", fields[2])}
	}
	if rec.Pos, err = strconv.ParseInt(gunsafe.BytesToString(fields[1]), 10, 64); err != nil {
		return rec, &MalformedRecordError{Line: lineNum, Reason: fmt.Sprintf("position %q is not an integer", fields[1])}
	}
	depth, err := strconv.ParseUint(gunsafe.BytesToString(fields[3]), 10, 32)
	if err != nil {
		return rec, &MalformedRecordError{Line: lineNum, Reason: fmt.Sprintf("depth %q is not a non-negative integer", fields[3])}
	}
	rec.Chrom = gunsafe.BytesToString(fields[0])
	rec.Ref = fields[2][0]
	rec.Depth = uint32(depth)
	rec.BaseCalls = gunsafe.BytesToString(fields[4])
	rec.BaseQuals = gunsafe.BytesToString(fields[5])
	rec.MapQuals = gunsafe.BytesToString(fields[6])
	return rec, nil
}

const (
	// Deep pileups produce long lines, so the scanner buffer starts larger
	// than bufio's default and may grow well beyond it.
	initialLineBufSize = 1 << 20
	maxLineLen         = 1 << 30
)

// Scanner reads mpileup records line by line.  Scanners are not threadsafe.
//
// Scanner only splits lines; a line that does not parse is reported by
// Record, not by Scan, so callers may choose to skip it and continue.
type Scanner struct {
	b       *bufio.Scanner
	lineNum int
}

// NewScanner constructs a new Scanner that reads raw mpileup text from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 0, initialLineBufSize), maxLineLen)
	return &Scanner{b: b}
}

// Scan advances to the next line.  Once Scan returns false, it never returns
// true again; the user should then check Err.
func (s *Scanner) Scan() bool {
	if !s.b.Scan() {
		return false
	}
	s.lineNum++
	return true
}

// LineNum returns the 1-based number of the current line.
func (s *Scanner) LineNum() int {
	return s.lineNum
}

// Record parses the current line.
func (s *Scanner) Record() (Record, error) {
	return ParseRecord(s.b.Bytes(), s.lineNum)
}

// Err returns the scanning error, if any.
func (s *Scanner) Err() error {
	return s.b.Err()
}
