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

// Quality-string names used in error messages.
const (
	fieldBaseQuals = "base-quality"
	fieldMapQuals  = "mapping-quality"
)

// MalformedEncodingError is returned by Decode when the base-call string
// contains a symbol outside the mpileup grammar, or an indel whose length
// prefix or body is unusable.
type MalformedEncodingError struct {
	// Char is the offending (case-folded) character.
	Char byte
	// Pos is its 0-based offset in the base-call string.
	Pos int
}

func (e *MalformedEncodingError) Error() string {
	return fmt.Sprintf("mpileup: malformed base-call encoding: symbol %q at position %d", e.Char, e.Pos)
}

// InvalidQualityError is returned by Decode when a quality character lies
// outside the phred+33 range '!'..'~'.
type InvalidQualityError struct {
	Field string
	Char  byte
	Pos   int
}

func (e *InvalidQualityError) Error() string {
	return fmt.Sprintf("mpileup: %s character %q at position %d is outside the phred+33 range", e.Field, e.Char, e.Pos)
}

// TruncatedQualitiesError is returned by Decode when a quality string's
// length does not match the number of calls in the base-call string.
type TruncatedQualitiesError struct {
	Field string
	// Len is the length of the quality string.
	Len int
	// Needed is the number of quality characters the base-call string
	// consumed, or would have consumed had the quality string been long
	// enough.
	Needed int
}

func (e *TruncatedQualitiesError) Error() string {
	if e.Needed > e.Len {
		return fmt.Sprintf("mpileup: %s string too short: %d character(s), base calls need at least %d", e.Field, e.Len, e.Needed)
	}
	return fmt.Sprintf("mpileup: %s string has %d character(s), base calls consumed only %d", e.Field, e.Len, e.Needed)
}

// MalformedRecordError is returned when an input line cannot be split into a
// pileup record.
type MalformedRecordError struct {
	// Line is 1-based.
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("mpileup: malformed record on line %d: %s", e.Line, e.Reason)
}

// FileAccessError is returned when an input or output path cannot be opened.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("mpileup: cannot open file %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// LineError attaches the 1-based input line number to a decode failure.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
