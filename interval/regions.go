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
package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	biointerval "github.com/biogo/store/interval"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
)

// PosType is the integer type used to represent genomic positions.
type PosType = int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Entry represents a single interval, with 0-based coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// span adapts an Entry to biogo's IntInterface.  Intervals are half-open.
type span struct {
	start, end int
	uid        uintptr
}

func (s span) Overlap(b biointerval.IntRange) bool {
	return s.end > b.Start && s.start < b.End
}

func (s span) ID() uintptr {
	return s.uid
}

func (s span) Range() biointerval.IntRange {
	return biointerval.IntRange{Start: s.start, End: s.end}
}

// Regions is a set of genomic intervals, indexed by contig name.  Unlike
// BED-union style structures it does not require sorted input; overlapping
// and touching intervals are allowed.
type Regions struct {
	trees    map[string]*biointerval.IntTree
	nEntries int
}

// NewRegions builds a Regions from entries in any order.  Empty intervals are
// dropped.
func NewRegions(entries []Entry) (*Regions, error) {
	r := &Regions{trees: make(map[string]*biointerval.IntTree)}
	for _, e := range entries {
		if e.Start0 < 0 {
			return nil, fmt.Errorf("interval.NewRegions: negative start coordinate in %s:[%d, %d)", e.ChrName, e.Start0, e.End)
		}
		if e.End < e.Start0 {
			return nil, fmt.Errorf("interval.NewRegions: invalid coordinate pair [%d, %d) on %s", e.Start0, e.End, e.ChrName)
		}
		if e.End == e.Start0 {
			continue
		}
		tree, ok := r.trees[e.ChrName]
		if !ok {
			tree = &biointerval.IntTree{}
			r.trees[e.ChrName] = tree
		}
		if err := tree.Insert(span{start: int(e.Start0), end: int(e.End), uid: uintptr(r.nEntries)}, true); err != nil {
			return nil, err
		}
		r.nEntries++
	}
	for _, tree := range r.trees {
		tree.AdjustRanges()
	}
	return r, nil
}

// Len returns the number of (nonempty) intervals in r.
func (r *Regions) Len() int {
	return r.nEntries
}

// ContainsByName returns true iff the 0-based position pos on contig chrName
// is covered by at least one interval.
func (r *Regions) ContainsByName(chrName string, pos PosType) bool {
	tree, ok := r.trees[chrName]
	if !ok {
		return false
	}
	return len(tree.Get(span{start: int(pos), end: int(pos) + 1})) != 0
}

// NewRegionsFromBED reads the first three columns of an interval-BED.  Blank
// lines and "#", "track" and "browser" header lines are skipped.
func NewRegionsFromBED(reader io.Reader) (*Regions, error) {
	var entries []Entry
	scanner := bufio.NewScanner(reader)
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("interval.NewRegionsFromBED: line %d has %d column(s), at least 3 required", lineIdx, len(fields))
		}
		start0, err := strconv.ParseInt(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("interval.NewRegionsFromBED: line %d: %v", lineIdx, err)
		}
		end, err := strconv.ParseInt(fields[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("interval.NewRegionsFromBED: line %d: %v", lineIdx, err)
		}
		entries = append(entries, Entry{
			ChrName: fields[0],
			Start0:  PosType(start0),
			End:     PosType(end),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewRegions(entries)
}

// NewRegionsFromBEDPath is a wrapper for NewRegionsFromBED that takes a path
// instead of an io.Reader.  Gzipped BEDs are recognized by extension.
func NewRegionsFromBEDPath(ctx context.Context, path string) (regions *Regions, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer file.CloseAndReport(ctx, infile, &err)
	reader := io.Reader(infile.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewRegionsFromBED(reader)
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, PosTypeMax) is returned if there is no positional restriction.
func ParseRegionString(region string) (result Entry, err error) {
	if region == "" {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		result = Entry{ChrName: region, Start0: 0, End: PosTypeMax}
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID")
		return
	}
	result.ChrName = region[:colonPos]
	rangeStr := region[colonPos+1:]
	start1Str, endStr := rangeStr, rangeStr
	if dashPos := strings.IndexByte(rangeStr, '-'); dashPos != -1 {
		start1Str, endStr = rangeStr[:dashPos], rangeStr[dashPos+1:]
	}
	var start1, end int64
	if start1, err = strconv.ParseInt(start1Str, 10, 32); err != nil {
		return
	}
	if end, err = strconv.ParseInt(endStr, 10, 32); err != nil {
		return
	}
	if start1 <= 0 || end < start1 {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end)
	return
}
