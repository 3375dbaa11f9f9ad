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
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/mpileup/pileup"
)

// OutputMode selects the shape of the output files.
type OutputMode int

const (
	// Combined writes headers, and prefixes every row with
	// chromosome/position/depth.
	Combined OutputMode = iota
	// Separated writes chromosome/position/depth once, to a dedicated
	// positions file, and only counts everywhere else.  Row N of every file
	// describes the same record.
	Separated
)

func (m OutputMode) String() string {
	switch m {
	case Combined:
		return "combined"
	case Separated:
		return "separated"
	}
	return fmt.Sprintf("OutputMode(%d)", int(m))
}

const (
	mainHeader      = "Chromosome\tPosition\tNumberOfBases\tA\tC\tG\tT\tOther\tN"
	thresholdHeader = "Chromosome\tPosition\tNumberOfBases\tA\tC\tG\tT"
)

// Main-file count columns, in output order.
var mainAlleles = [...]pileup.Allele{pileup.BaseA, pileup.BaseC, pileup.BaseG, pileup.BaseT, pileup.Other, pileup.BaseN}

// Threshold files are created in this phred order (mapq ascending within
// each), matching the file listing users are used to.
var streamPhredOrder = [...]int{15, 20, 30, 25}

// OutputPaths lists the files written for a given prefix.
type OutputPaths struct {
	Main string
	// Pos is empty in Combined mode.
	Pos string
	// Thresholds[k] is the file for keys[k].
	Thresholds []string
}

// NewOutputPaths returns the paths of the files a Writer with the same
// arguments creates: <prefix>.txt, <prefix>_pos.txt and
// <prefix>_<phred>_<mapq>.txt, each with a ".gz" suffix when bgzip is set.
func NewOutputPaths(prefix string, keys []ThresholdKey, mode OutputMode, bgzip bool) OutputPaths {
	suffix := ".txt"
	if bgzip {
		suffix += ".gz"
	}
	paths := OutputPaths{
		Main:       prefix + suffix,
		Thresholds: make([]string, len(keys)),
	}
	if mode == Separated {
		paths.Pos = prefix + "_pos" + suffix
	}
	for k, key := range keys {
		paths.Thresholds[k] = prefix + "_" + key.String() + suffix
	}
	return paths
}

// stream is a single output file.
type stream struct {
	path string
	f    file.File
	bgzf *bgzf.Writer
	tsv  *tsv.Writer
}

func createStream(ctx context.Context, path string, bgzip bool) (*stream, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	s := &stream{path: path, f: f}
	var w io.Writer = f.Writer(ctx)
	if bgzip {
		s.bgzf = bgzf.NewWriter(w, 1)
		w = s.bgzf
	}
	s.tsv = tsv.NewWriter(w)
	return s, nil
}

func (s *stream) writeHeader(header string) error {
	s.tsv.WriteString(header)
	return s.tsv.EndLine()
}

// close flushes and closes s.  It is safe to call on a stream whose writes
// have failed.
func (s *stream) close(ctx context.Context) error {
	var once errors.Once
	once.Set(s.tsv.Flush())
	if s.bgzf != nil {
		once.Set(s.bgzf.Close())
	}
	once.Set(s.f.Close(ctx))
	if err := once.Err(); err != nil {
		return errors.E(err, "closing", s.path)
	}
	return nil
}

// Writer owns every output stream of a run: the main file, the positions file
// (Separated mode only), and one file per threshold key.
type Writer struct {
	mode       OutputMode
	paths      OutputPaths
	main       *stream
	pos        *stream
	thresholds []*stream
}

// NewWriter creates all output files.  If any file cannot be created, the
// ones already created are closed and a *FileAccessError is returned.
func NewWriter(ctx context.Context, prefix string, keys []ThresholdKey, mode OutputMode, bgzip bool) (w *Writer, err error) {
	w = &Writer{
		mode:       mode,
		paths:      NewOutputPaths(prefix, keys, mode, bgzip),
		thresholds: make([]*stream, len(keys)),
	}
	defer func() {
		if err != nil {
			_ = w.Close(ctx)
			w = nil
		}
	}()
	if w.main, err = createStream(ctx, w.paths.Main, bgzip); err != nil {
		return
	}
	if mode == Combined {
		if err = w.main.writeHeader(mainHeader); err != nil {
			return
		}
	} else {
		if w.pos, err = createStream(ctx, w.paths.Pos, bgzip); err != nil {
			return
		}
	}
	for _, k := range streamCreationOrder(keys) {
		if w.thresholds[k], err = createStream(ctx, w.paths.Thresholds[k], bgzip); err != nil {
			return
		}
		if mode == Combined {
			if err = w.thresholds[k].writeHeader(thresholdHeader); err != nil {
				return
			}
		}
	}
	return
}

// streamCreationOrder returns the indexes of keys sorted by the rank of their
// phred cutoff in streamPhredOrder (unlisted cutoffs last), then by mapq.
func streamCreationOrder(keys []ThresholdKey) []int {
	rank := func(phred int) int {
		for i, p := range streamPhredOrder {
			if p == phred {
				return i
			}
		}
		return len(streamPhredOrder)
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		ki, kj := keys[order[i]], keys[order[j]]
		if ri, rj := rank(ki.Phred), rank(kj.Phred); ri != rj {
			return ri < rj
		}
		return ki.Mapq < kj.Mapq
	})
	return order
}

// Paths returns the paths of w's files.
func (w *Writer) Paths() OutputPaths {
	return w.paths
}

// writeChromPosDepth appends the CHROM/POS/DEPTH columns common to the
// Combined rows and the positions file.
func writeChromPosDepth(tsvw *tsv.Writer, rec *Record) {
	tsvw.WriteString(rec.Chrom)
	tsvw.WriteString(strconv.FormatInt(rec.Pos, 10))
	tsvw.WriteUint32(rec.Depth)
}

// Write emits one row to every stream.  counts[k] must correspond to the k-th
// key w was created with.
func (w *Writer) Write(rec *Record, tally *AlleleTally, counts []ThresholdCounts) error {
	if len(counts) != len(w.thresholds) {
		return fmt.Errorf("mpileup.Writer.Write: %d threshold counts, expected %d", len(counts), len(w.thresholds))
	}
	if w.mode == Separated {
		writeChromPosDepth(w.pos.tsv, rec)
		if err := w.pos.tsv.EndLine(); err != nil {
			return errors.E(err, "writing", w.pos.path)
		}
	} else {
		writeChromPosDepth(w.main.tsv, rec)
	}
	for _, allele := range mainAlleles {
		w.main.tsv.WriteUint32(uint32(tally.Count(allele)))
	}
	if err := w.main.tsv.EndLine(); err != nil {
		return errors.E(err, "writing", w.main.path)
	}
	for k, s := range w.thresholds {
		if w.mode == Combined {
			writeChromPosDepth(s.tsv, rec)
		}
		for _, c := range counts[k] {
			s.tsv.WriteUint32(c)
		}
		if err := s.tsv.EndLine(); err != nil {
			return errors.E(err, "writing", s.path)
		}
	}
	return nil
}

// Close flushes and closes every stream that was opened, returning the first
// error encountered.  Close must be called on every exit path.
func (w *Writer) Close(ctx context.Context) error {
	var once errors.Once
	if w.main != nil {
		once.Set(w.main.close(ctx))
		w.main = nil
	}
	if w.pos != nil {
		once.Set(w.pos.close(ctx))
		w.pos = nil
	}
	for k, s := range w.thresholds {
		if s != nil {
			once.Set(s.close(ctx))
			w.thresholds[k] = nil
		}
	}
	return once.Err()
}
