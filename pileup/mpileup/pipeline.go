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
	"os"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/mpileup/interval"
)

type Opts struct {
	// Commandline options.
	BedPath          string
	Region           string
	Bgzip            bool
	LenientQualities bool
	Separated        bool
	SkipMalformed    bool

	// Regions, if non-nil, overrides BedPath/Region.
	Regions *interval.Regions
}

var DefaultOpts = Opts{
	Bgzip:            false,
	LenientQualities: false,
	Separated:        false,
	SkipMalformed:    false,
}

// progressInterval is the number of input lines between progress messages.
const progressInterval = 1 << 20

// Stats summarizes a run.
type Stats struct {
	// Lines is the number of input lines read.
	Lines int
	// Emitted is the number of records written to every output stream.
	Emitted int
	// Malformed is the number of records skipped because they failed to parse
	// or decode (only nonzero with SkipMalformed).
	Malformed int
	// OutsideRegions is the number of records skipped by the region filter.
	OutsideRegions int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d line(s) read, %d record(s) emitted, %d malformed record(s) skipped, %d record(s) outside regions", s.Lines, s.Emitted, s.Malformed, s.OutsideRegions)
}

// loadRegions returns the region filter requested by opts, or nil if the run
// is unrestricted.
func loadRegions(ctx context.Context, opts *Opts) (*interval.Regions, error) {
	if opts.Regions != nil {
		return opts.Regions, nil
	}
	if opts.BedPath != "" && opts.Region != "" {
		return nil, fmt.Errorf("mpileup: at most one of BedPath and Region may be specified")
	}
	if opts.BedPath != "" {
		regions, err := interval.NewRegionsFromBEDPath(ctx, opts.BedPath)
		if err != nil {
			return nil, &FileAccessError{Path: opts.BedPath, Err: err}
		}
		return regions, nil
	}
	if opts.Region != "" {
		entry, err := interval.ParseRegionString(opts.Region)
		if err != nil {
			return nil, err
		}
		return interval.NewRegions([]interval.Entry{entry})
	}
	return nil, nil
}

// Run reads the mpileup file at inPath ("-" for stdin) and writes the
// per-record allele counts and per-threshold counts under outPrefix.
//
// Records are processed strictly in input order, and row N of every output
// file describes the N-th emitted record.  All output files are flushed and
// closed on every return path.
func Run(ctx context.Context, inPath, outPrefix string, opts *Opts) (stats Stats, err error) {
	var regions *interval.Regions
	if regions, err = loadRegions(ctx, opts); err != nil {
		return
	}

	var in io.Reader
	if inPath == "-" {
		in = os.Stdin
	} else {
		var infile file.File
		if infile, err = file.Open(ctx, inPath); err != nil {
			err = &FileAccessError{Path: inPath, Err: err}
			return
		}
		defer file.CloseAndReport(ctx, infile, &err)
		in = infile.Reader(ctx)
		if u := compress.NewReaderPath(in, infile.Name()); u != nil {
			in = u
		}
	}

	mode := Combined
	if opts.Separated {
		mode = Separated
	}
	agg, err := NewAggregator(DefaultThresholdKeys())
	if err != nil {
		return
	}
	var w *Writer
	if w, err = NewWriter(ctx, outPrefix, agg.Keys(), mode, opts.Bgzip); err != nil {
		return
	}
	defer func() {
		if e := w.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()

	p := recordProcessor{
		decodeOpts: DecodeOpts{LenientQualities: opts.LenientQualities},
		agg:        agg,
		w:          w,
	}
	scanner := NewScanner(in)
	for scanner.Scan() {
		stats.Lines++
		if stats.Lines%progressInterval == 0 {
			log.Printf("mpileup.Run: %s: %dMi lines", inPath, stats.Lines/progressInterval)
		}
		rec, recErr := scanner.Record()
		if recErr == nil {
			if regions != nil && !regions.ContainsByName(rec.Chrom, interval.PosType(rec.Pos-1)) {
				stats.OutsideRegions++
				continue
			}
			recErr = p.decode(&rec, scanner.LineNum())
		}
		if recErr != nil {
			if !opts.SkipMalformed {
				err = recErr
				return
			}
			log.Error.Printf("mpileup.Run: %s: skipping record: %v", inPath, recErr)
			stats.Malformed++
			continue
		}
		if err = p.write(&rec); err != nil {
			return
		}
		stats.Emitted++
	}
	if err = scanner.Err(); err != nil {
		err = fmt.Errorf("mpileup.Run: reading %s at line %d: %v", inPath, scanner.LineNum()+1, err)
		return
	}
	log.Printf("mpileup.Run: done, %v; results written to %s", stats, w.Paths().Main)
	return
}

// recordProcessor holds the per-run state reused from one record to the
// next.  Nothing in it outlives a single record's processing except the
// buffers.
type recordProcessor struct {
	decodeOpts DecodeOpts
	agg        *Aggregator
	w          *Writer
	tally      AlleleTally
	counts     []ThresholdCounts
}

func (p *recordProcessor) decode(rec *Record, lineNum int) error {
	if err := p.tally.Decode(rec.BaseCalls, rec.BaseQuals, rec.MapQuals, rec.Ref, p.decodeOpts); err != nil {
		return &LineError{Line: lineNum, Err: err}
	}
	p.counts = p.agg.Aggregate(&p.tally, p.counts)
	return nil
}

func (p *recordProcessor) write(rec *Record) error {
	return p.w.Write(rec, &p.tally, p.counts)
}
