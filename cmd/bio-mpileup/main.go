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
package main

/*
bio-mpileup tabulates allele and quality-threshold counts from a samtools
mpileup file.
*/

import (
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/mpileup/pileup/mpileup"
)

var (
	inPath        = flag.String("i", "", "Input mpileup path, '-' for stdin; required")
	outPrefix     = flag.String("p", "", "Output path prefix; required")
	separated     = flag.Bool("s", mpileup.DefaultOpts.Separated, "Write chromosome/position/depth to <prefix>_pos.txt, and headerless count-only rows everywhere else")
	bedPath       = flag.String("bed", mpileup.DefaultOpts.BedPath, "Restrict output to positions covered by this BED file; at most one of -bed and -region")
	region        = flag.String("region", mpileup.DefaultOpts.Region, "Restrict output to the specified region. Format as <contig ID>:<1-based first pos>-<last pos>, <contig ID>:<1-based pos>, or just <contig ID>")
	bgzip         = flag.Bool("bgzip", mpileup.DefaultOpts.Bgzip, "BGZF-compress every output file, adding a .gz suffix")
	skipMalformed = flag.Bool("skip-malformed", mpileup.DefaultOpts.SkipMalformed, "Log and skip records that fail to parse or decode, instead of aborting")
	lenientQuals  = flag.Bool("lenient-quals", mpileup.DefaultOpts.LenientQualities, "Tolerate quality strings longer than the number of base calls")
)

func init() {
	flag.StringVar(inPath, "ifile", "", "Alias for -i")
	flag.StringVar(outPrefix, "pfile", "", "Alias for -p")
}

func bioMpileupUsage() {
	fmt.Printf("Usage: %s -i <inputFile> -p <outputPrefix> [-s] [OPTIONS]\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

// checkArgs validates the parsed command line.
func checkArgs() error {
	if *inPath == "" {
		return fmt.Errorf("missing required flag -i/--ifile")
	}
	if *outPrefix == "" {
		return fmt.Errorf("missing required flag -p/--pfile")
	}
	if *bedPath != "" && *region != "" {
		return fmt.Errorf("-bed and -region are mutually exclusive")
	}
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected positional arguments %q", flag.Args())
	}
	return nil
}

func newOpts() mpileup.Opts {
	return mpileup.Opts{
		BedPath:          *bedPath,
		Region:           *region,
		Bgzip:            *bgzip,
		LenientQualities: *lenientQuals,
		Separated:        *separated,
		SkipMalformed:    *skipMalformed,
	}
}

func main() {
	flag.Usage = bioMpileupUsage
	if len(os.Args) == 1 {
		flag.Usage()
		os.Exit(0)
	}
	shutdown := grail.Init()
	if err := checkArgs(); err != nil {
		fmt.Printf("%v\n", err)
		flag.Usage()
		shutdown()
		os.Exit(2)
	}
	defer shutdown()

	ctx := vcontext.Background()
	opts := newOpts()
	log.Printf("input file is %q, output prefix is %q", *inPath, *outPrefix)
	if _, err := mpileup.Run(ctx, *inPath, *outPrefix, &opts); err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}
