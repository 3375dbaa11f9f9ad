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
package mpileup_test

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/mpileup/pileup/mpileup"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const testRecords = "chr1\t3153345\tT\t2\t.,+4atta\t^!\t]]\n" +
	"chr1\t3153346\tA\t4\t..,G\tII5+\t]]]!\n" +
	"chr1\t3153347\tC\t4\t^].$,Tt-2ca\t?0:#\t<<(&\n" +
	"chr2\t100\tG\t5\tAaCcN\t+5%.?\t!#$%&\t1,2,3,4,5\n" +
	"chr2\t101\tN\t2\t.,\tAB\t()\n" +
	"chr2\t102\ta\t3\t.,^~g$\t+,-\t0/.\n"

const wantMain = "Chromosome\tPosition\tNumberOfBases\tA\tC\tG\tT\tOther\tN\n" +
	"chr1\t3153345\t2\t0\t0\t0\t2\t1\t0\n" +
	"chr1\t3153346\t4\t3\t0\t1\t0\t0\t0\n" +
	"chr1\t3153347\t4\t0\t2\t0\t2\t1\t0\n" +
	"chr2\t100\t5\t2\t2\t0\t0\t0\t1\n" +
	"chr2\t101\t2\t0\t0\t0\t0\t0\t2\n" +
	"chr2\t102\t3\t2\t0\t1\t0\t0\t0\n"

const thresholdHeader = "Chromosome\tPosition\tNumberOfBases\tA\tC\tG\tT\n"

var wantThresholds = map[string]string{
	"30_10": thresholdHeader +
		"chr1\t3153345\t2\t0\t0\t0\t0\n" +
		"chr1\t3153346\t4\t0\t0\t1\t0\n" +
		"chr1\t3153347\t4\t0\t0\t0\t2\n" +
		"chr2\t100\t5\t2\t2\t0\t0\n" +
		"chr2\t101\t2\t0\t0\t0\t0\n" +
		"chr2\t102\t3\t0\t0\t0\t0\n",
	"25_5": thresholdHeader +
		"chr1\t3153345\t2\t0\t0\t0\t0\n" +
		"chr1\t3153346\t4\t0\t0\t1\t0\n" +
		"chr1\t3153347\t4\t0\t0\t0\t0\n" +
		"chr2\t100\t5\t2\t2\t0\t0\n" +
		"chr2\t101\t2\t0\t0\t0\t0\n" +
		"chr2\t102\t3\t0\t0\t0\t0\n",
	"15_1": thresholdHeader +
		"chr1\t3153345\t2\t0\t0\t0\t0\n" +
		"chr1\t3153346\t4\t0\t0\t1\t0\n" +
		"chr1\t3153347\t4\t0\t0\t0\t0\n" +
		"chr2\t100\t5\t1\t0\t0\t0\n" +
		"chr2\t101\t2\t0\t0\t0\t0\n" +
		"chr2\t102\t3\t0\t0\t0\t0\n",
	"20_0": thresholdHeader +
		"chr1\t3153345\t2\t0\t0\t0\t0\n" +
		"chr1\t3153346\t4\t0\t0\t0\t0\n" +
		"chr1\t3153347\t4\t0\t0\t0\t0\n" +
		"chr2\t100\t5\t0\t0\t0\t0\n" +
		"chr2\t101\t2\t0\t0\t0\t0\n" +
		"chr2\t102\t3\t0\t0\t0\t0\n",
}

func writeInput(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	assert.NoError(t, ioutil.WriteFile(path, []byte(contents), 0644))
	return path
}

func readOutput(t *testing.T, path string) string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err, path)
	return string(data)
}

func readGzipOutput(t *testing.T, path string) string {
	f, err := os.Open(path)
	assert.NoError(t, err, path)
	defer f.Close() // nolint: errcheck
	r, err := gzip.NewReader(f)
	assert.NoError(t, err, path)
	data, err := ioutil.ReadAll(r)
	assert.NoError(t, err, path)
	return string(data)
}

func splitRows(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestRunCombined(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	inPath := writeInput(t, tmpdir, "in.mpileup", testRecords)
	prefix := filepath.Join(tmpdir, "out")
	stats, err := mpileup.Run(ctx, inPath, prefix, &mpileup.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, stats, mpileup.Stats{Lines: 6, Emitted: 6})

	expect.EQ(t, readOutput(t, prefix+".txt"), wantMain)
	for key, want := range wantThresholds {
		expect.EQ(t, readOutput(t, prefix+"_"+key+".txt"), want, key)
	}
	_, err = os.Stat(prefix + "_pos.txt")
	expect.True(t, os.IsNotExist(err))

	// Every threshold file has a header plus one row per record.
	for _, key := range mpileup.DefaultThresholdKeys() {
		rows := splitRows(readOutput(t, prefix+"_"+key.String()+".txt"))
		expect.EQ(t, len(rows), 7, key)
		expect.EQ(t, rows[0]+"\n", thresholdHeader, key)
	}
}

func TestRunEmptyInput(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	inPath := writeInput(t, tmpdir, "in.mpileup", "")
	prefix := filepath.Join(tmpdir, "out")
	stats, err := mpileup.Run(ctx, inPath, prefix, &mpileup.DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, stats.Emitted, 0)
	expect.EQ(t, readOutput(t, prefix+".txt"), "Chromosome\tPosition\tNumberOfBases\tA\tC\tG\tT\tOther\tN\n")
	expect.EQ(t, readOutput(t, prefix+"_30_0.txt"), thresholdHeader)

	opts := mpileup.DefaultOpts
	opts.Separated = true
	_, err = mpileup.Run(ctx, inPath, prefix, &opts)
	assert.NoError(t, err)
	expect.EQ(t, readOutput(t, prefix+".txt"), "")
	expect.EQ(t, readOutput(t, prefix+"_pos.txt"), "")
	expect.EQ(t, readOutput(t, prefix+"_15_10.txt"), "")
}

func TestRunSeparated(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	inPath := writeInput(t, tmpdir, "in.mpileup", testRecords)
	combined := filepath.Join(tmpdir, "combined")
	_, err := mpileup.Run(ctx, inPath, combined, &mpileup.DefaultOpts)
	assert.NoError(t, err)

	separated := filepath.Join(tmpdir, "separated")
	opts := mpileup.DefaultOpts
	opts.Separated = true
	stats, err := mpileup.Run(ctx, inPath, separated, &opts)
	assert.NoError(t, err)
	expect.EQ(t, stats.Emitted, 6)

	expect.EQ(t, readOutput(t, separated+"_pos.txt"),
		"chr1\t3153345\t2\n"+
			"chr1\t3153346\t4\n"+
			"chr1\t3153347\t4\n"+
			"chr2\t100\t5\n"+
			"chr2\t101\t2\n"+
			"chr2\t102\t3\n")
	expect.EQ(t, readOutput(t, separated+".txt"),
		"0\t0\t0\t2\t1\t0\n"+
			"3\t0\t1\t0\t0\t0\n"+
			"0\t2\t0\t2\t1\t0\n"+
			"2\t2\t0\t0\t0\t1\n"+
			"0\t0\t0\t0\t0\t2\n"+
			"2\t0\t1\t0\t0\t0\n")

	// Row N of every separated file, appended to row N of the positions
	// file, is row N of the corresponding combined file.
	posRows := splitRows(readOutput(t, separated+"_pos.txt"))
	check := func(combinedPath, separatedPath string) {
		wantRows := splitRows(readOutput(t, combinedPath))[1:]
		gotRows := splitRows(readOutput(t, separatedPath))
		assert.EQ(t, len(gotRows), len(wantRows), separatedPath)
		for i := range gotRows {
			expect.EQ(t, posRows[i]+"\t"+gotRows[i], wantRows[i], separatedPath)
		}
	}
	check(combined+".txt", separated+".txt")
	for _, key := range mpileup.DefaultThresholdKeys() {
		check(combined+"_"+key.String()+".txt", separated+"_"+key.String()+".txt")
	}
}

func TestRunBgzip(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	// Gzipped input is decompressed transparently.
	var buf strings.Builder
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(testRecords))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	inPath := writeInput(t, tmpdir, "in.mpileup.gz", buf.String())

	prefix := filepath.Join(tmpdir, "out")
	opts := mpileup.DefaultOpts
	opts.Bgzip = true
	_, err = mpileup.Run(ctx, inPath, prefix, &opts)
	assert.NoError(t, err)

	expect.EQ(t, readGzipOutput(t, prefix+".txt.gz"), wantMain)
	for key, want := range wantThresholds {
		expect.EQ(t, readGzipOutput(t, prefix+"_"+key+".txt.gz"), want, key)
	}
	_, err = os.Stat(prefix + ".txt")
	expect.True(t, os.IsNotExist(err))
}

func TestRunRegions(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()
	inPath := writeInput(t, tmpdir, "in.mpileup", testRecords)
	mainRows := splitRows(wantMain)

	opts := mpileup.DefaultOpts
	opts.Region = "chr1:3153346-3153347"
	prefix := filepath.Join(tmpdir, "region")
	stats, err := mpileup.Run(ctx, inPath, prefix, &opts)
	assert.NoError(t, err)
	expect.EQ(t, stats, mpileup.Stats{Lines: 6, Emitted: 2, OutsideRegions: 4})
	expect.EQ(t, splitRows(readOutput(t, prefix+".txt")), []string{mainRows[0], mainRows[2], mainRows[3]})

	// BED intervals are 0-based half-open: [99, 101) covers positions 100
	// and 101.
	opts = mpileup.DefaultOpts
	opts.BedPath = writeInput(t, tmpdir, "regions.bed", "chr2\t99\t101\n")
	prefix = filepath.Join(tmpdir, "bed")
	stats, err = mpileup.Run(ctx, inPath, prefix, &opts)
	assert.NoError(t, err)
	expect.EQ(t, stats.Emitted, 2)
	expect.EQ(t, splitRows(readOutput(t, prefix+".txt")), []string{mainRows[0], mainRows[4], mainRows[5]})

	opts.Region = "chr1"
	_, err = mpileup.Run(ctx, inPath, prefix, &opts)
	expect.NotNil(t, err)

	opts = mpileup.DefaultOpts
	opts.BedPath = filepath.Join(tmpdir, "missing.bed")
	_, err = mpileup.Run(ctx, inPath, prefix, &opts)
	var ferr *mpileup.FileAccessError
	assert.True(t, errors.As(err, &ferr), "%v", err)
	expect.EQ(t, ferr.Path, opts.BedPath)
}

const badRecords = "chr1\t3153345\tT\t2\t.,+4atta\t^!\t]]\n" +
	"chr1\t3153346\tA\t4\t..,G\tII5+\t]]]!\n" +
	"chr1\t9\tA\t1\t.*\tI\tI\n" +
	"chr1\t3153347\tC\t4\t^].$,Tt-2ca\t?0:#\t<<(&\n" +
	"garbage\n" +
	"chr2\t100\tG\t5\tAaCcN\t+5%.?\t!#$%&\t1,2,3,4,5\n" +
	"chr2\t101\tN\t2\t.,\tAB\t()\n" +
	"chr2\t102\ta\t3\t.,^~g$\t+,-\t0/.\n"

func TestRunMalformed(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()
	inPath := writeInput(t, tmpdir, "in.mpileup", badRecords)

	// By default the first bad record aborts the run, and everything
	// emitted before it is flushed.
	prefix := filepath.Join(tmpdir, "abort")
	stats, err := mpileup.Run(ctx, inPath, prefix, &mpileup.DefaultOpts)
	var lerr *mpileup.LineError
	assert.True(t, errors.As(err, &lerr), "%v", err)
	expect.EQ(t, lerr.Line, 3)
	var merr *mpileup.MalformedEncodingError
	assert.True(t, errors.As(err, &merr), "%v", err)
	expect.EQ(t, merr.Char, byte('*'))
	expect.EQ(t, stats.Emitted, 2)
	mainRows := splitRows(wantMain)
	expect.EQ(t, splitRows(readOutput(t, prefix+".txt")), mainRows[:3])
	expect.EQ(t, len(splitRows(readOutput(t, prefix+"_25_10.txt"))), 3)

	opts := mpileup.DefaultOpts
	opts.SkipMalformed = true
	prefix = filepath.Join(tmpdir, "skip")
	stats, err = mpileup.Run(ctx, inPath, prefix, &opts)
	assert.NoError(t, err)
	expect.EQ(t, stats, mpileup.Stats{Lines: 8, Emitted: 6, Malformed: 2})
	expect.EQ(t, readOutput(t, prefix+".txt"), wantMain)
	for key, want := range wantThresholds {
		expect.EQ(t, readOutput(t, prefix+"_"+key+".txt"), want, key)
	}
}

func TestRunFileAccess(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	ctx := vcontext.Background()

	prefix := filepath.Join(tmpdir, "out")
	missing := filepath.Join(tmpdir, "missing.mpileup")
	_, err := mpileup.Run(ctx, missing, prefix, &mpileup.DefaultOpts)
	var ferr *mpileup.FileAccessError
	assert.True(t, errors.As(err, &ferr), "%v", err)
	expect.EQ(t, ferr.Path, missing)
	_, err = os.Stat(prefix + ".txt")
	expect.True(t, os.IsNotExist(err))

	// The output prefix lives under a regular file, so nothing can be
	// created.
	inPath := writeInput(t, tmpdir, "in.mpileup", testRecords)
	notDir := writeInput(t, tmpdir, "notdir", "")
	_, err = mpileup.Run(ctx, inPath, filepath.Join(notDir, "out"), &mpileup.DefaultOpts)
	assert.True(t, errors.As(err, &ferr), "%v", err)
	expect.EQ(t, ferr.Path, filepath.Join(notDir, "out.txt"))
}

func TestNewOutputPaths(t *testing.T) {
	keys := []mpileup.ThresholdKey{{Phred: 30, Mapq: 0}, {Phred: 15, Mapq: 10}}
	expect.EQ(t, mpileup.NewOutputPaths("/x/s1", keys, mpileup.Combined, false), mpileup.OutputPaths{
		Main:       "/x/s1.txt",
		Thresholds: []string{"/x/s1_30_0.txt", "/x/s1_15_10.txt"},
	})
	expect.EQ(t, mpileup.NewOutputPaths("/x/s1", keys, mpileup.Separated, true), mpileup.OutputPaths{
		Main:       "/x/s1.txt.gz",
		Pos:        "/x/s1_pos.txt.gz",
		Thresholds: []string{"/x/s1_30_0.txt.gz", "/x/s1_15_10.txt.gz"},
	})
	expect.EQ(t, mpileup.Separated.String(), "separated")
}
