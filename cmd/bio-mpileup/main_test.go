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

import (
	"flag"
	"testing"

	"github.com/grailbio/mpileup/pileup/mpileup"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func resetFlags(t *testing.T) {
	for name, value := range map[string]string{
		"i":              "",
		"p":              "",
		"s":              "false",
		"bed":            "",
		"region":         "",
		"bgzip":          "false",
		"skip-malformed": "false",
		"lenient-quals":  "false",
	} {
		assert.NoError(t, flag.Set(name, value))
	}
}

func TestCheckArgs(t *testing.T) {
	resetFlags(t)
	expect.HasSubstr(t, checkArgs().Error(), "-i")

	assert.NoError(t, flag.Set("ifile", "in.mpileup"))
	expect.EQ(t, *inPath, "in.mpileup")
	expect.HasSubstr(t, checkArgs().Error(), "-p")

	assert.NoError(t, flag.Set("p", "/tmp/sample"))
	expect.NoError(t, checkArgs())

	assert.NoError(t, flag.Set("bed", "x.bed"))
	assert.NoError(t, flag.Set("region", "chr1"))
	expect.HasSubstr(t, checkArgs().Error(), "mutually exclusive")
	resetFlags(t)
}

func TestNewOpts(t *testing.T) {
	resetFlags(t)
	expect.EQ(t, newOpts(), mpileup.DefaultOpts)

	assert.NoError(t, flag.Set("s", "true"))
	assert.NoError(t, flag.Set("region", "chr2:10-20"))
	assert.NoError(t, flag.Set("bgzip", "true"))
	assert.NoError(t, flag.Set("skip-malformed", "true"))
	assert.NoError(t, flag.Set("lenient-quals", "true"))
	expect.EQ(t, newOpts(), mpileup.Opts{
		Region:           "chr2:10-20",
		Bgzip:            true,
		LenientQualities: true,
		Separated:        true,
		SkipMalformed:    true,
	})
	resetFlags(t)
}
