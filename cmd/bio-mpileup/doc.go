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

/*
Given the output of "samtools mpileup -s" (which includes a mapping-quality
column), bio-mpileup reports the number of calls supporting each allele at
each position, and, for every (base-quality cutoff, MAPQ cutoff) pair in a
fixed 4x4 grid, the number of A/C/G/T calls whose base quality and MAPQ are
both strictly below the cutoffs.

Output files, all tab-separated:
  <prefix>.txt                   A/C/G/T/Other/N counts per position
  <prefix>_<phred>_<mapq>.txt    thresholded A/C/G/T counts, 16 files
  <prefix>_pos.txt               chromosome/position/depth (-s only)
With -s, <prefix>.txt and the threshold files carry no header and no
chromosome/position columns; line N of every file describes the same input
record.

Sample usage:
bio-mpileup \
    -i sample.mpileup \
    -p output-prefix \
    -bed my-regions.bed
*/
package main
