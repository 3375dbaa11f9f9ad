/*Package interval implements membership queries over sets of genomic
  coordinates given as BED files or region strings.
  Intervals are stored per contig in biogo interval trees, so input order does
  not matter and overlapping intervals are kept as-is.
  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
