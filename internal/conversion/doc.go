// Package conversion turns one eligible container file into its standard
// format output by driving the loaded script's decrypt export.
//
// A job routes the source extension, derives the final target path, writes
// through a temp file named after the md5 of the target file name, and
// publishes the result with a single rename. Existing targets are skipped
// without contacting the target process, which makes reruns idempotent.
package conversion
