// Package router maps source container extensions to output extensions.
//
// The table is fixed for the lifetime of a run and comes from configuration.
// Matching folds case on the source side, so "Song.MFLAC" routes the same way
// as "song.mflac". Files whose extension is missing or unmapped are
// ineligible; callers decide whether that is an error (single-file runs) or a
// silent skip (batch runs).
package router
