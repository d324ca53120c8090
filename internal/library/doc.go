// Package library walks the media root.
//
// Walker lists directories for the browser, discovers every video file for an
// analysis run, resolves client supplied paths without letting them escape
// the root, and computes a cheap fingerprint of the top of the tree that is
// stored next to cached results.
//
// Enumeration order is stable: entries are visited sorted by name, depth
// first. Hidden entries (leading dot) and system folders such as
// "System Volume Information" are skipped, as are entries that cannot be
// read. Recursion stops after the configured depth (SCAN_MAX_DEPTH).
package library
