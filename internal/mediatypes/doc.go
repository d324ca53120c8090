// Package mediatypes provides shared type definitions for media file handling
// across the media inspector.
//
// This package exists as a dependency-free foundation that can be imported by other
// packages without creating import cycles. It contains the supported video
// extension table, sidecar subtitle extensions, and the folder skip rules used by
// both the directory browser and library analysis.
//
//	if mediatypes.IsVideoFile(entry.Name()) {
//	    // candidate for probing
//	}
//
// Hidden entries (leading ".") and well-known system folders such as
// "System Volume Information" are never browsed or analyzed.
package mediatypes
