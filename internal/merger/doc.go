// Package merger mirrors one directory tree into another without deleting
// anything from the destination.
//
// Files are replaced atomically, failures of single files are collected
// instead of aborting the merge, and merging the same input twice leaves the
// destination exactly as after the first merge.
package merger
