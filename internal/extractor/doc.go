// Package extractor unpacks downloaded archives into a directory and locates
// the single top-level folder they contain.
//
// Extraction tries an ordered list of strategies. The native strategy handles
// zip and gzip-compressed tar archives everywhere; on Windows a PowerShell
// Expand-Archive strategy follows it as a fallback.
package extractor
