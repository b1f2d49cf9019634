// Package storage manages the on-disk cover cache.
//
// Covers are stored one file per item as {dir}/{id}.jpg. Writes go through a
// temporary file and an atomic rename, so a reader never sees a partial
// cover and an interrupted download leaves nothing behind. Cached files are
// never refreshed.
package storage
