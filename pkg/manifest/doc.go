// Package manifest persists the collected item list as a JSON array.
//
// Every write goes to a temporary file in the manifest's directory, is synced
// to disk and then renamed into place, so a crash or a failed write leaves the
// previous manifest intact. Save followed by Load yields the same items in the
// same order.
package manifest
