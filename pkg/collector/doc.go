// Package collector harvests items from an infinite-scroll style feed.
//
// The feed is observed in batches that may repeat earlier items or be empty
// while the feed is still loading. A batch that adds no new item counts as a
// stall; StallLimit consecutive stalls end the run. The run also ends when the
// store reaches MaxItems, when the source closes, or when ctx is cancelled.
// Batches are pulled strictly one after another.
package collector
