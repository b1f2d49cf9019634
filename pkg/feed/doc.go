// Package feed provides collector sources for the favorites feed.
//
// APISource pages the web favorites listing with the user's cookie.
// ReplaySource plays back batches recorded in a JSON fixture, which is how
// offline runs and tests drive the collector.
package feed
