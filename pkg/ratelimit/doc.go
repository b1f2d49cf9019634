// Package ratelimit throttles outbound cover downloads.
//
// PerMinute(n) returns a sliding window limiter for n requests per minute,
// or an unlimited one when n is zero. Wait honours context cancellation so a
// stopped run does not sit in a rate limit sleep.
package ratelimit
