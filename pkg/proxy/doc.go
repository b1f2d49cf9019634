// Package proxy implements the range-aware media proxy behind /proxy_video.
//
// The browser cannot fetch CDN video directly because the origin checks the
// referrer, so requests are replayed server side with origin-appropriate
// headers. An inbound Range header is forwarded verbatim and a 206 from the
// origin is passed back with its Content-Range. Bodies are streamed in 64 KiB
// chunks, and the upstream request shares the inbound request's context so a
// closed tab stops the download.
package proxy
