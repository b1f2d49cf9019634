// Package server is the local HTTP surface of the poster wall.
//
// It serves the static frontend and the cover cache, resolves pasted share
// links, proxies video streams with Range support, accepts manifest edits
// from the page and pushes manifest updates to open pages over a websocket.
//
// Routes:
//
//	GET  /api/resolve_video?url=   resolve a share link
//	GET  /proxy_video?url=         range-aware media proxy
//	POST /api/save_data            replace the manifest
//	GET  /api/items?q=&limit=      search the catalog
//	GET  /api/health               liveness and hub stats
//	GET  /ws                       manifest update events
//
// Any other GET is looked up under the static root.
package server
