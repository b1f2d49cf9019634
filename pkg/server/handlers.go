package server

import (
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
)

const (
	maxManifestBytes = 32 << 20
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) resolveVideo(c *gin.Context) {
	shareURL := c.Query("url")
	if shareURL == "" {
		c.String(http.StatusBadRequest, "Missing url parameter")
		return
	}

	video, err := s.deps.Resolver.Resolve(c.Request.Context(), shareURL)
	if err != nil {
		_ = c.Error(err)
		c.String(errors.HTTPStatus(errors.TypeOf(err)), err.Error())
		return
	}
	c.JSON(http.StatusOK, video)
}

func (s *Server) saveData(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxManifestBytes)
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "failed to read body"})
		return
	}

	count, err := s.deps.Manifest.SaveRaw(body)
	if err != nil {
		_ = c.Error(err)
		c.JSON(errors.HTTPStatus(errors.TypeOf(err)), gin.H{"success": false, "error": err.Error()})
		return
	}

	if s.deps.Catalog != nil {
		s.syncCatalog(c)
	}
	s.hub.BroadcastJSON(ManifestEvent{Type: "manifest_updated", Count: count})

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// syncCatalog mirrors the saved manifest. The manifest is already durable,
// so a catalog failure is logged and the save still succeeds.
func (s *Server) syncCatalog(c *gin.Context) {
	items, err := s.deps.Manifest.Load()
	if err == nil {
		err = s.deps.Catalog.Sync(c.Request.Context(), items)
	}
	if err != nil {
		s.logger.WarnWithFields("Catalog sync failed", map[string]interface{}{
			"error":      err.Error(),
			"request_id": c.GetString("request_id"),
		})
	}
}

func (s *Server) listItems(c *gin.Context) {
	if s.deps.Catalog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "catalog disabled"})
		return
	}

	limit := parseInt(c.Query("limit"), defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	ctx := c.Request.Context()
	total, err := s.deps.Catalog.Count(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	items, err := s.deps.Catalog.Search(ctx, c.Query("q"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total": total,
		"limit": limit,
		"items": items,
	})
}

func (s *Server) health(c *gin.Context) {
	stats := s.hub.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"catalog":    s.deps.Catalog != nil,
		"ws_clients": stats.WSClients,
	})
}

// serveStatic serves files under the static root; "/" goes to the index page
func (s *Server) serveStatic(c *gin.Context) {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		c.String(http.StatusNotFound, "Not Found")
		return
	}

	p := c.Request.URL.Path
	if p == "/" && s.cfg.IndexPage != "" {
		c.Redirect(http.StatusFound, s.cfg.IndexPage)
		return
	}

	f, err := s.files.Open(path.Clean("/" + strings.TrimPrefix(p, "/")))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WarnWithFields("Static lookup failed", map[string]interface{}{"path": p, "error": err.Error()})
		}
		c.String(http.StatusNotFound, "Not Found")
		return
	}
	_ = f.Close()

	s.static.ServeHTTP(c.Writer, c.Request)
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
