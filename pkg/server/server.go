package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/config"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/manifest"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
)

// Resolver turns a share link into playable video details
type Resolver interface {
	Resolve(ctx context.Context, shareURL string) (models.ResolvedVideo, error)
}

// Catalog is the searchable mirror of the manifest
type Catalog interface {
	Sync(ctx context.Context, items []models.Item) error
	Search(ctx context.Context, q string, limit int) ([]models.Item, error)
	Count(ctx context.Context) (int, error)
}

// Dependencies are the components behind the routes. Catalog may be nil
// when the catalog is disabled; leave it unset rather than storing a typed
// nil pointer.
type Dependencies struct {
	Resolver Resolver
	Proxy    http.Handler
	Manifest *manifest.Manager
	Catalog  Catalog
}

// Server owns the gin engine and the websocket hub
type Server struct {
	cfg    config.ServerConfig
	deps   Dependencies
	engine *gin.Engine
	hub    *Hub
	files  http.FileSystem
	static http.Handler
	logger logger.Logger
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// New wires the routes for cfg over deps
func New(cfg config.ServerConfig, deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "server")

	root := cfg.StaticRoot
	if root == "" {
		root = "."
	}
	files := http.Dir(root)

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		engine: gin.New(),
		hub:    NewHub(log),
		files:  files,
		static: http.FileServer(files),
		logger: log,
	}

	s.engine.Use(requestID(), accessLog(log), recovery(log), cors())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/resolve_video", s.resolveVideo)
	api.POST("/save_data", s.saveData)
	api.GET("/items", s.listItems)
	api.GET("/health", s.health)

	if s.deps.Proxy != nil {
		s.engine.GET("/proxy_video", gin.WrapH(s.deps.Proxy))
	}
	s.engine.GET("/ws", WSHandler(s.hub))

	s.engine.NoRoute(s.serveStatic)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the event hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run listens on the configured address until ctx is done
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully within the configured timeout
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpSrv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.LogComponentStart(s.logger, "server", map[string]interface{}{
		"addr":        ln.Addr().String(),
		"static_root": s.cfg.StaticRoot,
		"catalog":     s.deps.Catalog != nil,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			logger.LogComponentStop(s.logger, "server", "error")
			return err
		}
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.hub.Close()
	err := httpSrv.Shutdown(shutdownCtx)
	logger.LogComponentStop(s.logger, "server", "shutdown")
	return err
}
