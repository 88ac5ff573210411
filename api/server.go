package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/moyoez/batchshare/api/controllers"
	"github.com/moyoez/batchshare/api/middlewares"
	"github.com/moyoez/batchshare/api/notifyhub"
	"github.com/moyoez/batchshare/storage"
	"github.com/moyoez/batchshare/tool"
)

// Server is the local HTTP API: health, metrics, batch lookup and live batch events.
type Server struct {
	addr        string
	repo        storage.BatchRepository
	sessions    controllers.SessionCounter
	hub         *notifyhub.Hub
	botUsername func() string

	mu     sync.Mutex
	server *http.Server
}

func NewServer(addr string, repo storage.BatchRepository, sessions controllers.SessionCounter,
	hub *notifyhub.Hub, botUsername func() string) *Server {
	return &Server{
		addr:        addr,
		repo:        repo,
		sessions:    sessions,
		hub:         hub,
		botUsername: botUsername,
	}
}

// Routes builds the gin engine; exported so tests can drive it with httptest.
func (s *Server) Routes() *gin.Engine {
	if tool.DefaultLogger.GetLevel() == log.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	// ClientIP must come from the socket, not X-Forwarded-For, for OnlyAllowLocal
	_ = engine.SetTrustedProxies(nil)

	batchCtrl := controllers.NewBatchController(s.repo, s.botUsername)

	engine.GET("/healthz", controllers.HandleHealth(s.sessions))
	engine.GET("/metrics", middlewares.OnlyAllowLocal, gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1", middlewares.OnlyAllowLocal)
	{
		v1.GET("/batches/:id", batchCtrl.HandleGetBatch)
		v1.GET("/batches/:id/qrcode", batchCtrl.HandleBatchQRCode)
		if s.hub != nil {
			v1.GET("/notify-ws", notifyhub.HandleNotifyWS(s.hub))
		}
	}
	return engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	tool.DefaultLogger.Infof("Starting API server on http://%s", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
