// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/Corphon/ArtVistas/internal/catalog"
	"github.com/Corphon/ArtVistas/internal/config"
	"github.com/Corphon/ArtVistas/internal/guide"
	"github.com/Corphon/ArtVistas/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	Guide   *guide.Manager
	Logger  *zap.Logger
	// ProviderName is reported by /health; GuideReady says whether a
	// provider was initialised.
	ProviderName string
	GuideReady   bool
	// Clock stamps camera runs; nil means time.Now.
	Clock func() time.Time
}

// Server bundles the router with the background pieces it owns.
type Server struct {
	Engine  *gin.Engine
	Hub     *WebSocketManager
	Handler *Handler
}

// Close stops the socket hub.
func (s *Server) Close() {
	s.Hub.Close()
}

// SetupRouter wires every route.
func SetupRouter(deps Dependencies) (*Server, error) {
	if deps.Config == nil || deps.Catalog == nil || deps.Guide == nil {
		return nil, fmt.Errorf("router requires config, catalog and guide manager")
	}
	cfg := deps.Config
	logger := utils.OrNop(deps.Logger)
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	hub := NewWebSocketManager(logger)
	limiter := NewChatLimiter(cfg.ChatRateLimit)

	handler := &Handler{
		Catalog:      deps.Catalog,
		Guide:        deps.Guide,
		Hub:          hub,
		Response:     NewResponseHelper(),
		providerName: deps.ProviderName,
		guideReady:   deps.GuideReady,
		cameraFPS:    cfg.CameraFPS,
		chatLimiter:  limiter,
		logger:       logger,
		clock:        clock,
	}
	deps.Guide.Subscribe(handler.publishGuideEvent)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(logger))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(utils.Registry, promhttp.HandlerOpts{})))

	// WebSocket
	r.GET("/ws/galleries/:id/camera", handler.CameraWebSocket)
	r.GET("/ws/guide/sessions/:id", handler.GuideWebSocket)

	// ===============================
	// API
	// ===============================
	api := r.Group("/api")
	{
		galleries := api.Group("/galleries")
		{
			galleries.GET("", handler.GetGalleries)
			galleries.GET("/:id", handler.GetGallery)
			galleries.GET("/:id/exhibits/:exhibit_id", handler.GetExhibit)
			galleries.POST("/:id/focus", handler.PlanFocus)
		}

		api.GET("/featured", handler.GetFeatured)

		guideGroup := api.Group("/guide")
		{
			guideGroup.GET("/personas", handler.GetPersonas)
			guideGroup.POST("/sessions", handler.CreateGuideSession)
			guideGroup.GET("/sessions/:id", handler.GetGuideSession)
			guideGroup.DELETE("/sessions/:id", handler.DeleteGuideSession)
			guideGroup.PUT("/sessions/:id/persona", handler.SetGuidePersona)
			guideGroup.POST("/sessions/:id/messages", limiter.Middleware(), handler.SendGuideMessage)
		}

		api.GET("/ws/status", handler.GetWebSocketStatus)
	}

	return &Server{Engine: r, Hub: hub, Handler: handler}, nil
}

func corsConfig(origins []string) cors.Config {
	corsCfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader}
	corsCfg.ExposeHeaders = []string{requestIDHeader, "X-Rate-Limit-Limit", "X-Rate-Limit-Remaining", "X-Rate-Limit-Reset"}
	corsCfg.MaxAge = 12 * time.Hour
	return corsCfg
}
