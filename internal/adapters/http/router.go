package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/suryapratap64/Open-stream/internal/adapters/signal"
	"github.com/suryapratap64/Open-stream/internal/app/orch"
	"github.com/suryapratap64/Open-stream/internal/config"
	"github.com/suryapratap64/Open-stream/internal/invite"
)

// ClientTokenMiddleware hands every browser a stable connection token; it
// doubles as the signaling connection id.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, invites *invite.Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("OpenStreamSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewController(o, cfg)

	api := r.Group("/api")
	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Registry.List())
	})
	api.POST("/invites", func(c *gin.Context) {
		var req struct {
			RoomID   string `json:"roomId" binding:"required"`
			HostName string `json:"hostName"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid roomId"})
			return
		}
		token := invites.EnsureSession(req.RoomID, req.HostName)
		c.JSON(http.StatusOK, gin.H{"roomId": req.RoomID, "inviteToken": token})
	})
	api.GET("/invites/:roomId", func(c *gin.Context) {
		sess, ok := invites.Get(c.Param("roomId"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no invite session"})
			return
		}
		c.JSON(http.StatusOK, sess)
	})

	return r
}
