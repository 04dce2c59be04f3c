package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Standup/internal/adapters/signal"
	"github.com/dkeye/Standup/internal/app"
	"github.com/dkeye/Standup/internal/config"
)

const (
	sessionCookie  = "StandupSessions"
	clientTokenKey = "client_token"
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware binds every request to a browser client through a
// token kept in the signed session cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			sess.Set(clientTokenKey, token)
			if err := sess.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

type Deps struct {
	Sessions  *app.Registry
	Artifacts *app.ArtifactStore
	Signal    *signal.SignalWSController
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": deps.Sessions.Len()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true, SameSite: http.SameSiteLaxMode})
	r.Use(sessions.Sessions(sessionCookie, store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	h := &handlers{sessions: deps.Sessions, artifacts: deps.Artifacts}
	api := r.Group("/api")

	api.GET("/session", h.getSession)
	api.DELETE("/session", h.endSession)

	api.POST("/members", h.addMember)
	api.DELETE("/members/:id", h.removeMember)

	api.POST("/queue/build", h.buildQueue)
	api.POST("/queue/shuffle", h.shuffleQueue)
	api.POST("/queue/rotate", h.rotateQueue)
	api.DELETE("/queue/:id", h.dequeue)

	api.POST("/recording", h.startRecording)
	api.DELETE("/recording", h.stopRecording)

	api.GET("/presets", h.listPresets)
	api.POST("/presets", h.savePreset)
	api.POST("/presets/:id/load", h.loadPreset)

	api.GET("/artifacts/:id", h.getArtifact)

	if deps.Signal != nil {
		api.GET("/ws", func(c *gin.Context) {
			log.Info().Str("module", "adapters.http").Str("cid", c.GetString(clientTokenKey)).Msg("ws signal endpoint hit")
			deps.Signal.HandleSignal(ctx, c)
		})
	}

	return r
}
