package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/iver-wharf/temperatures/pkg/config"
	"github.com/iver-wharf/wharf-core/v2/pkg/ginutil"
)

type module interface {
	register(g *gin.RouterGroup)
}

// Ping is the response from a GET /api/ request.
type Ping struct {
	Message string `json:"message"`
}

func (s *Server) newRouter() *gin.Engine {
	gin.DefaultWriter = ginutil.DefaultLoggerWriter
	gin.DefaultErrorWriter = ginutil.DefaultLoggerWriter

	r := gin.New()
	r.Use(
		ginutil.DefaultLoggerHandler,
		ginutil.RecoverProblem,
	)
	applyCORS(r, s.cfg.CORS)

	r.GET("/metrics", gin.WrapH(s.metrics))

	api := r.Group("/api")
	api.GET("/", pingHandler)

	modules := []module{
		sensorModule{sensors: s.sensors, store: s.store},
	}
	for _, m := range modules {
		m.register(api)
	}
	return r
}

func applyCORS(r *gin.Engine, cfg config.CORSConfig) {
	if cfg.AllowAllOrigins {
		log.Info().Message("Allowing all origins in CORS.")
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		r.Use(cors.New(corsConfig))
	} else if len(cfg.AllowOrigins) > 0 {
		log.Info().
			WithStringf("origin", "%v", cfg.AllowOrigins).
			Message("Allowing origins in CORS.")
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowOrigins
		r.Use(cors.New(corsConfig))
	}
}

func pingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, Ping{Message: "pong"})
}
