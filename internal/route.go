package internal

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ben458-1/URL-Server-Monitor/internal/handler"
	"github.com/ben458-1/URL-Server-Monitor/internal/middleware"
	"github.com/ben458-1/URL-Server-Monitor/pkg/config"
)

const apiPrefix = "/v1"

type Backend struct {
	R *gin.Engine
}

func Register(conf *handler.RegisterConfig) *Backend {
	s := new(Backend)
	s.R = gin.Default()

	// Liveness probe
	s.R.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "ok",
		})
	})

	s.registerService(conf)

	return s
}

func (b *Backend) registerService(conf *handler.RegisterConfig) {
	// Enable CORS for the frontend dev server in debug mode
	if gin.Mode() == gin.DebugMode {
		corsConf := cors.DefaultConfig()
		corsConf.AllowAllOrigins = true
		corsConf.AddAllowHeaders("Authorization")
		b.R.Use(cors.New(corsConf))
	}

	secret := config.GetConfig().Auth.AccessTokenSecret
	managers := registerManagers(conf)

	publicRouter := b.R.Group(apiPrefix)

	protectedRouter := b.R.Group(apiPrefix)
	protectedRouter.Use(middleware.Auth(secret))

	adminRouter := b.R.Group(apiPrefix + "/admin")
	adminRouter.Use(middleware.Auth(secret), middleware.AdminRequired())

	for _, mgr := range managers {
		mgr.RegisterPublic(publicRouter.Group(mgr.GetName()))
		mgr.RegisterProtected(protectedRouter.Group(mgr.GetName()))
		mgr.RegisterAdmin(adminRouter.Group(mgr.GetName()))
	}
}
